package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/novabiz/paydesk/internal/sale/domain"
	"github.com/novabiz/paydesk/pkg/db"
	"github.com/novabiz/paydesk/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, sale *domain.Sale) error {
	return tx.WithContext(ctx).Create(sale).Error
}

func (r *repo) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Sale, error) {
	var sale domain.Sale
	err := tx.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Sale, error) {
	var sale domain.Sale
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := tx.WithContext(ctx).
		Where("sale_id = ?", id).
		Find(&sale.Items).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repo) UpdateStatus(ctx context.Context, tx *gorm.DB, sale *domain.Sale) error {
	return tx.WithContext(ctx).Exec(`
		UPDATE sales
		SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`,
		sale.Status, sale.CompletedAt, sale.UpdatedAt, sale.ID,
	).Error
}

func (r *repo) List(ctx context.Context, tx *gorm.DB, filter domain.ListSaleFilter, page pagination.Pagination) ([]*domain.Sale, error) {
	stmt := tx.WithContext(ctx).Model(&domain.Sale{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.TicketID != nil {
		stmt = stmt.Where("ticket_id = ?", *filter.TicketID)
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		if cursor.CreatedAt != "" && cursor.ID != "" {
			createdAt, err := cursor.CreatedAtTime()
			if err != nil {
				return nil, err
			}
			id, err := snowflake.ParseString(cursor.ID)
			if err != nil {
				return nil, err
			}
			stmt = stmt.Where("(created_at, id) < (?, ?)", createdAt, id)
		}
	}

	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}

	var sales []*domain.Sale
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&sales).Error
	if err != nil {
		return nil, err
	}
	return sales, nil
}
