package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/novabiz/paydesk/internal/payment/domain"
	"github.com/novabiz/paydesk/pkg/db"
	"github.com/novabiz/paydesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, payment *domain.Payment) error {
	return conn.WithContext(ctx).Create(payment).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, payment *domain.Payment) error {
	return conn.WithContext(ctx).Save(payment).Error
}

func (r *repo) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) error {
	return conn.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Payment{}).Error
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListPaymentFilter, page pagination.Pagination) ([]*domain.Payment, error) {
	stmt := conn.WithContext(ctx).Model(&domain.Payment{})
	if filter.TargetType != "" {
		stmt = stmt.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != 0 {
		stmt = stmt.Where("target_id = ?", filter.TargetID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
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

	var payments []*domain.Payment
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
