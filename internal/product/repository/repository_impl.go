package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/novabiz/paydesk/internal/product/domain"
	"github.com/novabiz/paydesk/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, product *domain.Product) error {
	return conn.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (r *repo) UpdateStock(ctx context.Context, tx *gorm.DB, product *domain.Product) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE products SET stock_quantity = ?, updated_at = ? WHERE id = ?`,
		product.StockQuantity,
		time.Now().UTC(),
		product.ID,
	).Error
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, limit int) ([]*domain.Product, error) {
	if limit <= 0 {
		limit = 50
	}

	var products []*domain.Product
	err := conn.WithContext(ctx).
		Model(&domain.Product{}).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
