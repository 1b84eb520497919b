package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Product, error)
	UpdateStock(ctx context.Context, tx *gorm.DB, product *Product) error
	List(ctx context.Context, db *gorm.DB, limit int) ([]*Product, error)
}
