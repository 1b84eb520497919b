package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	Name          string
	SKU           string
	Price         int64
	StockQuantity int64
}

type AdjustStockRequest struct {
	ProductID string
	Delta     int64
}

type ListProductRequest struct {
	PageSize int
}

type ListProductResponse struct {
	Products []Product `json:"products"`
}

type Service interface {
	Create(ctx context.Context, req CreateProductRequest) (Product, error)
	GetByID(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, req ListProductRequest) (ListProductResponse, error)
	AdjustStock(ctx context.Context, req AdjustStockRequest) (Product, error)

	// AdjustStockTx applies a stock delta inside the caller's transaction,
	// locking the product row, and returns the adjusted product. Stock
	// never goes negative.
	AdjustStockTx(ctx context.Context, tx *gorm.DB, productID snowflake.ID, delta int64) (Product, error)
}

var (
	ErrNotFound          = errors.New("product_not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidName       = errors.New("invalid_name")
	ErrInvalidSKU        = errors.New("invalid_sku")
	ErrInvalidPrice      = errors.New("invalid_price")
	ErrInsufficientStock = errors.New("insufficient_stock")
)
