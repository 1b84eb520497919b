package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Product struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	SKU           string       `gorm:"type:text;not null;uniqueIndex" json:"sku"`
	Price         int64        `gorm:"not null" json:"price"`
	StockQuantity int64        `gorm:"not null;default:0" json:"stock_quantity"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }
