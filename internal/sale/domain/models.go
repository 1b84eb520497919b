package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	// StatusPending marks a sale held for a service-ticket parts payment;
	// it completes only when that payment is approved.
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	// StatusCanceled marks a held sale released after its linked payment
	// was declined. Stock is restored on cancellation.
	StatusCanceled Status = "canceled"
)

type Sale struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	Status       Status        `gorm:"type:text;not null;index" json:"status"`
	TicketID     *snowflake.ID `gorm:"index" json:"ticket_id,omitempty"`
	CustomerName string        `gorm:"type:text" json:"customer_name"`
	TotalAmount  int64         `gorm:"not null" json:"total_amount"`

	Items []SaleItem `gorm:"foreignKey:SaleID" json:"items,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Sale) TableName() string { return "sales" }

type SaleItem struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	SaleID    snowflake.ID `gorm:"not null;index" json:"sale_id"`
	ProductID snowflake.ID `gorm:"not null" json:"product_id"`
	Quantity  int64        `gorm:"not null" json:"quantity"`
	UnitPrice int64        `gorm:"not null" json:"unit_price"`
	Amount    int64        `gorm:"not null" json:"amount"`
}

// TableName sets the database table name.
func (SaleItem) TableName() string { return "sale_items" }
