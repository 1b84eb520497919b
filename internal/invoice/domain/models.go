package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TargetType identifies what a generated invoice bills for.
type TargetType string

const (
	TargetSale          TargetType = "sale"
	TargetServiceTicket TargetType = "service_ticket"
)

// Invoice is generated exactly once per completed sale or service ticket.
// The (target_type, target_id) pair is unique; generation is idempotent.
type Invoice struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceNumber int64        `gorm:"not null;uniqueIndex" json:"invoice_number"`
	TargetType    TargetType   `gorm:"type:text;not null;uniqueIndex:ux_invoices_target,priority:1" json:"target_type"`
	TargetID      snowflake.ID `gorm:"not null;uniqueIndex:ux_invoices_target,priority:2" json:"target_id"`
	TotalAmount   int64        `gorm:"not null" json:"total_amount"`
	IssuedAt      time.Time    `gorm:"not null" json:"issued_at"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
