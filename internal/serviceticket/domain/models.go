package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusReceived   Status = "received"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ServiceTicket is a billable device-repair job.
//
// TotalAdvancePaid and TotalRefundGiven are derived from the approved
// payment set by the calculator. PartsCost is mutable state: it grows when
// parts payments are approved.
type ServiceTicket struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	TicketNumber string       `gorm:"type:text;not null;uniqueIndex" json:"ticket_number"`
	CustomerName string       `gorm:"type:text;not null" json:"customer_name"`
	DeviceInfo   string       `gorm:"type:text" json:"device_info"`
	Status       Status       `gorm:"type:text;not null;default:received" json:"status"`

	ServiceCharge int64 `gorm:"not null;default:0" json:"service_charge"`
	DiagnosticFee int64 `gorm:"not null;default:0" json:"diagnostic_fee"`
	PartsCost     int64 `gorm:"not null;default:0" json:"parts_cost"`

	TotalAdvancePaid int64 `gorm:"not null;default:0" json:"total_advance_paid"`
	TotalRefundGiven int64 `gorm:"not null;default:0" json:"total_refund_given"`

	ExternalParts datatypes.JSON `json:"external_parts,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ServiceTicket) TableName() string { return "service_tickets" }

// ExternalPart is a non-inventory part folded into the ticket's parts
// cost when its payment is approved.
type ExternalPart struct {
	Name string `json:"name"`
	Cost int64  `json:"cost"`
}

// DecodeExternalParts unpacks the accumulated external parts, if any.
func (t ServiceTicket) DecodeExternalParts() ([]ExternalPart, error) {
	if len(t.ExternalParts) == 0 {
		return nil, nil
	}
	var parts []ExternalPart
	if err := json.Unmarshal(t.ExternalParts, &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

// TotalServiceCost is the full cost of the job as currently known.
func (t ServiceTicket) TotalServiceCost() int64 {
	return t.ServiceCharge + t.DiagnosticFee + t.PartsCost
}

// Calculation is the itemized due/refund breakdown derived from the
// ticket's cost and its approved advances. It is stored verbatim on the
// payment that triggered it so historical receipts stay reproducible even
// if the ticket's costs later change.
type Calculation struct {
	ServiceCharge  int64     `json:"service_charge"`
	DiagnosticFee  int64     `json:"diagnostic_fee"`
	PartsCost      int64     `json:"parts_cost"`
	TotalCost      int64     `json:"total_cost"`
	AdvanceApplied int64     `json:"advance_applied"`
	AmountDue      int64     `json:"amount_due"`
	RefundDue      int64     `json:"refund_due"`
	ComputedAt     time.Time `json:"computed_at"`
}
