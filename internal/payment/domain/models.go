package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// TargetType identifies which billable entity a payment is recorded against.
type TargetType string

const (
	TargetEnrollment    TargetType = "enrollment"
	TargetServiceTicket TargetType = "service_ticket"
)

func (t TargetType) Valid() bool {
	switch t {
	case TargetEnrollment, TargetServiceTicket:
		return true
	default:
		return false
	}
}

// ReceiptPrefix returns the voucher prefix for the target's payment domain.
func (t TargetType) ReceiptPrefix() string {
	if t == TargetEnrollment {
		return "PV"
	}
	return "SP"
}

// Type is the payment type, scoped per target domain.
type Type string

const (
	// Enrollment domain.
	TypeEnrollment   Type = "enrollment"
	TypeAdmission    Type = "admission"
	TypeRegistration Type = "registration"
	TypeExam         Type = "exam"

	// Service domain.
	TypeServiceCharge  Type = "service_charge"
	TypeAdvancePayment Type = "advance_payment"
	TypePartsPayment   Type = "parts_payment"
	TypeDiagnosticFee  Type = "diagnostic_fee"
	TypeFinalPayment   Type = "final_payment"
	TypeRefund         Type = "refund"
)

// ValidForTarget reports whether the type belongs to the target's domain.
func (t Type) ValidForTarget(target TargetType) bool {
	switch target {
	case TargetEnrollment:
		switch t {
		case TypeEnrollment, TypeAdmission, TypeRegistration, TypeExam:
			return true
		}
	case TargetServiceTicket:
		switch t {
		case TypeServiceCharge, TypeAdvancePayment, TypePartsPayment,
			TypeDiagnosticFee, TypeFinalPayment, TypeRefund:
			return true
		}
	}
	return false
}

// Status is the approval state of a payment. Approved and declined are
// terminal; there is no transition out of a terminal state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// ExternalPart is an ad-hoc part not drawn from inventory, attached to a
// service-domain parts payment.
type ExternalPart struct {
	Name string `json:"name"`
	Cost int64  `json:"cost"`
}

type Payment struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	ReceiptNumber string       `gorm:"type:text;not null;uniqueIndex" json:"receipt_number"`
	TargetType    TargetType   `gorm:"type:text;not null;index:idx_payments_target,priority:1" json:"target_type"`
	TargetID      snowflake.ID `gorm:"not null;index:idx_payments_target,priority:2" json:"target_id"`
	Type          Type         `gorm:"type:text;not null" json:"type"`
	Amount        int64        `gorm:"not null" json:"amount"`
	Method        string       `gorm:"type:text" json:"method"`
	PaidAt        time.Time    `gorm:"not null" json:"paid_at"`
	ReceivedBy    string       `gorm:"type:text" json:"received_by"`
	Notes         string       `gorm:"type:text" json:"notes"`

	Status       Status     `gorm:"type:text;not null;index" json:"status"`
	AdminMessage string     `gorm:"type:text" json:"admin_message"`
	ApprovedBy   string     `gorm:"type:text" json:"approved_by,omitempty"`
	ApprovedAt   *time.Time `json:"approved_at,omitempty"`

	RelatedSaleID  *snowflake.ID  `json:"related_sale_id,omitempty"`
	ExternalParts  datatypes.JSON `json:"external_parts,omitempty"`
	PendingSaleIDs datatypes.JSON `json:"pending_sale_ids,omitempty"`
	Calculation    datatypes.JSON `json:"calculation,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// Terminal reports whether the payment has reached a final approval state.
func (p Payment) Terminal() bool {
	return p.Status == StatusApproved || p.Status == StatusDeclined
}

// DecodeExternalParts unpacks the external parts JSON payload, if any.
func (p Payment) DecodeExternalParts() ([]ExternalPart, error) {
	if len(p.ExternalParts) == 0 {
		return nil, nil
	}
	var parts []ExternalPart
	if err := json.Unmarshal(p.ExternalParts, &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

// DecodePendingSaleIDs unpacks the held-sale id list, if any.
func (p Payment) DecodePendingSaleIDs() ([]snowflake.ID, error) {
	if len(p.PendingSaleIDs) == 0 {
		return nil, nil
	}
	var raw []string
	if err := json.Unmarshal(p.PendingSaleIDs, &raw); err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(raw))
	for _, value := range raw {
		id, err := snowflake.ParseString(value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
