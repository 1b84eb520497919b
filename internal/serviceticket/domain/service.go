package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateTicketRequest struct {
	CustomerName  string
	DeviceInfo    string
	ServiceCharge int64
	DiagnosticFee int64
}

type ListTicketRequest struct {
	Status   string
	PageSize int
}

type ListTicketResponse struct {
	Tickets []ServiceTicket `json:"tickets"`
}

type Service interface {
	Create(ctx context.Context, req CreateTicketRequest) (ServiceTicket, error)
	GetByID(ctx context.Context, id string) (ServiceTicket, error)
	List(ctx context.Context, req ListTicketRequest) (ListTicketResponse, error)
	// Complete marks the ticket done and generates its invoice idempotently.
	Complete(ctx context.Context, id string) (ServiceTicket, error)
	// Quote returns the current smart calculation without mutating anything.
	Quote(ctx context.Context, id string) (Calculation, error)
}

// Calculator owns the ticket's derived payment figures.
//
// Calculate produces the smart due/refund breakdown from the ticket's cost
// and its approved advances. Recompute replays the approved payment set and
// writes TotalAdvancePaid and TotalRefundGiven back; like the enrollment
// calculator it never adjusts incrementally.
//
// Both must run inside the transaction that holds the ticket row lock.
type Calculator interface {
	Calculate(ctx context.Context, tx *gorm.DB, ticketID snowflake.ID) (Calculation, error)
	Recompute(ctx context.Context, tx *gorm.DB, ticketID snowflake.ID) (*ServiceTicket, error)
}

var (
	ErrNotFound        = errors.New("service_ticket_not_found")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidCharge   = errors.New("invalid_service_charge")
	ErrAlreadyComplete = errors.New("ticket_already_completed")
)
