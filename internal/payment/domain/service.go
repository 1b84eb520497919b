package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/novabiz/paydesk/pkg/db/pagination"
)

type RecordPaymentRequest struct {
	TargetType    string
	TargetID      string
	Type          string
	Amount        int64
	Method        string
	PaidAt        *time.Time
	ReceivedBy    string
	Notes         string
	RelatedSaleID string

	ExternalParts  []ExternalPart
	PendingSaleIDs []string
}

// AmendPaymentRequest carries the mutable fields of a stored payment.
// Nil pointers leave the stored value untouched.
type AmendPaymentRequest struct {
	ID string

	Amount     *int64
	Type       *string
	TargetType *string
	TargetID   *string
	Method     *string
	PaidAt     *time.Time
	ReceivedBy *string
	Notes      *string
}

type ListPaymentRequest struct {
	TargetType string
	TargetID   string
	Status     string
	Type       string
	PageToken  string
	PageSize   int
}

type ListPaymentResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type Service interface {
	Record(ctx context.Context, req RecordPaymentRequest) (Payment, error)
	Amend(ctx context.Context, req AmendPaymentRequest) (Payment, error)
	Withdraw(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Payment, error)
	List(ctx context.Context, req ListPaymentRequest) (ListPaymentResponse, error)
}

var (
	ErrNotFound           = errors.New("payment_not_found")
	ErrTargetNotFound     = errors.New("target_not_found")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidTargetType  = errors.New("invalid_target_type")
	ErrInvalidPaymentType = errors.New("invalid_payment_type")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrExceedsRemaining   = errors.New("amount_exceeds_remaining")
)

// ExceedsRemainingError rejects an enrollment payment larger than the
// enrollment's remaining balance, carrying the balance for the caller.
type ExceedsRemainingError struct {
	Remaining int64
}

func (e *ExceedsRemainingError) Error() string {
	return fmt.Sprintf("amount exceeds remaining balance of %d", e.Remaining)
}

func (e *ExceedsRemainingError) Is(target error) bool {
	return target == ErrExceedsRemaining
}
