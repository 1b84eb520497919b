package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListInvoiceRequest struct {
	TargetType string
	PageSize   int
}

type ListInvoiceResponse struct {
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)

	// GenerateTx creates the invoice for the target inside the caller's
	// transaction. An existing invoice short-circuits silently: the stored
	// invoice is returned with created=false and no error, which makes
	// re-running a partially failed dispatch safe.
	GenerateTx(ctx context.Context, tx *gorm.DB, target TargetType, targetID snowflake.ID, total int64) (Invoice, bool, error)
}

var (
	ErrNotFound  = errors.New("invoice_not_found")
	ErrInvalidID = errors.New("invalid_id")
)
