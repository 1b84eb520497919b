package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/novabiz/paydesk/pkg/db/pagination"
)

var (
	ErrNotFound         = errors.New("sale_not_found")
	ErrInvalidID        = errors.New("invalid_sale_id")
	ErrNoItems          = errors.New("sale_requires_items")
	ErrInvalidItem      = errors.New("invalid_sale_item")
	ErrSaleCanceled     = errors.New("sale_canceled")
	ErrAlreadyCompleted = errors.New("sale_already_completed")
)

type CreateSaleItem struct {
	ProductID string
	Quantity  int64
}

type CreateSaleRequest struct {
	CustomerName string
	TicketID     string
	Items        []CreateSaleItem
}

type ListSaleRequest struct {
	Status    string
	TicketID  string
	PageToken string
	PageSize  int
}

type ListSaleResponse struct {
	pagination.PageInfo
	Sales []Sale `json:"sales"`
}

// Service manages product sales. Stock is decremented when a sale is
// created, not when it completes; a held sale that is later canceled
// puts its quantities back.
type Service interface {
	Create(ctx context.Context, req CreateSaleRequest) (*Sale, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Sale, error)
	List(ctx context.Context, req ListSaleRequest) (ListSaleResponse, error)

	// CompleteTx flips a pending sale to completed inside the caller's
	// transaction. The bool reports whether the sale transitioned; an
	// already-completed sale comes back as (sale, false, nil).
	CompleteTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Sale, bool, error)

	// CancelTx cancels a pending sale and restores product stock inside
	// the caller's transaction. Completed sales cannot be canceled.
	CancelTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Sale, error)
}
