package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/novabiz/paydesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListPaymentFilter struct {
	TargetType TargetType
	TargetID   snowflake.ID
	Status     Status
	Type       Type
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	// FindByIDForUpdate locks the payment row for the duration of the
	// surrounding transaction.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Payment, error)
	Update(ctx context.Context, db *gorm.DB, payment *Payment) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListPaymentFilter, page pagination.Pagination) ([]*Payment, error)
}
