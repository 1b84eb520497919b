package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/novabiz/paydesk/pkg/db/pagination"
)

type ListSaleFilter struct {
	Status   Status
	TicketID *snowflake.ID
}

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, sale *Sale) error
	FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Sale, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Sale, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, sale *Sale) error
	List(ctx context.Context, tx *gorm.DB, filter ListSaleFilter, page pagination.Pagination) ([]*Sale, error)
}
