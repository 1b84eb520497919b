package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, ticket *ServiceTicket) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ServiceTicket, error)
	// FindByIDForUpdate locks the ticket row; every mutation that touches
	// the ticket's payment set or cost breakdown goes through this lock.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*ServiceTicket, error)
	UpdateBalances(ctx context.Context, tx *gorm.DB, ticket *ServiceTicket) error
	UpdateCosts(ctx context.Context, tx *gorm.DB, ticket *ServiceTicket) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, ticket *ServiceTicket) error
	List(ctx context.Context, db *gorm.DB, status Status, limit int) ([]*ServiceTicket, error)
}
