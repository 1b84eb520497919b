package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, enrollment *Enrollment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Enrollment, error)
	// FindByIDForUpdate locks the enrollment row; every mutation that
	// touches the enrollment's payment set goes through this lock.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Enrollment, error)
	UpdateBalances(ctx context.Context, tx *gorm.DB, enrollment *Enrollment) error
	List(ctx context.Context, db *gorm.DB, courseName string, limit int) ([]*Enrollment, error)
}
