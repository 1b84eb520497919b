package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateEnrollmentRequest struct {
	StudentName string
	CourseName  string
	BatchCode   string
	TotalAmount int64
}

type ListEnrollmentRequest struct {
	CourseName string
	PageSize   int
}

type ListEnrollmentResponse struct {
	Enrollments []Enrollment `json:"enrollments"`
}

type Service interface {
	Create(ctx context.Context, req CreateEnrollmentRequest) (Enrollment, error)
	GetByID(ctx context.Context, id string) (Enrollment, error)
	List(ctx context.Context, req ListEnrollmentRequest) (ListEnrollmentResponse, error)
}

// Calculator derives an enrollment's balance fields from its approved
// payments. Recompute always replays the full approved set; it never
// adjusts balances incrementally, so edits, withdrawals and late status
// changes are reflected without compensation arithmetic.
//
// Recompute must run inside the transaction that mutated the payment set,
// with the enrollment row locked.
type Calculator interface {
	Recompute(ctx context.Context, tx *gorm.DB, enrollmentID snowflake.ID) (*Enrollment, error)
}

var (
	ErrNotFound       = errors.New("enrollment_not_found")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidStudent = errors.New("invalid_student")
	ErrInvalidCourse  = errors.New("invalid_course")
	ErrInvalidTotal   = errors.New("invalid_total_amount")
)
