package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Enrollment is a billable relationship between a student and a course batch.
//
// PaidAmount, RemainingAmount and the per-fee fields are derived from the
// approved payment set and are owned by the balance calculator; they are
// never mutated directly.
type Enrollment struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	StudentName string       `gorm:"type:text;not null" json:"student_name"`
	CourseName  string       `gorm:"type:text;not null" json:"course_name"`
	BatchCode   string       `gorm:"type:text" json:"batch_code"`

	TotalAmount     int64 `gorm:"not null" json:"total_amount"`
	PaidAmount      int64 `gorm:"not null;default:0" json:"paid_amount"`
	RemainingAmount int64 `gorm:"not null;default:0" json:"remaining_amount"`

	AdmissionFeeAmount    int64 `gorm:"not null;default:0" json:"admission_fee_amount"`
	RegistrationFeeAmount int64 `gorm:"not null;default:0" json:"registration_fee_amount"`
	ExamFeeAmount         int64 `gorm:"not null;default:0" json:"exam_fee_amount"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Enrollment) TableName() string { return "enrollments" }

// AdmissionFeePaid reports whether any admission fee has been collected.
func (e Enrollment) AdmissionFeePaid() bool { return e.AdmissionFeeAmount > 0 }

// RegistrationFeePaid reports whether any registration fee has been collected.
func (e Enrollment) RegistrationFeePaid() bool { return e.RegistrationFeeAmount > 0 }

// ExamFeePaid reports whether any exam fee has been collected.
func (e Enrollment) ExamFeePaid() bool { return e.ExamFeeAmount > 0 }
