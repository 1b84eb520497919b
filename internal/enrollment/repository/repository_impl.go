package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/novabiz/paydesk/internal/enrollment/domain"
	"github.com/novabiz/paydesk/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, enrollment *domain.Enrollment) error {
	return conn.WithContext(ctx).Create(enrollment).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Enrollment, error) {
	var enrollment domain.Enrollment
	err := conn.WithContext(ctx).
		Where("id = ?", id).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &enrollment, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Enrollment, error) {
	var enrollment domain.Enrollment
	err := db.ForUpdate(tx.WithContext(ctx)).
		Where("id = ?", id).
		First(&enrollment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &enrollment, nil
}

func (r *repo) UpdateBalances(ctx context.Context, tx *gorm.DB, enrollment *domain.Enrollment) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET paid_amount = ?,
		     remaining_amount = ?,
		     admission_fee_amount = ?,
		     registration_fee_amount = ?,
		     exam_fee_amount = ?,
		     updated_at = ?
		 WHERE id = ?`,
		enrollment.PaidAmount,
		enrollment.RemainingAmount,
		enrollment.AdmissionFeeAmount,
		enrollment.RegistrationFeeAmount,
		enrollment.ExamFeeAmount,
		time.Now().UTC(),
		enrollment.ID,
	).Error
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, courseName string, limit int) ([]*domain.Enrollment, error) {
	stmt := conn.WithContext(ctx).Model(&domain.Enrollment{})
	if courseName != "" {
		stmt = stmt.Where("course_name = ?", courseName)
	}
	if limit <= 0 {
		limit = 50
	}

	var enrollments []*domain.Enrollment
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}
	return enrollments, nil
}
