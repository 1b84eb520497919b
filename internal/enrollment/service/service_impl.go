package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/novabiz/paydesk/internal/enrollment/domain"
	"github.com/novabiz/paydesk/internal/observability/metrics"
	paymentdomain "github.com/novabiz/paydesk/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) (domain.Service, domain.Calculator) {
	s := &Service{
		db:      p.DB,
		log:     p.Log.Named("enrollment.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
	return s, s
}

func (s *Service) Create(ctx context.Context, req domain.CreateEnrollmentRequest) (domain.Enrollment, error) {
	student := strings.TrimSpace(req.StudentName)
	if student == "" {
		return domain.Enrollment{}, domain.ErrInvalidStudent
	}
	course := strings.TrimSpace(req.CourseName)
	if course == "" {
		return domain.Enrollment{}, domain.ErrInvalidCourse
	}
	if req.TotalAmount <= 0 {
		return domain.Enrollment{}, domain.ErrInvalidTotal
	}

	now := time.Now().UTC()
	enrollment := domain.Enrollment{
		ID:              s.genID.Generate(),
		StudentName:     student,
		CourseName:      course,
		BatchCode:       strings.TrimSpace(req.BatchCode),
		TotalAmount:     req.TotalAmount,
		RemainingAmount: req.TotalAmount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &enrollment); err != nil {
		return domain.Enrollment{}, err
	}

	return enrollment, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Enrollment, error) {
	enrollmentID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Enrollment{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, enrollmentID)
	if err != nil {
		return domain.Enrollment{}, err
	}
	if item == nil {
		return domain.Enrollment{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListEnrollmentRequest) (domain.ListEnrollmentResponse, error) {
	items, err := s.repo.List(ctx, s.db, strings.TrimSpace(req.CourseName), req.PageSize)
	if err != nil {
		return domain.ListEnrollmentResponse{}, err
	}

	enrollments := make([]domain.Enrollment, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		enrollments = append(enrollments, *item)
	}
	return domain.ListEnrollmentResponse{Enrollments: enrollments}, nil
}

// Recompute replays the enrollment's approved payment set and writes the
// derived balance fields back atomically. The enrollment row must already
// be locked by the surrounding transaction.
func (s *Service) Recompute(ctx context.Context, tx *gorm.DB, enrollmentID snowflake.ID) (*domain.Enrollment, error) {
	enrollment, err := s.repo.FindByIDForUpdate(ctx, tx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, domain.ErrNotFound
	}

	sums, err := s.approvedSumsByType(ctx, tx, enrollmentID)
	if err != nil {
		return nil, err
	}

	enrollment.PaidAmount = sums[paymentdomain.TypeEnrollment]
	enrollment.AdmissionFeeAmount = sums[paymentdomain.TypeAdmission]
	enrollment.RegistrationFeeAmount = sums[paymentdomain.TypeRegistration]
	enrollment.ExamFeeAmount = sums[paymentdomain.TypeExam]
	enrollment.RemainingAmount = enrollment.TotalAmount - enrollment.PaidAmount

	if err := s.repo.UpdateBalances(ctx, tx, enrollment); err != nil {
		return nil, err
	}

	s.metrics.BalanceRecomputed(ctx, string(paymentdomain.TargetEnrollment))
	s.log.Debug("enrollment balances recomputed",
		zap.String("enrollment_id", enrollmentID.String()),
		zap.Int64("paid_amount", enrollment.PaidAmount),
		zap.Int64("remaining_amount", enrollment.RemainingAmount),
	)

	return enrollment, nil
}

func (s *Service) approvedSumsByType(ctx context.Context, tx *gorm.DB, enrollmentID snowflake.ID) (map[paymentdomain.Type]int64, error) {
	var rows []struct {
		Type  paymentdomain.Type
		Total int64
	}
	err := tx.WithContext(ctx).Raw(
		`SELECT type, COALESCE(SUM(amount), 0) AS total
		 FROM payments
		 WHERE target_type = ? AND target_id = ? AND status = ?
		 GROUP BY type`,
		paymentdomain.TargetEnrollment,
		enrollmentID,
		paymentdomain.StatusApproved,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	sums := make(map[paymentdomain.Type]int64, len(rows))
	for _, row := range rows {
		sums[row.Type] = row.Total
	}
	return sums, nil
}
