package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	enrollmentdomain "github.com/novabiz/paydesk/internal/enrollment/domain"
	"github.com/novabiz/paydesk/internal/observability/metrics"
	"github.com/novabiz/paydesk/internal/payment/domain"
	ticketdomain "github.com/novabiz/paydesk/internal/serviceticket/domain"
	"github.com/novabiz/paydesk/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Metrics     *metrics.Metrics `optional:"true"`
	GenID       *snowflake.Node
	Repo        domain.Repository
	Enrollments enrollmentdomain.Repository
	EnrollCalc  enrollmentdomain.Calculator
	Tickets     ticketdomain.Repository
	TicketCalc  ticketdomain.Calculator
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	metrics     *metrics.Metrics
	genID       *snowflake.Node
	repo        domain.Repository
	enrollments enrollmentdomain.Repository
	enrollCalc  enrollmentdomain.Calculator
	tickets     ticketdomain.Repository
	ticketCalc  ticketdomain.Calculator
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		metrics:     p.Metrics,
		genID:       p.GenID,
		repo:        p.Repo,
		enrollments: p.Enrollments,
		enrollCalc:  p.EnrollCalc,
		tickets:     p.Tickets,
		ticketCalc:  p.TicketCalc,
	}
}

// Record stores a pending payment voucher against its target. The target
// row is locked while the voucher is written, so the balance check and
// the draft calculation both read a frozen payment set. Nothing affects
// the target's balances until the voucher is approved.
func (s *Service) Record(ctx context.Context, req domain.RecordPaymentRequest) (domain.Payment, error) {
	targetType := domain.TargetType(strings.TrimSpace(req.TargetType))
	if !targetType.Valid() {
		return domain.Payment{}, domain.ErrInvalidTargetType
	}
	paymentType := domain.Type(strings.TrimSpace(req.Type))
	if !paymentType.ValidForTarget(targetType) {
		return domain.Payment{}, domain.ErrInvalidPaymentType
	}
	if req.Amount <= 0 {
		return domain.Payment{}, domain.ErrInvalidAmount
	}
	targetID, err := snowflake.ParseString(strings.TrimSpace(req.TargetID))
	if err != nil {
		return domain.Payment{}, domain.ErrInvalidID
	}

	paidAt := time.Now().UTC()
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}

	id := s.genID.Generate()
	payment := domain.Payment{
		ID:            id,
		ReceiptNumber: targetType.ReceiptPrefix() + "-" + id.String(),
		TargetType:    targetType,
		TargetID:      targetID,
		Type:          paymentType,
		Amount:        req.Amount,
		Method:        strings.TrimSpace(req.Method),
		PaidAt:        paidAt,
		ReceivedBy:    strings.TrimSpace(req.ReceivedBy),
		Notes:         strings.TrimSpace(req.Notes),
		Status:        domain.StatusPending,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	if strings.TrimSpace(req.RelatedSaleID) != "" {
		saleID, err := snowflake.ParseString(strings.TrimSpace(req.RelatedSaleID))
		if err != nil {
			return domain.Payment{}, domain.ErrInvalidID
		}
		payment.RelatedSaleID = &saleID
	}
	if len(req.ExternalParts) > 0 {
		encoded, err := json.Marshal(req.ExternalParts)
		if err != nil {
			return domain.Payment{}, err
		}
		payment.ExternalParts = encoded
	}
	if len(req.PendingSaleIDs) > 0 {
		for _, raw := range req.PendingSaleIDs {
			if _, err := snowflake.ParseString(strings.TrimSpace(raw)); err != nil {
				return domain.Payment{}, domain.ErrInvalidID
			}
		}
		encoded, err := json.Marshal(req.PendingSaleIDs)
		if err != nil {
			return domain.Payment{}, err
		}
		payment.PendingSaleIDs = encoded
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch targetType {
		case domain.TargetEnrollment:
			enrollment, err := s.enrollments.FindByIDForUpdate(ctx, tx, targetID)
			if err != nil {
				return err
			}
			if enrollment == nil {
				return domain.ErrTargetNotFound
			}
			if paymentType == domain.TypeEnrollment && req.Amount > enrollment.RemainingAmount {
				return &domain.ExceedsRemainingError{Remaining: enrollment.RemainingAmount}
			}

		case domain.TargetServiceTicket:
			ticket, err := s.tickets.FindByIDForUpdate(ctx, tx, targetID)
			if err != nil {
				return err
			}
			if ticket == nil {
				return domain.ErrTargetNotFound
			}
			// Final-stage vouchers carry the breakdown that justified
			// their amount, frozen at recording time.
			if paymentType == domain.TypeServiceCharge || paymentType == domain.TypeFinalPayment {
				calc, err := s.ticketCalc.Calculate(ctx, tx, targetID)
				if err != nil {
					return err
				}
				encoded, err := json.Marshal(calc)
				if err != nil {
					return err
				}
				payment.Calculation = encoded
			}
		}

		return s.repo.Insert(ctx, tx, &payment)
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.metrics.PaymentRecorded(ctx, string(targetType))
	s.log.Info("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("receipt_number", payment.ReceiptNumber),
		zap.String("target_type", string(targetType)),
		zap.String("type", string(paymentType)),
		zap.Int64("amount", payment.Amount),
	)
	return payment, nil
}

// Amend edits a stored voucher in place. The receipt number never
// changes. If the voucher was already approved, the balances it fed are
// recomputed; when the amendment moves it to a different target, both
// the old and the new target are recomputed in the same transaction.
// Approval side effects are never re-run.
func (s *Service) Amend(ctx context.Context, req domain.AmendPaymentRequest) (domain.Payment, error) {
	paymentID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil {
		return domain.Payment{}, domain.ErrInvalidID
	}

	var amended domain.Payment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		peek, err := s.repo.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if peek == nil {
			return domain.ErrNotFound
		}

		oldType, oldID := peek.TargetType, peek.TargetID
		if err := s.lockTarget(ctx, tx, oldType, oldID); err != nil {
			return err
		}

		payment, err := s.repo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}

		if err := applyAmendment(payment, req); err != nil {
			return err
		}

		movedTarget := payment.TargetType != oldType || payment.TargetID != oldID
		if movedTarget {
			if err := s.lockTarget(ctx, tx, payment.TargetType, payment.TargetID); err != nil {
				return err
			}
		}

		payment.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, payment); err != nil {
			return err
		}

		if payment.Status == domain.StatusApproved {
			if err := s.recompute(ctx, tx, oldType, oldID); err != nil {
				return err
			}
			if movedTarget {
				if err := s.recompute(ctx, tx, payment.TargetType, payment.TargetID); err != nil {
					return err
				}
			}
		}

		amended = *payment
		return nil
	})
	if err != nil {
		return domain.Payment{}, err
	}

	s.log.Info("payment amended",
		zap.String("payment_id", amended.ID.String()),
		zap.String("status", string(amended.Status)),
	)
	return amended, nil
}

// Withdraw deletes a voucher outright. Withdrawing an approved voucher
// recomputes the target, which reverses the voucher's entire effect on
// the balances.
func (s *Service) Withdraw(ctx context.Context, id string) error {
	paymentID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		peek, err := s.repo.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if peek == nil {
			return domain.ErrNotFound
		}

		if err := s.lockTarget(ctx, tx, peek.TargetType, peek.TargetID); err != nil {
			return err
		}

		payment, err := s.repo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrNotFound
		}

		if err := s.repo.Delete(ctx, tx, paymentID); err != nil {
			return err
		}

		if payment.Status == domain.StatusApproved {
			if err := s.recompute(ctx, tx, payment.TargetType, payment.TargetID); err != nil {
				return err
			}
		}

		s.log.Info("payment withdrawn",
			zap.String("payment_id", payment.ID.String()),
			zap.String("receipt_number", payment.ReceiptNumber),
		)
		return nil
	})
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	paymentID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Payment{}, domain.ErrInvalidID
	}

	payment, err := s.repo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment == nil {
		return domain.Payment{}, domain.ErrNotFound
	}
	return *payment, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPaymentRequest) (domain.ListPaymentResponse, error) {
	filter := domain.ListPaymentFilter{
		TargetType: domain.TargetType(req.TargetType),
		Status:     domain.Status(req.Status),
		Type:       domain.Type(req.Type),
	}
	if strings.TrimSpace(req.TargetID) != "" {
		targetID, err := snowflake.ParseString(strings.TrimSpace(req.TargetID))
		if err != nil {
			return domain.ListPaymentResponse{}, domain.ErrInvalidID
		}
		filter.TargetID = targetID
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListPaymentResponse{}, err
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 50
	}
	pageInfo := pagination.BuildCursorPageInfo(items, limit, func(payment *domain.Payment) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        payment.ID.String(),
			CreatedAt: payment.CreatedAt.Format(time.RFC3339Nano),
		})
		return token
	})

	if len(items) > limit {
		items = items[:limit]
	}
	payments := make([]domain.Payment, 0, len(items))
	for _, item := range items {
		payments = append(payments, *item)
	}
	return domain.ListPaymentResponse{PageInfo: *pageInfo, Payments: payments}, nil
}

func applyAmendment(payment *domain.Payment, req domain.AmendPaymentRequest) error {
	if req.TargetType != nil {
		targetType := domain.TargetType(strings.TrimSpace(*req.TargetType))
		if !targetType.Valid() {
			return domain.ErrInvalidTargetType
		}
		payment.TargetType = targetType
	}
	if req.TargetID != nil {
		targetID, err := snowflake.ParseString(strings.TrimSpace(*req.TargetID))
		if err != nil {
			return domain.ErrInvalidID
		}
		payment.TargetID = targetID
	}
	if req.Type != nil {
		payment.Type = domain.Type(strings.TrimSpace(*req.Type))
	}
	if !payment.Type.ValidForTarget(payment.TargetType) {
		return domain.ErrInvalidPaymentType
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return domain.ErrInvalidAmount
		}
		payment.Amount = *req.Amount
	}
	if req.Method != nil {
		payment.Method = strings.TrimSpace(*req.Method)
	}
	if req.PaidAt != nil {
		payment.PaidAt = req.PaidAt.UTC()
	}
	if req.ReceivedBy != nil {
		payment.ReceivedBy = strings.TrimSpace(*req.ReceivedBy)
	}
	if req.Notes != nil {
		payment.Notes = strings.TrimSpace(*req.Notes)
	}
	return nil
}

func (s *Service) recompute(ctx context.Context, tx *gorm.DB, target domain.TargetType, targetID snowflake.ID) error {
	switch target {
	case domain.TargetEnrollment:
		_, err := s.enrollCalc.Recompute(ctx, tx, targetID)
		return err
	case domain.TargetServiceTicket:
		_, err := s.ticketCalc.Recompute(ctx, tx, targetID)
		return err
	}
	return domain.ErrInvalidTargetType
}

func (s *Service) lockTarget(ctx context.Context, tx *gorm.DB, target domain.TargetType, targetID snowflake.ID) error {
	switch target {
	case domain.TargetEnrollment:
		enrollment, err := s.enrollments.FindByIDForUpdate(ctx, tx, targetID)
		if err != nil {
			return err
		}
		if enrollment == nil {
			return domain.ErrTargetNotFound
		}
	case domain.TargetServiceTicket:
		ticket, err := s.tickets.FindByIDForUpdate(ctx, tx, targetID)
		if err != nil {
			return err
		}
		if ticket == nil {
			return domain.ErrTargetNotFound
		}
	default:
		return domain.ErrInvalidTargetType
	}
	return nil
}
