package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/novabiz/paydesk/internal/approval/domain"
	dispatchdomain "github.com/novabiz/paydesk/internal/dispatch/domain"
	enrollmentdomain "github.com/novabiz/paydesk/internal/enrollment/domain"
	"github.com/novabiz/paydesk/internal/observability/metrics"
	paymentdomain "github.com/novabiz/paydesk/internal/payment/domain"
	ticketdomain "github.com/novabiz/paydesk/internal/serviceticket/domain"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Metrics     *metrics.Metrics `optional:"true"`
	Payments    paymentdomain.Repository
	Dispatcher  dispatchdomain.Dispatcher
	Enrollments enrollmentdomain.Repository
	EnrollCalc  enrollmentdomain.Calculator
	Tickets     ticketdomain.Repository
	TicketCalc  ticketdomain.Calculator
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	metrics     *metrics.Metrics
	payments    paymentdomain.Repository
	dispatcher  dispatchdomain.Dispatcher
	enrollments enrollmentdomain.Repository
	enrollCalc  enrollmentdomain.Calculator
	tickets     ticketdomain.Repository
	ticketCalc  ticketdomain.Calculator
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("approval.service"),
		metrics:     p.Metrics,
		payments:    p.Payments,
		dispatcher:  p.Dispatcher,
		enrollments: p.Enrollments,
		enrollCalc:  p.EnrollCalc,
		tickets:     p.Tickets,
		ticketCalc:  p.TicketCalc,
	}
}

// Decide moves a pending payment into a terminal state. The target row
// lock is taken before the payment is re-read, so everything that
// follows (status flip, dispatch, recomputation) sees a frozen payment
// set for this target. Submitting the same verdict twice is a no-op;
// submitting the opposite verdict fails.
func (s *Service) Decide(ctx context.Context, req domain.DecideRequest) (domain.DecisionResult, error) {
	if !req.Action.Valid() {
		return domain.DecisionResult{}, domain.ErrInvalidAction
	}
	message := strings.TrimSpace(req.Message)
	if req.Action == domain.ActionDecline && message == "" {
		return domain.DecisionResult{}, domain.ErrMessageRequired
	}

	paymentID, err := snowflake.ParseString(strings.TrimSpace(req.PaymentID))
	if err != nil {
		return domain.DecisionResult{}, paymentdomain.ErrInvalidID
	}

	var result domain.DecisionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Peek at the payment to learn its target, then lock target
		// before payment. Every writer for a target uses this order.
		peek, err := s.payments.FindByID(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if peek == nil {
			return paymentdomain.ErrNotFound
		}

		if err := s.lockTarget(ctx, tx, peek.TargetType, peek.TargetID); err != nil {
			return err
		}

		payment, err := s.payments.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return paymentdomain.ErrNotFound
		}

		if payment.Terminal() {
			if payment.Status == req.Action.Status() {
				result.Payment = *payment
				return nil
			}
			return domain.ErrAlreadyDecided
		}

		now := time.Now().UTC()
		payment.Status = req.Action.Status()
		payment.AdminMessage = message
		payment.ApprovedBy = strings.TrimSpace(req.ActorID)
		payment.ApprovedAt = &now
		payment.UpdatedAt = now
		if err := s.payments.Update(ctx, tx, payment); err != nil {
			return err
		}

		if req.Action == domain.ActionApprove {
			report, err := s.dispatcher.Dispatch(ctx, tx, payment)
			if err != nil {
				return err
			}
			result.Report = report
			if err := s.recompute(ctx, tx, payment.TargetType, payment.TargetID); err != nil {
				return err
			}
		} else {
			if err := s.dispatcher.OnDeclined(ctx, tx, payment); err != nil {
				return err
			}
		}

		result.Payment = *payment
		return nil
	})
	if err != nil {
		return domain.DecisionResult{}, err
	}

	s.metrics.PaymentDecision(ctx, string(req.Action))
	s.log.Info("payment decided",
		zap.String("payment_id", result.Payment.ID.String()),
		zap.String("action", string(req.Action)),
		zap.String("target_type", string(result.Payment.TargetType)),
		zap.String("decided_by", result.Payment.ApprovedBy),
	)
	return result, nil
}

func (s *Service) lockTarget(ctx context.Context, tx *gorm.DB, target paymentdomain.TargetType, targetID snowflake.ID) error {
	switch target {
	case paymentdomain.TargetEnrollment:
		enrollment, err := s.enrollments.FindByIDForUpdate(ctx, tx, targetID)
		if err != nil {
			return err
		}
		if enrollment == nil {
			return enrollmentdomain.ErrNotFound
		}
	case paymentdomain.TargetServiceTicket:
		ticket, err := s.tickets.FindByIDForUpdate(ctx, tx, targetID)
		if err != nil {
			return err
		}
		if ticket == nil {
			return ticketdomain.ErrNotFound
		}
	default:
		return paymentdomain.ErrInvalidTargetType
	}
	return nil
}

func (s *Service) recompute(ctx context.Context, tx *gorm.DB, target paymentdomain.TargetType, targetID snowflake.ID) error {
	switch target {
	case paymentdomain.TargetEnrollment:
		_, err := s.enrollCalc.Recompute(ctx, tx, targetID)
		return err
	case paymentdomain.TargetServiceTicket:
		_, err := s.ticketCalc.Recompute(ctx, tx, targetID)
		return err
	}
	return paymentdomain.ErrInvalidTargetType
}
