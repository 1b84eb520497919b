package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/novabiz/paydesk/internal/invoice/domain"
	"github.com/novabiz/paydesk/internal/observability/metrics"
	paymentdomain "github.com/novabiz/paydesk/internal/payment/domain"
	"github.com/novabiz/paydesk/internal/serviceticket/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	InvoiceSvc invoicedomain.Service
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	invoiceSvc invoicedomain.Service
	metrics    *metrics.Metrics
}

func New(p Params) (domain.Service, domain.Calculator) {
	s := &Service{
		db:         p.DB,
		log:        p.Log.Named("serviceticket.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		invoiceSvc: p.InvoiceSvc,
		metrics:    p.Metrics,
	}
	return s, s
}

func (s *Service) Create(ctx context.Context, req domain.CreateTicketRequest) (domain.ServiceTicket, error) {
	customer := strings.TrimSpace(req.CustomerName)
	if customer == "" {
		return domain.ServiceTicket{}, domain.ErrInvalidCustomer
	}
	if req.ServiceCharge < 0 || req.DiagnosticFee < 0 {
		return domain.ServiceTicket{}, domain.ErrInvalidCharge
	}

	now := time.Now().UTC()
	id := s.genID.Generate()
	ticket := domain.ServiceTicket{
		ID:            id,
		TicketNumber:  fmt.Sprintf("ST-%s", id.String()),
		CustomerName:  customer,
		DeviceInfo:    strings.TrimSpace(req.DeviceInfo),
		Status:        domain.StatusReceived,
		ServiceCharge: req.ServiceCharge,
		DiagnosticFee: req.DiagnosticFee,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, &ticket); err != nil {
		return domain.ServiceTicket{}, err
	}

	return ticket, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.ServiceTicket, error) {
	ticketID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ServiceTicket{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, ticketID)
	if err != nil {
		return domain.ServiceTicket{}, err
	}
	if item == nil {
		return domain.ServiceTicket{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListTicketRequest) (domain.ListTicketResponse, error) {
	items, err := s.repo.List(ctx, s.db, domain.Status(strings.TrimSpace(req.Status)), req.PageSize)
	if err != nil {
		return domain.ListTicketResponse{}, err
	}

	tickets := make([]domain.ServiceTicket, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		tickets = append(tickets, *item)
	}
	return domain.ListTicketResponse{Tickets: tickets}, nil
}

func (s *Service) Complete(ctx context.Context, id string) (domain.ServiceTicket, error) {
	ticketID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ServiceTicket{}, domain.ErrInvalidID
	}

	var completed domain.ServiceTicket
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ticket, err := s.repo.FindByIDForUpdate(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if ticket == nil {
			return domain.ErrNotFound
		}
		if ticket.Status == domain.StatusCompleted {
			return domain.ErrAlreadyComplete
		}

		now := time.Now().UTC()
		ticket.Status = domain.StatusCompleted
		ticket.CompletedAt = &now
		if err := s.repo.UpdateStatus(ctx, tx, ticket); err != nil {
			return err
		}

		if _, _, err := s.invoiceSvc.GenerateTx(ctx, tx, invoicedomain.TargetServiceTicket, ticket.ID, ticket.TotalServiceCost()); err != nil {
			return err
		}

		completed = *ticket
		return nil
	})
	if err != nil {
		return domain.ServiceTicket{}, err
	}

	return completed, nil
}

func (s *Service) Quote(ctx context.Context, id string) (domain.Calculation, error) {
	ticketID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Calculation{}, domain.ErrInvalidID
	}

	var calc domain.Calculation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		calc, err = s.Calculate(ctx, tx, ticketID)
		return err
	})
	if err != nil {
		return domain.Calculation{}, err
	}
	return calc, nil
}

// Calculate derives the smart due/refund breakdown for the ticket:
// total cost minus approved advances, with a three-way outcome. A positive
// remainder is owed by the customer, zero settles the job, and a negative
// remainder becomes a refund due.
func (s *Service) Calculate(ctx context.Context, tx *gorm.DB, ticketID snowflake.ID) (domain.Calculation, error) {
	ticket, err := s.repo.FindByID(ctx, tx, ticketID)
	if err != nil {
		return domain.Calculation{}, err
	}
	if ticket == nil {
		return domain.Calculation{}, domain.ErrNotFound
	}

	advance, err := s.approvedSum(ctx, tx, ticketID, paymentdomain.TypeAdvancePayment)
	if err != nil {
		return domain.Calculation{}, err
	}

	totalCost := ticket.TotalServiceCost()
	remaining := totalCost - advance

	calc := domain.Calculation{
		ServiceCharge:  ticket.ServiceCharge,
		DiagnosticFee:  ticket.DiagnosticFee,
		PartsCost:      ticket.PartsCost,
		TotalCost:      totalCost,
		AdvanceApplied: advance,
		ComputedAt:     time.Now().UTC(),
	}
	switch {
	case remaining > 0:
		calc.AmountDue = remaining
	case remaining < 0:
		calc.RefundDue = -remaining
	}

	return calc, nil
}

// Recompute replays the ticket's approved payment set and writes the
// derived advance and refund totals back. The ticket row must already be
// locked by the surrounding transaction.
func (s *Service) Recompute(ctx context.Context, tx *gorm.DB, ticketID snowflake.ID) (*domain.ServiceTicket, error) {
	ticket, err := s.repo.FindByIDForUpdate(ctx, tx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, domain.ErrNotFound
	}

	advance, err := s.approvedSum(ctx, tx, ticketID, paymentdomain.TypeAdvancePayment)
	if err != nil {
		return nil, err
	}
	refund, err := s.approvedSum(ctx, tx, ticketID, paymentdomain.TypeRefund)
	if err != nil {
		return nil, err
	}

	ticket.TotalAdvancePaid = advance
	ticket.TotalRefundGiven = refund
	if err := s.repo.UpdateBalances(ctx, tx, ticket); err != nil {
		return nil, err
	}

	s.metrics.BalanceRecomputed(ctx, string(paymentdomain.TargetServiceTicket))
	s.log.Debug("service ticket balances recomputed",
		zap.String("ticket_id", ticketID.String()),
		zap.Int64("total_advance_paid", advance),
		zap.Int64("total_refund_given", refund),
	)

	return ticket, nil
}

func (s *Service) approvedSum(ctx context.Context, tx *gorm.DB, ticketID snowflake.ID, paymentType paymentdomain.Type) (int64, error) {
	var total int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0)
		 FROM payments
		 WHERE target_type = ? AND target_id = ? AND type = ? AND status = ?`,
		paymentdomain.TargetServiceTicket,
		ticketID,
		paymentType,
		paymentdomain.StatusApproved,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
