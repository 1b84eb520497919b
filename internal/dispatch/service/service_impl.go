package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/novabiz/paydesk/internal/dispatch/domain"
	invoicedomain "github.com/novabiz/paydesk/internal/invoice/domain"
	"github.com/novabiz/paydesk/internal/observability/metrics"
	paymentdomain "github.com/novabiz/paydesk/internal/payment/domain"
	saledomain "github.com/novabiz/paydesk/internal/sale/domain"
	ticketdomain "github.com/novabiz/paydesk/internal/serviceticket/domain"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Metrics  *metrics.Metrics `optional:"true"`
	Sales    saledomain.Service
	Invoices invoicedomain.Service
	Tickets  ticketdomain.Repository
}

type Service struct {
	log      *zap.Logger
	metrics  *metrics.Metrics
	sales    saledomain.Service
	invoices invoicedomain.Service
	tickets  ticketdomain.Repository
}

func New(p Params) domain.Dispatcher {
	return &Service{
		log:      p.Log.Named("dispatch.service"),
		metrics:  p.Metrics,
		sales:    p.Sales,
		invoices: p.Invoices,
		tickets:  p.Tickets,
	}
}

// Dispatch folds an approved parts payment into the system: every held
// sale completes and gets invoiced, and the sale totals plus the
// payment's external parts land on the owning ticket's parts cost.
// Benign conditions (a sale already completed, an invoice already
// issued) are skipped and reported; store errors abort the transaction.
func (s *Service) Dispatch(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment) (domain.Report, error) {
	var report domain.Report
	if payment.TargetType != paymentdomain.TargetServiceTicket || payment.Type != paymentdomain.TypePartsPayment {
		return report, nil
	}

	saleIDs, err := payment.DecodePendingSaleIDs()
	if err != nil {
		return report, err
	}
	externalParts, err := payment.DecodeExternalParts()
	if err != nil {
		return report, err
	}
	if len(saleIDs) == 0 && len(externalParts) == 0 {
		return report, nil
	}

	ticket, err := s.tickets.FindByIDForUpdate(ctx, tx, payment.TargetID)
	if err != nil {
		return report, err
	}
	if ticket == nil {
		return report, ticketdomain.ErrNotFound
	}

	for _, saleID := range saleIDs {
		sale, transitioned, err := s.sales.CompleteTx(ctx, tx, saleID)
		switch {
		case errors.Is(err, saledomain.ErrNotFound):
			s.skipSale(ctx, &report, saleID, "sale_not_found")
			continue
		case errors.Is(err, saledomain.ErrSaleCanceled):
			s.skipSale(ctx, &report, saleID, "sale_canceled")
			continue
		case err != nil:
			return report, err
		}

		if transitioned {
			report.CompletedSaleIDs = append(report.CompletedSaleIDs, sale.ID)
			report.PartsCostAdded += sale.TotalAmount
		} else {
			report.SkippedSales = append(report.SkippedSales, domain.SkippedSale{
				SaleID: saleID,
				Reason: "already_completed",
			})
		}

		invoice, created, err := s.invoices.GenerateTx(ctx, tx, invoicedomain.TargetSale, sale.ID, sale.TotalAmount)
		if err != nil {
			return report, err
		}
		if created {
			report.Invoices = append(report.Invoices, invoice)
		}
	}

	for _, part := range externalParts {
		report.PartsCostAdded += part.Cost
	}

	if report.PartsCostAdded != 0 || len(externalParts) > 0 {
		if err := s.foldIntoTicket(ctx, tx, ticket, report.PartsCostAdded, externalParts); err != nil {
			return report, err
		}
	}

	s.log.Info("parts payment dispatched",
		zap.String("payment_id", payment.ID.String()),
		zap.String("ticket_id", ticket.ID.String()),
		zap.Int("completed_sales", len(report.CompletedSaleIDs)),
		zap.Int("skipped_sales", len(report.SkippedSales)),
		zap.Int64("parts_cost_added", report.PartsCostAdded),
	)
	return report, nil
}

// OnDeclined releases the sales held by a declined parts payment,
// restoring their stock. Sales that already completed under another
// payment are left alone.
func (s *Service) OnDeclined(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment) error {
	if payment.TargetType != paymentdomain.TargetServiceTicket || payment.Type != paymentdomain.TypePartsPayment {
		return nil
	}

	saleIDs, err := payment.DecodePendingSaleIDs()
	if err != nil {
		return err
	}

	for _, saleID := range saleIDs {
		_, err := s.sales.CancelTx(ctx, tx, saleID)
		switch {
		case errors.Is(err, saledomain.ErrNotFound), errors.Is(err, saledomain.ErrAlreadyCompleted):
			s.metrics.DispatchFailure(ctx, "cancel_sale")
			s.log.Warn("held sale not released",
				zap.String("payment_id", payment.ID.String()),
				zap.String("sale_id", saleID.String()),
				zap.Error(err),
			)
		case err != nil:
			return err
		}
	}
	return nil
}

func (s *Service) skipSale(ctx context.Context, report *domain.Report, saleID snowflake.ID, reason string) {
	report.SkippedSales = append(report.SkippedSales, domain.SkippedSale{SaleID: saleID, Reason: reason})
	s.metrics.DispatchFailure(ctx, "complete_sale")
}

func (s *Service) foldIntoTicket(ctx context.Context, tx *gorm.DB, ticket *ticketdomain.ServiceTicket, added int64, parts []paymentdomain.ExternalPart) error {
	ticket.PartsCost += added

	if len(parts) > 0 {
		existing, err := ticket.DecodeExternalParts()
		if err != nil {
			return err
		}
		for _, part := range parts {
			existing = append(existing, ticketdomain.ExternalPart{Name: part.Name, Cost: part.Cost})
		}
		encoded, err := json.Marshal(existing)
		if err != nil {
			return err
		}
		ticket.ExternalParts = encoded
	}

	return s.tickets.UpdateCosts(ctx, tx, ticket)
}
