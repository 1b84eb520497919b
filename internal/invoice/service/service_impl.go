package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/novabiz/paydesk/internal/invoice/domain"
	"github.com/novabiz/paydesk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("invoice.service"),
		genID:   p.GenID,
		metrics: p.Metrics,
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Invoice{}, domain.ErrInvalidID
	}

	var invoice domain.Invoice
	err = s.db.WithContext(ctx).
		Where("id = ?", invoiceID).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Invoice{}, domain.ErrNotFound
		}
		return domain.Invoice{}, err
	}
	return invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	stmt := s.db.WithContext(ctx).Model(&domain.Invoice{})
	if target := strings.TrimSpace(req.TargetType); target != "" {
		stmt = stmt.Where("target_type = ?", target)
	}
	limit := req.PageSize
	if limit <= 0 {
		limit = 50
	}

	var invoices []domain.Invoice
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}
	return domain.ListInvoiceResponse{Invoices: invoices}, nil
}

func (s *Service) GenerateTx(ctx context.Context, tx *gorm.DB, target domain.TargetType, targetID snowflake.ID, total int64) (domain.Invoice, bool, error) {
	existing, err := s.findByTarget(ctx, tx, target, targetID)
	if err != nil {
		return domain.Invoice{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	number, err := s.nextInvoiceNumber(ctx, tx)
	if err != nil {
		return domain.Invoice{}, false, err
	}

	now := time.Now().UTC()
	invoice := domain.Invoice{
		ID:            s.genID.Generate(),
		InvoiceNumber: number,
		TargetType:    target,
		TargetID:      targetID,
		TotalAmount:   total,
		IssuedAt:      now,
		CreatedAt:     now,
	}

	// The unique (target_type, target_id) index backs the check-then-create:
	// a concurrent writer that slipped past the lookup lands on the conflict
	// clause instead of failing.
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&invoice)
	if result.Error != nil {
		return domain.Invoice{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		existing, err := s.findByTarget(ctx, tx, target, targetID)
		if err != nil {
			return domain.Invoice{}, false, err
		}
		if existing != nil {
			return *existing, false, nil
		}
		return domain.Invoice{}, false, gorm.ErrRecordNotFound
	}

	s.metrics.InvoiceGenerated(ctx, string(target))
	s.log.Info("invoice generated",
		zap.Int64("invoice_number", number),
		zap.String("target_type", string(target)),
		zap.String("target_id", targetID.String()),
	)

	return invoice, true, nil
}

func (s *Service) findByTarget(ctx context.Context, tx *gorm.DB, target domain.TargetType, targetID snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := tx.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", target, targetID).
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) nextInvoiceNumber(ctx context.Context, tx *gorm.DB) (int64, error) {
	var next int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(invoice_number), 0) + 1 FROM invoices`,
	).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}
