package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	invoicedomain "github.com/novabiz/paydesk/internal/invoice/domain"
	productdomain "github.com/novabiz/paydesk/internal/product/domain"
	"github.com/novabiz/paydesk/internal/sale/domain"
	"github.com/novabiz/paydesk/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Products productdomain.Service
	Invoices invoicedomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	products productdomain.Service
	invoices invoicedomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("sale.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		products: p.Products,
		invoices: p.Invoices,
	}
}

// Create reserves stock for every item up front. A sale tied to a
// service ticket stays pending until the matching parts payment is
// approved; a walk-in sale completes and is invoiced immediately.
func (s *Service) Create(ctx context.Context, req domain.CreateSaleRequest) (*domain.Sale, error) {
	if len(req.Items) == 0 {
		return nil, domain.ErrNoItems
	}

	var ticketID *snowflake.ID
	if strings.TrimSpace(req.TicketID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.TicketID))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		ticketID = &id
	}

	now := time.Now().UTC()
	sale := domain.Sale{
		ID:           s.genID.Generate(),
		Status:       domain.StatusPending,
		TicketID:     ticketID,
		CustomerName: strings.TrimSpace(req.CustomerName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range req.Items {
			if item.Quantity <= 0 {
				return domain.ErrInvalidItem
			}
			productID, err := snowflake.ParseString(strings.TrimSpace(item.ProductID))
			if err != nil {
				return domain.ErrInvalidItem
			}

			product, err := s.products.AdjustStockTx(ctx, tx, productID, -item.Quantity)
			if err != nil {
				return err
			}

			amount := product.Price * item.Quantity
			sale.Items = append(sale.Items, domain.SaleItem{
				ID:        s.genID.Generate(),
				SaleID:    sale.ID,
				ProductID: productID,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
				Amount:    amount,
			})
			sale.TotalAmount += amount
		}

		if ticketID == nil {
			sale.Status = domain.StatusCompleted
			sale.CompletedAt = &now
		}

		if err := s.repo.Insert(ctx, tx, &sale); err != nil {
			return err
		}

		if sale.Status == domain.StatusCompleted {
			if _, _, err := s.invoices.GenerateTx(ctx, tx, invoicedomain.TargetSale, sale.ID, sale.TotalAmount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sale created",
		zap.String("sale_id", sale.ID.String()),
		zap.String("status", string(sale.Status)),
		zap.Int64("total_amount", sale.TotalAmount),
	)
	return &sale, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Sale, error) {
	sale, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}
	return sale, nil
}

func (s *Service) List(ctx context.Context, req domain.ListSaleRequest) (domain.ListSaleResponse, error) {
	filter := domain.ListSaleFilter{Status: domain.Status(req.Status)}
	if strings.TrimSpace(req.TicketID) != "" {
		id, err := snowflake.ParseString(strings.TrimSpace(req.TicketID))
		if err != nil {
			return domain.ListSaleResponse{}, domain.ErrInvalidID
		}
		filter.TicketID = &id
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListSaleResponse{}, err
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 50
	}
	pageInfo := pagination.BuildCursorPageInfo(items, limit, func(sale *domain.Sale) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        sale.ID.String(),
			CreatedAt: sale.CreatedAt.Format(time.RFC3339Nano),
		})
		return token
	})

	if len(items) > limit {
		items = items[:limit]
	}
	sales := make([]domain.Sale, 0, len(items))
	for _, item := range items {
		sales = append(sales, *item)
	}
	return domain.ListSaleResponse{PageInfo: *pageInfo, Sales: sales}, nil
}

func (s *Service) CompleteTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Sale, bool, error) {
	sale, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}
	if sale == nil {
		return nil, false, domain.ErrNotFound
	}

	switch sale.Status {
	case domain.StatusCompleted:
		return sale, false, nil
	case domain.StatusCanceled:
		return nil, false, domain.ErrSaleCanceled
	}

	now := time.Now().UTC()
	sale.Status = domain.StatusCompleted
	sale.CompletedAt = &now
	sale.UpdatedAt = now
	if err := s.repo.UpdateStatus(ctx, tx, sale); err != nil {
		return nil, false, err
	}
	return sale, true, nil
}

func (s *Service) CancelTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Sale, error) {
	sale, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrNotFound
	}

	switch sale.Status {
	case domain.StatusCanceled:
		return sale, nil
	case domain.StatusCompleted:
		return nil, domain.ErrAlreadyCompleted
	}

	for _, item := range sale.Items {
		if _, err := s.products.AdjustStockTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	sale.Status = domain.StatusCanceled
	sale.UpdatedAt = now
	if err := s.repo.UpdateStatus(ctx, tx, sale); err != nil {
		return nil, err
	}

	s.log.Info("held sale canceled, stock restored",
		zap.String("sale_id", sale.ID.String()),
	)
	return sale, nil
}
