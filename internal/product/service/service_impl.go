package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/novabiz/paydesk/internal/product/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return domain.Product{}, domain.ErrInvalidSKU
	}
	if req.Price < 0 {
		return domain.Product{}, domain.ErrInvalidPrice
	}

	now := time.Now().UTC()
	product := domain.Product{
		ID:            s.genID.Generate(),
		Name:          name,
		SKU:           sku,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		return domain.Product{}, err
	}

	return product, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Product, error) {
	productID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if item == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListProductRequest) (domain.ListProductResponse, error) {
	items, err := s.repo.List(ctx, s.db, req.PageSize)
	if err != nil {
		return domain.ListProductResponse{}, err
	}

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}
	return domain.ListProductResponse{Products: products}, nil
}

func (s *Service) AdjustStock(ctx context.Context, req domain.AdjustStockRequest) (domain.Product, error) {
	productID, err := snowflake.ParseString(strings.TrimSpace(req.ProductID))
	if err != nil {
		return domain.Product{}, domain.ErrInvalidID
	}

	var adjusted domain.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.AdjustStockTx(ctx, tx, productID, req.Delta)
		if err != nil {
			return err
		}
		adjusted = item
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return adjusted, nil
}

func (s *Service) AdjustStockTx(ctx context.Context, tx *gorm.DB, productID snowflake.ID, delta int64) (domain.Product, error) {
	product, err := s.repo.FindByIDForUpdate(ctx, tx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	next := product.StockQuantity + delta
	if next < 0 {
		return domain.Product{}, domain.ErrInsufficientStock
	}

	product.StockQuantity = next
	if err := s.repo.UpdateStock(ctx, tx, product); err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}
