package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	enrollmentdomain "github.com/novabiz/paydesk/internal/enrollment/domain"
	productdomain "github.com/novabiz/paydesk/internal/product/domain"
	ticketdomain "github.com/novabiz/paydesk/internal/serviceticket/domain"
)

// EnsureDemoData seeds a handful of products, one enrollment and one
// service ticket so a fresh install has something to record payments
// against. Seeding is idempotent; existing rows are left alone.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProductsTx(ctx, tx, node); err != nil {
			return err
		}
		if err := ensureEnrollmentTx(ctx, tx, node); err != nil {
			return err
		}
		return ensureTicketTx(ctx, tx, node)
	})
}

func ensureProductsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	demo := []productdomain.Product{
		{Name: "Replacement Screen 6.1\"", SKU: "SCR-61", Price: 450000, StockQuantity: 10},
		{Name: "Battery Pack 4000mAh", SKU: "BAT-4000", Price: 180000, StockQuantity: 25},
		{Name: "Charging Port Flex", SKU: "CHG-FLX", Price: 95000, StockQuantity: 40},
	}

	now := time.Now().UTC()
	for _, product := range demo {
		var count int64
		if err := tx.WithContext(ctx).
			Model(&productdomain.Product{}).
			Where("sku = ?", product.SKU).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		product.ID = node.Generate()
		product.CreatedAt = now
		product.UpdatedAt = now
		if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
			return err
		}
	}
	return nil
}

func ensureEnrollmentTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&enrollmentdomain.Enrollment{}).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	enrollment := enrollmentdomain.Enrollment{
		ID:              node.Generate(),
		StudentName:     "Demo Student",
		CourseName:      "Hardware Repair Fundamentals",
		BatchCode:       "HRF-01",
		TotalAmount:     5000000,
		RemainingAmount: 5000000,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return tx.WithContext(ctx).Create(&enrollment).Error
}

func ensureTicketTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&ticketdomain.ServiceTicket{}).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	id := node.Generate()
	ticket := ticketdomain.ServiceTicket{
		ID:            id,
		TicketNumber:  "ST-" + id.String(),
		CustomerName:  "Demo Customer",
		DeviceInfo:    "Laptop, no power",
		Status:        ticketdomain.StatusReceived,
		ServiceCharge: 300000,
		DiagnosticFee: 50000,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return tx.WithContext(ctx).Create(&ticket).Error
}
