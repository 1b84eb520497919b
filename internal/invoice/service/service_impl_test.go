package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/novabiz/paydesk/internal/invoice/domain"
	invoiceservice "github.com/novabiz/paydesk/internal/invoice/service"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			invoice_number BIGINT NOT NULL,
			target_type TEXT NOT NULL,
			target_id BIGINT NOT NULL,
			total_amount BIGINT NOT NULL,
			issued_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_invoices_number ON invoices(invoice_number)`,
		`CREATE UNIQUE INDEX ux_invoices_target ON invoices(target_type, target_id)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newInvoiceService(t *testing.T, db *gorm.DB) (domain.Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return invoiceservice.New(invoiceservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	}), node
}

func TestGenerateTxAssignsSequentialNumbers(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newInvoiceService(t, db)

	for want := int64(1); want <= 3; want++ {
		var invoice domain.Invoice
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			invoice, _, err = svc.GenerateTx(ctx, tx, domain.TargetSale, node.Generate(), 1000*want)
			return err
		})
		if err != nil {
			t.Fatalf("generate %d: %v", want, err)
		}
		if invoice.InvoiceNumber != want {
			t.Fatalf("number = %d, want %d", invoice.InvoiceNumber, want)
		}
	}
}

func TestGenerateTxIsIdempotentPerTarget(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node := newInvoiceService(t, db)

	targetID := node.Generate()

	var first, second domain.Invoice
	var createdFirst, createdSecond bool
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		first, createdFirst, err = svc.GenerateTx(ctx, tx, domain.TargetServiceTicket, targetID, 5000)
		if err != nil {
			return err
		}
		second, createdSecond, err = svc.GenerateTx(ctx, tx, domain.TargetServiceTicket, targetID, 9999)
		return err
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !createdFirst {
		t.Fatal("first call did not create")
	}
	if createdSecond {
		t.Fatal("second call created a duplicate")
	}
	if second.ID != first.ID {
		t.Fatalf("second returned %s, want %s", second.ID, first.ID)
	}
	if second.TotalAmount != 5000 {
		t.Fatalf("stored total = %d, want the original 5000", second.TotalAmount)
	}
}
