package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/novabiz/paydesk/internal/dispatch/domain"
	dispatchservice "github.com/novabiz/paydesk/internal/dispatch/service"
	invoicedomain "github.com/novabiz/paydesk/internal/invoice/domain"
	invoiceservice "github.com/novabiz/paydesk/internal/invoice/service"
	paymentdomain "github.com/novabiz/paydesk/internal/payment/domain"
	productdomain "github.com/novabiz/paydesk/internal/product/domain"
	productrepo "github.com/novabiz/paydesk/internal/product/repository"
	productservice "github.com/novabiz/paydesk/internal/product/service"
	saledomain "github.com/novabiz/paydesk/internal/sale/domain"
	salerepo "github.com/novabiz/paydesk/internal/sale/repository"
	saleservice "github.com/novabiz/paydesk/internal/sale/service"
	ticketdomain "github.com/novabiz/paydesk/internal/serviceticket/domain"
	ticketrepo "github.com/novabiz/paydesk/internal/serviceticket/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE service_tickets (
			id BIGINT PRIMARY KEY,
			ticket_number TEXT NOT NULL,
			customer_name TEXT NOT NULL,
			device_info TEXT,
			status TEXT NOT NULL DEFAULT 'received',
			service_charge BIGINT NOT NULL DEFAULT 0,
			diagnostic_fee BIGINT NOT NULL DEFAULT 0,
			parts_cost BIGINT NOT NULL DEFAULT 0,
			total_advance_paid BIGINT NOT NULL DEFAULT 0,
			total_refund_given BIGINT NOT NULL DEFAULT 0,
			external_parts TEXT,
			completed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE products (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			sku TEXT NOT NULL,
			price BIGINT NOT NULL,
			stock_quantity BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE sales (
			id BIGINT PRIMARY KEY,
			status TEXT NOT NULL,
			ticket_id BIGINT,
			customer_name TEXT,
			total_amount BIGINT NOT NULL DEFAULT 0,
			completed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE sale_items (
			id BIGINT PRIMARY KEY,
			sale_id BIGINT NOT NULL,
			product_id BIGINT NOT NULL,
			quantity BIGINT NOT NULL,
			unit_price BIGINT NOT NULL,
			amount BIGINT NOT NULL
		)`,
		`CREATE TABLE invoices (
			id BIGINT PRIMARY KEY,
			invoice_number BIGINT NOT NULL,
			target_type TEXT NOT NULL,
			target_id BIGINT NOT NULL,
			total_amount BIGINT NOT NULL,
			issued_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_invoices_target ON invoices(target_type, target_id)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

type dispatchFixture struct {
	db         *gorm.DB
	node       *snowflake.Node
	dispatcher domain.Dispatcher
	sales      saledomain.Service
	products   productdomain.Service
}

func newDispatchFixture(t *testing.T) dispatchFixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(6)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	products := productservice.New(productservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  productrepo.Provide(),
	})
	invoices := invoiceservice.New(invoiceservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})
	sales := saleservice.New(saleservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     salerepo.Provide(),
		Products: products,
		Invoices: invoices,
	})
	dispatcher := dispatchservice.New(dispatchservice.Params{
		Log:      zap.NewNop(),
		Sales:    sales,
		Invoices: invoices,
		Tickets:  ticketrepo.Provide(),
	})
	return dispatchFixture{db: db, node: node, dispatcher: dispatcher, sales: sales, products: products}
}

func (f dispatchFixture) createTicket(t *testing.T) ticketdomain.ServiceTicket {
	t.Helper()

	now := time.Now()
	ticket := ticketdomain.ServiceTicket{
		ID:            f.node.Generate(),
		TicketNumber:  fmt.Sprintf("ST-%d", f.node.Generate()),
		CustomerName:  "Dewi",
		Status:        ticketdomain.StatusInProgress,
		ServiceCharge: 25000,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.db.Create(&ticket).Error; err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func (f dispatchFixture) createHeldSale(t *testing.T, ticketID snowflake.ID, price, stock, qty int64) *saledomain.Sale {
	t.Helper()

	product, err := f.products.Create(context.Background(), productdomain.CreateProductRequest{
		Name:          "Replacement part",
		SKU:           fmt.Sprintf("PRT-%d", f.node.Generate()),
		Price:         price,
		StockQuantity: stock,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	sale, err := f.sales.Create(context.Background(), saledomain.CreateSaleRequest{
		TicketID: ticketID.String(),
		Items:    []saledomain.CreateSaleItem{{ProductID: product.ID.String(), Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	return sale
}

func partsPayment(t *testing.T, node *snowflake.Node, ticketID snowflake.ID, saleIDs []snowflake.ID, parts []paymentdomain.ExternalPart) *paymentdomain.Payment {
	t.Helper()

	payment := &paymentdomain.Payment{
		ID:         node.Generate(),
		TargetType: paymentdomain.TargetServiceTicket,
		TargetID:   ticketID,
		Type:       paymentdomain.TypePartsPayment,
		Status:     paymentdomain.StatusApproved,
		PaidAt:     time.Now(),
	}
	if len(saleIDs) > 0 {
		raw := make([]string, 0, len(saleIDs))
		for _, id := range saleIDs {
			raw = append(raw, id.String())
		}
		encoded, err := json.Marshal(raw)
		if err != nil {
			t.Fatalf("encode sale ids: %v", err)
		}
		payment.PendingSaleIDs = datatypes.JSON(encoded)
	}
	if len(parts) > 0 {
		encoded, err := json.Marshal(parts)
		if err != nil {
			t.Fatalf("encode parts: %v", err)
		}
		payment.ExternalParts = datatypes.JSON(encoded)
	}
	return payment
}

func TestDispatchCompletesSalesAndFoldsCosts(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(t)
	ticket := f.createTicket(t)
	sale := f.createHeldSale(t, ticket.ID, 4500, 10, 2)

	payment := partsPayment(t, f.node, ticket.ID, []snowflake.ID{sale.ID},
		[]paymentdomain.ExternalPart{{Name: "LCD flex", Cost: 1500}})

	var report domain.Report
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		report, err = f.dispatcher.Dispatch(ctx, tx, payment)
		return err
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(report.CompletedSaleIDs) != 1 || report.CompletedSaleIDs[0] != sale.ID {
		t.Fatalf("completed sales = %v, want [%s]", report.CompletedSaleIDs, sale.ID)
	}
	if report.PartsCostAdded != 10500 {
		t.Fatalf("parts cost added = %d, want 10500", report.PartsCostAdded)
	}
	if len(report.Invoices) != 1 {
		t.Fatalf("invoices = %d, want 1", len(report.Invoices))
	}

	got, err := f.sales.GetByID(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if got.Status != saledomain.StatusCompleted {
		t.Fatalf("sale status = %s, want completed", got.Status)
	}

	var reloaded ticketdomain.ServiceTicket
	if err := f.db.First(&reloaded, "id = ?", ticket.ID).Error; err != nil {
		t.Fatalf("reload ticket: %v", err)
	}
	if reloaded.PartsCost != 10500 {
		t.Fatalf("ticket parts cost = %d, want 10500", reloaded.PartsCost)
	}
	folded, err := reloaded.DecodeExternalParts()
	if err != nil {
		t.Fatalf("decode parts: %v", err)
	}
	if len(folded) != 1 || folded[0].Name != "LCD flex" || folded[0].Cost != 1500 {
		t.Fatalf("external parts = %+v", folded)
	}
}

func TestDispatchSkipsAlreadyCompletedSale(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(t)
	ticket := f.createTicket(t)
	sale := f.createHeldSale(t, ticket.ID, 4500, 10, 1)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		_, _, err := f.sales.CompleteTx(ctx, tx, sale.ID)
		return err
	})
	if err != nil {
		t.Fatalf("pre-complete sale: %v", err)
	}

	payment := partsPayment(t, f.node, ticket.ID, []snowflake.ID{sale.ID}, nil)

	var report domain.Report
	err = f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		report, err = f.dispatcher.Dispatch(ctx, tx, payment)
		return err
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(report.CompletedSaleIDs) != 0 {
		t.Fatalf("completed sales = %v, want none", report.CompletedSaleIDs)
	}
	if len(report.SkippedSales) != 1 || report.SkippedSales[0].Reason != "already_completed" {
		t.Fatalf("skipped = %+v, want one already_completed", report.SkippedSales)
	}
	if report.PartsCostAdded != 0 {
		t.Fatalf("parts cost added = %d, want 0", report.PartsCostAdded)
	}

	var reloaded ticketdomain.ServiceTicket
	if err := f.db.First(&reloaded, "id = ?", ticket.ID).Error; err != nil {
		t.Fatalf("reload ticket: %v", err)
	}
	if reloaded.PartsCost != 0 {
		t.Fatalf("ticket parts cost = %d, want 0", reloaded.PartsCost)
	}
}

func TestDispatchIgnoresNonPartsPayments(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(t)
	ticket := f.createTicket(t)

	payment := &paymentdomain.Payment{
		ID:         f.node.Generate(),
		TargetType: paymentdomain.TargetServiceTicket,
		TargetID:   ticket.ID,
		Type:       paymentdomain.TypeAdvancePayment,
		Status:     paymentdomain.StatusApproved,
		Amount:     10000,
	}

	var report domain.Report
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		report, err = f.dispatcher.Dispatch(ctx, tx, payment)
		return err
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(report.CompletedSaleIDs) != 0 || report.PartsCostAdded != 0 {
		t.Fatalf("report = %+v, want empty", report)
	}
}

func TestOnDeclinedCancelsHeldSales(t *testing.T) {
	ctx := context.Background()
	f := newDispatchFixture(t)
	ticket := f.createTicket(t)
	sale := f.createHeldSale(t, ticket.ID, 1800, 5, 3)

	payment := partsPayment(t, f.node, ticket.ID, []snowflake.ID{sale.ID}, nil)
	payment.Status = paymentdomain.StatusDeclined

	err := f.db.Transaction(func(tx *gorm.DB) error {
		return f.dispatcher.OnDeclined(ctx, tx, payment)
	})
	if err != nil {
		t.Fatalf("on declined: %v", err)
	}

	got, err := f.sales.GetByID(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if got.Status != saledomain.StatusCanceled {
		t.Fatalf("sale status = %s, want canceled", got.Status)
	}

	product, err := f.products.GetByID(ctx, got.Items[0].ProductID.String())
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.StockQuantity != 5 {
		t.Fatalf("stock = %d, want 5 restored", product.StockQuantity)
	}

	var invoices int64
	if err := f.db.Model(&invoicedomain.Invoice{}).Count(&invoices).Error; err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if invoices != 0 {
		t.Fatalf("invoices = %d, want 0", invoices)
	}
}
