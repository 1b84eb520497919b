package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/novabiz/paydesk/internal/approval/domain"
	approvalservice "github.com/novabiz/paydesk/internal/approval/service"
	dispatchservice "github.com/novabiz/paydesk/internal/dispatch/service"
	enrollmentdomain "github.com/novabiz/paydesk/internal/enrollment/domain"
	enrollmentrepo "github.com/novabiz/paydesk/internal/enrollment/repository"
	enrollmentservice "github.com/novabiz/paydesk/internal/enrollment/service"
	invoiceservice "github.com/novabiz/paydesk/internal/invoice/service"
	paymentdomain "github.com/novabiz/paydesk/internal/payment/domain"
	paymentrepo "github.com/novabiz/paydesk/internal/payment/repository"
	productdomain "github.com/novabiz/paydesk/internal/product/domain"
	productrepo "github.com/novabiz/paydesk/internal/product/repository"
	productservice "github.com/novabiz/paydesk/internal/product/service"
	saledomain "github.com/novabiz/paydesk/internal/sale/domain"
	salerepo "github.com/novabiz/paydesk/internal/sale/repository"
	saleservice "github.com/novabiz/paydesk/internal/sale/service"
	ticketdomain "github.com/novabiz/paydesk/internal/serviceticket/domain"
	ticketrepo "github.com/novabiz/paydesk/internal/serviceticket/repository"
	ticketservice "github.com/novabiz/paydesk/internal/serviceticket/service"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE enrollments (
			id BIGINT PRIMARY KEY,
			student_name TEXT NOT NULL,
			course_name TEXT NOT NULL,
			batch_code TEXT,
			total_amount BIGINT NOT NULL,
			paid_amount BIGINT NOT NULL DEFAULT 0,
			remaining_amount BIGINT NOT NULL DEFAULT 0,
			admission_fee_amount BIGINT NOT NULL DEFAULT 0,
			registration_fee_amount BIGINT NOT NULL DEFAULT 0,
			exam_fee_amount BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
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
		`CREATE TABLE payments (
			id BIGINT PRIMARY KEY,
			receipt_number TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id BIGINT NOT NULL,
			type TEXT NOT NULL,
			amount BIGINT NOT NULL,
			method TEXT,
			paid_at TIMESTAMP NOT NULL,
			received_by TEXT,
			notes TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			admin_message TEXT,
			approved_by TEXT,
			approved_at TIMESTAMP,
			related_sale_id BIGINT,
			external_parts TEXT,
			pending_sale_ids TEXT,
			calculation TEXT,
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

type approvalFixture struct {
	db          *gorm.DB
	node        *snowflake.Node
	approvals   domain.Service
	enrollments enrollmentdomain.Service
	tickets     ticketdomain.Service
}

func newApprovalFixture(t *testing.T) approvalFixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(7)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	log := zap.NewNop()

	enrollSvc, enrollCalc := enrollmentservice.New(enrollmentservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  enrollmentrepo.Provide(),
	})
	invoices := invoiceservice.New(invoiceservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
	})
	ticketSvc, ticketCalc := ticketservice.New(ticketservice.Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Repo:       ticketrepo.Provide(),
		InvoiceSvc: invoices,
	})
	products := productservice.New(productservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  productrepo.Provide(),
	})
	sales := saleservice.New(saleservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Repo:     salerepo.Provide(),
		Products: products,
		Invoices: invoices,
	})
	dispatcher := dispatchservice.New(dispatchservice.Params{
		Log:      log,
		Sales:    sales,
		Invoices: invoices,
		Tickets:  ticketrepo.Provide(),
	})
	approvals := approvalservice.New(approvalservice.Params{
		DB:          db,
		Log:         log,
		Payments:    paymentrepo.Provide(),
		Dispatcher:  dispatcher,
		Enrollments: enrollmentrepo.Provide(),
		EnrollCalc:  enrollCalc,
		Tickets:     ticketrepo.Provide(),
		TicketCalc:  ticketCalc,
	})
	return approvalFixture{db: db, node: node, approvals: approvals, enrollments: enrollSvc, tickets: ticketSvc}
}

func (f approvalFixture) seedPayment(t *testing.T, target paymentdomain.TargetType, targetID snowflake.ID, paymentType paymentdomain.Type, amount int64) *paymentdomain.Payment {
	t.Helper()

	now := time.Now().UTC()
	payment := &paymentdomain.Payment{
		ID:         f.node.Generate(),
		TargetType: target,
		TargetID:   targetID,
		Type:       paymentType,
		Amount:     amount,
		Status:     paymentdomain.StatusPending,
		PaidAt:     now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	payment.ReceiptNumber = target.ReceiptPrefix() + "-" + payment.ID.String()
	if err := f.db.Create(payment).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}
	return payment
}

func TestDecideValidation(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t)

	_, err := f.approvals.Decide(ctx, domain.DecideRequest{
		PaymentID: f.node.Generate().String(),
		Action:    "escalate",
	})
	if !errors.Is(err, domain.ErrInvalidAction) {
		t.Fatalf("got %v, want ErrInvalidAction", err)
	}

	_, err = f.approvals.Decide(ctx, domain.DecideRequest{
		PaymentID: f.node.Generate().String(),
		Action:    domain.ActionDecline,
	})
	if !errors.Is(err, domain.ErrMessageRequired) {
		t.Fatalf("got %v, want ErrMessageRequired", err)
	}

	_, err = f.approvals.Decide(ctx, domain.DecideRequest{
		PaymentID: f.node.Generate().String(),
		Action:    domain.ActionApprove,
	})
	if !errors.Is(err, paymentdomain.ErrNotFound) {
		t.Fatalf("got %v, want payment ErrNotFound", err)
	}
}

func TestApproveEnrollmentPaymentRecomputesBalance(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t)

	enrollment, err := f.enrollments.Create(ctx, enrollmentdomain.CreateEnrollmentRequest{
		StudentName: "Ayesha",
		CourseName:  "Web Development",
		TotalAmount: 50000,
	})
	if err != nil {
		t.Fatalf("create enrollment: %v", err)
	}

	payment := f.seedPayment(t, paymentdomain.TargetEnrollment, enrollment.ID, paymentdomain.TypeEnrollment, 20000)

	result, err := f.approvals.Decide(ctx, domain.DecideRequest{
		PaymentID: payment.ID.String(),
		Action:    domain.ActionApprove,
		ActorID:   "admin-1",
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if result.Payment.Status != paymentdomain.StatusApproved {
		t.Fatalf("status = %s, want approved", result.Payment.Status)
	}
	if result.Payment.ApprovedAt == nil || result.Payment.ApprovedBy != "admin-1" {
		t.Fatalf("approval audit fields not set: %+v", result.Payment)
	}

	got, err := f.enrollments.GetByID(ctx, enrollment.ID.String())
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if got.PaidAmount != 20000 || got.RemainingAmount != 30000 {
		t.Fatalf("paid = %d remaining = %d, want 20000/30000", got.PaidAmount, got.RemainingAmount)
	}
}

func TestDecideIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t)

	enrollment, err := f.enrollments.Create(ctx, enrollmentdomain.CreateEnrollmentRequest{
		StudentName: "Bilal",
		CourseName:  "Graphics",
		TotalAmount: 30000,
	})
	if err != nil {
		t.Fatalf("create enrollment: %v", err)
	}
	payment := f.seedPayment(t, paymentdomain.TargetEnrollment, enrollment.ID, paymentdomain.TypeEnrollment, 10000)

	if _, err := f.approvals.Decide(ctx, domain.DecideRequest{
		PaymentID: payment.ID.String(),
		Action:    domain.ActionApprove,
	}); err != nil {
		t.Fatalf("first decide: %v", err)
	}

	// Same verdict again is a no-op.
	result, err := f.approvals.Decide(ctx, domain.DecideRequest{
		PaymentID: payment.ID.String(),
		Action:    domain.ActionApprove,
	})
	if err != nil {
		t.Fatalf("repeat decide: %v", err)
	}
	if result.Payment.Status != paymentdomain.StatusApproved {
		t.Fatalf("status = %s, want approved", result.Payment.Status)
	}

	got, err := f.enrollments.GetByID(ctx, enrollment.ID.String())
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if got.PaidAmount != 10000 {
		t.Fatalf("paid = %d, want 10000 after repeat", got.PaidAmount)
	}

	// The opposite verdict is rejected.
	_, err = f.approvals.Decide(ctx, domain.DecideRequest{
		PaymentID: payment.ID.String(),
		Action:    domain.ActionDecline,
		Message:   "wrong amount",
	})
	if !errors.Is(err, domain.ErrAlreadyDecided) {
		t.Fatalf("got %v, want ErrAlreadyDecided", err)
	}
}

func TestApprovePartsPaymentDispatchesHeldSale(t *testing.T) {
	ctx := context.Background()
	f := newApprovalFixture(t)

	ticket, err := f.tickets.Create(ctx, ticketdomain.CreateTicketRequest{
		CustomerName:  "Dewi",
		DeviceInfo:    "Laptop",
		ServiceCharge: 25000,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	products := productservice.New(productservice.Params{
		DB:    f.db,
		Log:   zap.NewNop(),
		GenID: f.node,
		Repo:  productrepo.Provide(),
	})
	product, err := products.Create(ctx, productdomain.CreateProductRequest{
		Name:          "Keyboard module",
		SKU:           "KBD-15",
		Price:         4500,
		StockQuantity: 10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	invoices := invoiceservice.New(invoiceservice.Params{DB: f.db, Log: zap.NewNop(), GenID: f.node})
	sales := saleservice.New(saleservice.Params{
		DB:       f.db,
		Log:      zap.NewNop(),
		GenID:    f.node,
		Repo:     salerepo.Provide(),
		Products: products,
		Invoices: invoices,
	})
	sale, err := sales.Create(ctx, saledomain.CreateSaleRequest{
		TicketID: ticket.ID.String(),
		Items:    []saledomain.CreateSaleItem{{ProductID: product.ID.String(), Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}

	payment := f.seedPayment(t, paymentdomain.TargetServiceTicket, ticket.ID, paymentdomain.TypePartsPayment, 9000)
	payment.PendingSaleIDs = datatypes.JSON(fmt.Sprintf(`["%s"]`, sale.ID))
	if err := f.db.Save(payment).Error; err != nil {
		t.Fatalf("update payment: %v", err)
	}

	result, err := f.approvals.Decide(ctx, domain.DecideRequest{
		PaymentID: payment.ID.String(),
		Action:    domain.ActionApprove,
	})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if len(result.Report.CompletedSaleIDs) != 1 {
		t.Fatalf("completed sales = %v, want one", result.Report.CompletedSaleIDs)
	}

	got, err := f.tickets.GetByID(ctx, ticket.ID.String())
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if got.PartsCost != 9000 {
		t.Fatalf("parts cost = %d, want 9000", got.PartsCost)
	}
}
