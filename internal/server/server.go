package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/novabiz/paydesk/internal/approval"
	approvaldomain "github.com/novabiz/paydesk/internal/approval/domain"
	"github.com/novabiz/paydesk/internal/config"
	"github.com/novabiz/paydesk/internal/dispatch"
	"github.com/novabiz/paydesk/internal/enrollment"
	enrollmentdomain "github.com/novabiz/paydesk/internal/enrollment/domain"
	"github.com/novabiz/paydesk/internal/invoice"
	invoicedomain "github.com/novabiz/paydesk/internal/invoice/domain"
	obsmiddleware "github.com/novabiz/paydesk/internal/observability/logger"
	"github.com/novabiz/paydesk/internal/payment"
	paymentdomain "github.com/novabiz/paydesk/internal/payment/domain"
	"github.com/novabiz/paydesk/internal/product"
	productdomain "github.com/novabiz/paydesk/internal/product/domain"
	"github.com/novabiz/paydesk/internal/receipt"
	"github.com/novabiz/paydesk/internal/sale"
	saledomain "github.com/novabiz/paydesk/internal/sale/domain"
	"github.com/novabiz/paydesk/internal/serviceticket"
	ticketdomain "github.com/novabiz/paydesk/internal/serviceticket/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	enrollment.Module,
	serviceticket.Module,
	product.Module,
	sale.Module,
	invoice.Module,
	dispatch.Module,
	approval.Module,
	payment.Module,
	receipt.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           cfg.Environment != "production",
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config) *gin.Engine {
	return NewEngine(cfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	paymentSvc    paymentdomain.Service
	approvalSvc   approvaldomain.Service
	enrollmentSvc enrollmentdomain.Service
	ticketSvc     ticketdomain.Service
	saleSvc       saledomain.Service
	invoiceSvc    invoicedomain.Service
	productSvc    productdomain.Service
	receipts      receipt.Builder
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	PaymentSvc    paymentdomain.Service
	ApprovalSvc   approvaldomain.Service
	EnrollmentSvc enrollmentdomain.Service
	TicketSvc     ticketdomain.Service
	SaleSvc       saledomain.Service
	InvoiceSvc    invoicedomain.Service
	ProductSvc    productdomain.Service
	Receipts      receipt.Builder
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		paymentSvc:    p.PaymentSvc,
		approvalSvc:   p.ApprovalSvc,
		enrollmentSvc: p.EnrollmentSvc,
		ticketSvc:     p.TicketSvc,
		saleSvc:       p.SaleSvc,
		invoiceSvc:    p.InvoiceSvc,
		productSvc:    p.ProductSvc,
		receipts:      p.Receipts,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	payments := v1.Group("/payments")
	payments.POST("", s.RecordPayment)
	payments.GET("", s.ListPayments)
	payments.GET("/:id", s.GetPaymentByID)
	payments.PATCH("/:id", s.AmendPayment)
	payments.DELETE("/:id", s.WithdrawPayment)
	payments.POST("/:id/decision", s.DecidePayment)
	payments.GET("/:id/receipt.pdf", s.PaymentReceiptPDF)

	enrollments := v1.Group("/enrollments")
	enrollments.POST("", s.CreateEnrollment)
	enrollments.GET("", s.ListEnrollments)
	enrollments.GET("/:id", s.GetEnrollmentByID)

	tickets := v1.Group("/tickets")
	tickets.POST("", s.CreateTicket)
	tickets.GET("", s.ListTickets)
	tickets.GET("/:id", s.GetTicketByID)
	tickets.GET("/:id/quote", s.QuoteTicket)
	tickets.POST("/:id/complete", s.CompleteTicket)

	sales := v1.Group("/sales")
	sales.POST("", s.CreateSale)
	sales.GET("", s.ListSales)
	sales.GET("/:id", s.GetSaleByID)

	invoices := v1.Group("/invoices")
	invoices.GET("", s.ListInvoices)
	invoices.GET("/:id", s.GetInvoiceByID)

	products := v1.Group("/products")
	products.POST("", s.CreateProduct)
	products.GET("", s.ListProducts)
	products.GET("/:id", s.GetProductByID)
	products.POST("/:id/stock", s.AdjustProductStock)
}
