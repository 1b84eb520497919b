package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	invoicedomain "github.com/novabiz/paydesk/internal/invoice/domain"
	paymentdomain "github.com/novabiz/paydesk/internal/payment/domain"
)

// SkippedSale records a held sale the dispatcher left alone and why.
type SkippedSale struct {
	SaleID snowflake.ID `json:"sale_id"`
	Reason string       `json:"reason"`
}

// Report describes what an approval dispatch actually did. Skips are
// benign: a sale completed by an earlier run, or an invoice that already
// exists, is reported rather than treated as a failure.
type Report struct {
	CompletedSaleIDs []snowflake.ID          `json:"completed_sale_ids,omitempty"`
	SkippedSales     []SkippedSale           `json:"skipped_sales,omitempty"`
	Invoices         []invoicedomain.Invoice `json:"invoices,omitempty"`
	PartsCostAdded   int64                   `json:"parts_cost_added"`
}

// Dispatcher runs the side effects bound to a payment decision, inside
// the decision's transaction.
type Dispatcher interface {
	// Dispatch runs the approval side effects for the payment: completing
	// held sales, generating their invoices, and folding parts costs into
	// the owning service ticket. Payments without side effects return an
	// empty report.
	Dispatch(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment) (Report, error)

	// OnDeclined compensates a declined parts payment by canceling its
	// held sales and restoring their stock.
	OnDeclined(ctx context.Context, tx *gorm.DB, payment *paymentdomain.Payment) error
}
