package receipt

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"go.uber.org/zap"

	ticketdomain "github.com/novabiz/paydesk/internal/serviceticket/domain"
)

// Line is one labeled amount row on the voucher.
type Line struct {
	Label  string
	Amount int64
}

// Data carries everything the rendered voucher shows. The caller
// assembles it from the payment and its target.
type Data struct {
	ReceiptNumber string
	PaidAt        string
	PaymentType   string
	Method        string
	Amount        int64
	ReceivedBy    string
	Notes         string

	// PayerName and TargetLabel describe who paid and what for, e.g. a
	// student and their course or a customer and their repair job.
	PayerName   string
	TargetLabel string

	// Calculation, when present, prints the due/refund breakdown the
	// voucher was recorded against.
	Calculation *ticketdomain.Calculation
}

// Builder renders approved payment vouchers as PDF.
type Builder interface {
	Build(ctx context.Context, data Data) (io.Reader, error)
}

type builder struct {
	log *zap.Logger
}

func New(log *zap.Logger) Builder {
	return &builder{log: log.Named("receipt.builder")}
}

func (b *builder) Build(ctx context.Context, data Data) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(25,
		text.NewCol(8, "Payment Receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.ReceiptNumber, props.Text{
			Size:  12,
			Align: align.Right,
			Top:   5,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Received from: "+data.PayerName, props.Text{Top: 0}),
			text.New("For: "+data.TargetLabel, props.Text{Top: 5}),
			text.New("Date paid: "+data.PaidAt, props.Text{Top: 10}),
		),
		col.New(6).Add(
			text.New("Payment type: "+data.PaymentType, props.Text{Top: 0}),
			text.New("Method: "+data.Method, props.Text{Top: 5}),
			text.New("Received by: "+data.ReceivedBy, props.Text{Top: 10}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, formatAmount(data.Amount)+" paid on "+data.PaidAt, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	if calc := data.Calculation; calc != nil {
		m.AddRow(10,
			text.NewCol(8, "Breakdown", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)
		lines := []Line{
			{Label: "Service charge", Amount: calc.ServiceCharge},
			{Label: "Diagnostic fee", Amount: calc.DiagnosticFee},
			{Label: "Parts cost", Amount: calc.PartsCost},
			{Label: "Total cost", Amount: calc.TotalCost},
			{Label: "Advance applied", Amount: calc.AdvanceApplied},
		}
		if calc.RefundDue > 0 {
			lines = append(lines, Line{Label: "Refund due", Amount: calc.RefundDue})
		} else {
			lines = append(lines, Line{Label: "Amount due", Amount: calc.AmountDue})
		}
		for _, line := range lines {
			m.AddRow(8,
				text.NewCol(8, line.Label, props.Text{Size: 9}),
				text.NewCol(4, formatAmount(line.Amount), props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	if data.Notes != "" {
		m.AddRow(15,
			text.NewCol(12, "Notes: "+data.Notes, props.Text{Size: 9, Top: 3}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	b.log.Debug("receipt rendered", zap.String("receipt_number", data.ReceiptNumber))
	return bytes.NewReader(doc.GetBytes()), nil
}

func formatAmount(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
