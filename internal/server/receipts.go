package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/novabiz/paydesk/internal/payment/domain"
	"github.com/novabiz/paydesk/internal/receipt"
	ticketdomain "github.com/novabiz/paydesk/internal/serviceticket/domain"
)

// PaymentReceiptPDF renders the voucher for an approved payment. Pending
// and declined vouchers have nothing to hand to the payer.
func (s *Server) PaymentReceiptPDF(c *gin.Context) {
	payment, err := s.paymentSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if payment.Status != paymentdomain.StatusApproved {
		AbortWithError(c, ErrConflict)
		return
	}

	data := receipt.Data{
		ReceiptNumber: payment.ReceiptNumber,
		PaidAt:        payment.PaidAt.Format("2006-01-02"),
		PaymentType:   string(payment.Type),
		Method:        payment.Method,
		Amount:        payment.Amount,
		ReceivedBy:    payment.ReceivedBy,
		Notes:         payment.Notes,
	}

	switch payment.TargetType {
	case paymentdomain.TargetEnrollment:
		enrollment, err := s.enrollmentSvc.GetByID(c.Request.Context(), payment.TargetID.String())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		data.PayerName = enrollment.StudentName
		data.TargetLabel = enrollment.CourseName
		if enrollment.BatchCode != "" {
			data.TargetLabel += " (" + enrollment.BatchCode + ")"
		}
	case paymentdomain.TargetServiceTicket:
		ticket, err := s.ticketSvc.GetByID(c.Request.Context(), payment.TargetID.String())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		data.PayerName = ticket.CustomerName
		data.TargetLabel = ticket.TicketNumber + " " + ticket.DeviceInfo
	}

	if len(payment.Calculation) > 0 {
		var calc ticketdomain.Calculation
		if err := json.Unmarshal(payment.Calculation, &calc); err == nil {
			data.Calculation = &calc
		}
	}

	doc, err := s.receipts.Build(c.Request.Context(), data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `inline; filename="`+payment.ReceiptNumber+`.pdf"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, doc)
}
