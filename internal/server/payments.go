package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/novabiz/paydesk/internal/payment/domain"
)

type recordPaymentRequest struct {
	TargetType     string                        `json:"target_type"`
	TargetID       string                        `json:"target_id"`
	Type           string                        `json:"type"`
	Amount         int64                         `json:"amount"`
	Method         string                        `json:"method"`
	PaidAt         *time.Time                    `json:"paid_at"`
	ReceivedBy     string                        `json:"received_by"`
	Notes          string                        `json:"notes"`
	RelatedSaleID  string                        `json:"related_sale_id"`
	ExternalParts  []paymentdomain.ExternalPart  `json:"external_parts"`
	PendingSaleIDs []string                      `json:"pending_sale_ids"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.Record(c.Request.Context(), paymentdomain.RecordPaymentRequest{
		TargetType:     strings.TrimSpace(req.TargetType),
		TargetID:       strings.TrimSpace(req.TargetID),
		Type:           strings.TrimSpace(req.Type),
		Amount:         req.Amount,
		Method:         strings.TrimSpace(req.Method),
		PaidAt:         req.PaidAt,
		ReceivedBy:     strings.TrimSpace(req.ReceivedBy),
		Notes:          req.Notes,
		RelatedSaleID:  strings.TrimSpace(req.RelatedSaleID),
		ExternalParts:  req.ExternalParts,
		PendingSaleIDs: req.PendingSaleIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

type amendPaymentRequest struct {
	Amount     *int64     `json:"amount"`
	Type       *string    `json:"type"`
	TargetType *string    `json:"target_type"`
	TargetID   *string    `json:"target_id"`
	Method     *string    `json:"method"`
	PaidAt     *time.Time `json:"paid_at"`
	ReceivedBy *string    `json:"received_by"`
	Notes      *string    `json:"notes"`
}

func (s *Server) AmendPayment(c *gin.Context) {
	var req amendPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.Amend(c.Request.Context(), paymentdomain.AmendPaymentRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		Amount:     req.Amount,
		Type:       req.Type,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Method:     req.Method,
		PaidAt:     req.PaidAt,
		ReceivedBy: req.ReceivedBy,
		Notes:      req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) WithdrawPayment(c *gin.Context) {
	if err := s.paymentSvc.Withdraw(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "withdrawn"})
}

func (s *Server) GetPaymentByID(c *gin.Context) {
	resp, err := s.paymentSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPayments(c *gin.Context) {
	var query struct {
		TargetType string `form:"target_type"`
		TargetID   string `form:"target_id"`
		Status     string `form:"status"`
		Type       string `form:"type"`
		PageToken  string `form:"page_token"`
		PageSize   int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.paymentSvc.List(c.Request.Context(), paymentdomain.ListPaymentRequest{
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		Status:     strings.TrimSpace(query.Status),
		Type:       strings.TrimSpace(query.Type),
		PageToken:  strings.TrimSpace(query.PageToken),
		PageSize:   query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
