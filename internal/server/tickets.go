package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ticketdomain "github.com/novabiz/paydesk/internal/serviceticket/domain"
)

type createTicketRequest struct {
	CustomerName  string `json:"customer_name"`
	DeviceInfo    string `json:"device_info"`
	ServiceCharge int64  `json:"service_charge"`
	DiagnosticFee int64  `json:"diagnostic_fee"`
}

func (s *Server) CreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ticketSvc.Create(c.Request.Context(), ticketdomain.CreateTicketRequest{
		CustomerName:  strings.TrimSpace(req.CustomerName),
		DeviceInfo:    strings.TrimSpace(req.DeviceInfo),
		ServiceCharge: req.ServiceCharge,
		DiagnosticFee: req.DiagnosticFee,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListTickets(c *gin.Context) {
	var query struct {
		Status   string `form:"status"`
		PageSize int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.ticketSvc.List(c.Request.Context(), ticketdomain.ListTicketRequest{
		Status:   strings.TrimSpace(query.Status),
		PageSize: query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTicketByID(c *gin.Context) {
	resp, err := s.ticketSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// QuoteTicket returns the current due/refund breakdown without touching
// the ticket.
func (s *Server) QuoteTicket(c *gin.Context) {
	resp, err := s.ticketSvc.Quote(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CompleteTicket(c *gin.Context) {
	resp, err := s.ticketSvc.Complete(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
