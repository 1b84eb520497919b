package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	saledomain "github.com/novabiz/paydesk/internal/sale/domain"
)

type createSaleItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type createSaleRequest struct {
	CustomerName string                  `json:"customer_name"`
	TicketID     string                  `json:"ticket_id"`
	Items        []createSaleItemRequest `json:"items"`
}

func (s *Server) CreateSale(c *gin.Context) {
	var req createSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items := make([]saledomain.CreateSaleItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, saledomain.CreateSaleItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  item.Quantity,
		})
	}

	resp, err := s.saleSvc.Create(c.Request.Context(), saledomain.CreateSaleRequest{
		CustomerName: strings.TrimSpace(req.CustomerName),
		TicketID:     strings.TrimSpace(req.TicketID),
		Items:        items,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListSales(c *gin.Context) {
	var query struct {
		Status    string `form:"status"`
		TicketID  string `form:"ticket_id"`
		PageToken string `form:"page_token"`
		PageSize  int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.saleSvc.List(c.Request.Context(), saledomain.ListSaleRequest{
		Status:    strings.TrimSpace(query.Status),
		TicketID:  strings.TrimSpace(query.TicketID),
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSaleByID(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	resp, err := s.saleSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
