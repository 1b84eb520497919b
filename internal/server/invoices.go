package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	invoicedomain "github.com/novabiz/paydesk/internal/invoice/domain"
)

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		TargetType string `form:"target_type"`
		PageSize   int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		TargetType: strings.TrimSpace(query.TargetType),
		PageSize:   query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
