package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	productdomain "github.com/novabiz/paydesk/internal/product/domain"
)

type createProductRequest struct {
	Name          string `json:"name"`
	SKU           string `json:"sku"`
	Price         int64  `json:"price"`
	StockQuantity int64  `json:"stock_quantity"`
}

func (s *Server) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.Create(c.Request.Context(), productdomain.CreateProductRequest{
		Name:          strings.TrimSpace(req.Name),
		SKU:           strings.TrimSpace(req.SKU),
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProducts(c *gin.Context) {
	var query struct {
		PageSize int `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.List(c.Request.Context(), productdomain.ListProductRequest{
		PageSize: query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProductByID(c *gin.Context) {
	resp, err := s.productSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type adjustStockRequest struct {
	Delta int64 `json:"delta"`
}

func (s *Server) AdjustProductStock(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.productSvc.AdjustStock(c.Request.Context(), productdomain.AdjustStockRequest{
		ProductID: strings.TrimSpace(c.Param("id")),
		Delta:     req.Delta,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
