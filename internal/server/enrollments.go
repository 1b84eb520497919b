package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	enrollmentdomain "github.com/novabiz/paydesk/internal/enrollment/domain"
)

type createEnrollmentRequest struct {
	StudentName string `json:"student_name"`
	CourseName  string `json:"course_name"`
	BatchCode   string `json:"batch_code"`
	TotalAmount int64  `json:"total_amount"`
}

func (s *Server) CreateEnrollment(c *gin.Context) {
	var req createEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.enrollmentSvc.Create(c.Request.Context(), enrollmentdomain.CreateEnrollmentRequest{
		StudentName: strings.TrimSpace(req.StudentName),
		CourseName:  strings.TrimSpace(req.CourseName),
		BatchCode:   strings.TrimSpace(req.BatchCode),
		TotalAmount: req.TotalAmount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListEnrollments(c *gin.Context) {
	var query struct {
		CourseName string `form:"course_name"`
		PageSize   int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.enrollmentSvc.List(c.Request.Context(), enrollmentdomain.ListEnrollmentRequest{
		CourseName: strings.TrimSpace(query.CourseName),
		PageSize:   query.PageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEnrollmentByID(c *gin.Context) {
	resp, err := s.enrollmentSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
