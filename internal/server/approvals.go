package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	approvaldomain "github.com/novabiz/paydesk/internal/approval/domain"
)

type decidePaymentRequest struct {
	Action  string `json:"action"`
	Message string `json:"message"`
	ActorID string `json:"actor_id"`
}

func (s *Server) DecidePayment(c *gin.Context) {
	var req decidePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.approvalSvc.Decide(c.Request.Context(), approvaldomain.DecideRequest{
		PaymentID: strings.TrimSpace(c.Param("id")),
		Action:    approvaldomain.Action(strings.TrimSpace(req.Action)),
		Message:   req.Message,
		ActorID:   strings.TrimSpace(req.ActorID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
