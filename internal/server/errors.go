package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	approvaldomain "github.com/novabiz/paydesk/internal/approval/domain"
	enrollmentdomain "github.com/novabiz/paydesk/internal/enrollment/domain"
	invoicedomain "github.com/novabiz/paydesk/internal/invoice/domain"
	paymentdomain "github.com/novabiz/paydesk/internal/payment/domain"
	productdomain "github.com/novabiz/paydesk/internal/product/domain"
	saledomain "github.com/novabiz/paydesk/internal/sale/domain"
	ticketdomain "github.com/novabiz/paydesk/internal/serviceticket/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Detail  map[string]any    `json:"detail,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var exceeds *paymentdomain.ExceedsRemainingError
	if errors.As(err, &exceeds) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "exceeds_remaining",
			Message: "amount exceeds remaining balance",
			Detail:  map[string]any{"remaining": exceeds.Remaining},
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, productdomain.ErrInsufficientStock):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "insufficient_stock",
			Message: "insufficient stock",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidID),
		errors.Is(err, paymentdomain.ErrInvalidTargetType),
		errors.Is(err, paymentdomain.ErrInvalidPaymentType),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, approvaldomain.ErrInvalidAction),
		errors.Is(err, approvaldomain.ErrMessageRequired),
		errors.Is(err, enrollmentdomain.ErrInvalidID),
		errors.Is(err, enrollmentdomain.ErrInvalidStudent),
		errors.Is(err, enrollmentdomain.ErrInvalidCourse),
		errors.Is(err, enrollmentdomain.ErrInvalidTotal),
		errors.Is(err, ticketdomain.ErrInvalidID),
		errors.Is(err, ticketdomain.ErrInvalidCustomer),
		errors.Is(err, ticketdomain.ErrInvalidCharge),
		errors.Is(err, saledomain.ErrInvalidID),
		errors.Is(err, saledomain.ErrNoItems),
		errors.Is(err, saledomain.ErrInvalidItem),
		errors.Is(err, invoicedomain.ErrInvalidID),
		errors.Is(err, productdomain.ErrInvalidID),
		errors.Is(err, productdomain.ErrInvalidName),
		errors.Is(err, productdomain.ErrInvalidSKU),
		errors.Is(err, productdomain.ErrInvalidPrice):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrTargetNotFound),
		errors.Is(err, enrollmentdomain.ErrNotFound),
		errors.Is(err, ticketdomain.ErrNotFound),
		errors.Is(err, saledomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, approvaldomain.ErrAlreadyDecided),
		errors.Is(err, ticketdomain.ErrAlreadyComplete),
		errors.Is(err, saledomain.ErrAlreadyCompleted),
		errors.Is(err, saledomain.ErrSaleCanceled):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, approvaldomain.ErrAlreadyDecided):
		return "payment already decided"
	case errors.Is(err, ticketdomain.ErrAlreadyComplete):
		return "ticket already completed"
	case errors.Is(err, saledomain.ErrAlreadyCompleted):
		return "sale already completed"
	case errors.Is(err, saledomain.ErrSaleCanceled):
		return "sale canceled"
	default:
		return "conflict"
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= 500:
		return "internal", payload.Type
	case status == http.StatusNotFound:
		return "not_found", payload.Type
	case status == http.StatusConflict:
		return "conflict", payload.Type
	default:
		return "client", payload.Type
	}
}
