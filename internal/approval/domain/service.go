package domain

import (
	"context"
	"errors"

	dispatchdomain "github.com/novabiz/paydesk/internal/dispatch/domain"
	paymentdomain "github.com/novabiz/paydesk/internal/payment/domain"
)

var (
	ErrInvalidAction   = errors.New("invalid_action")
	ErrMessageRequired = errors.New("decline_message_required")
	ErrAlreadyDecided  = errors.New("payment_already_decided")
)

// Action is a reviewer's verdict on a pending payment.
type Action string

const (
	ActionApprove Action = "approve"
	ActionDecline Action = "decline"
)

func (a Action) Valid() bool {
	return a == ActionApprove || a == ActionDecline
}

// Status returns the terminal payment status the action leads to.
func (a Action) Status() paymentdomain.Status {
	if a == ActionApprove {
		return paymentdomain.StatusApproved
	}
	return paymentdomain.StatusDeclined
}

type DecideRequest struct {
	PaymentID string
	Action    Action
	// Message explains the verdict to the cashier. Required for declines.
	Message string
	ActorID string
}

type DecisionResult struct {
	Payment paymentdomain.Payment `json:"payment"`
	Report  dispatchdomain.Report `json:"report"`
}

// Service decides pending payments. Approval runs the payment's side
// effects and recomputes the target's balances; both happen in the same
// transaction as the status flip, so a failure leaves the payment
// pending and the target untouched.
type Service interface {
	Decide(ctx context.Context, req DecideRequest) (DecisionResult, error)
}
