package payment

import (
	"context"
	"errors"
	"time"
)

// ErrOutcomeUnknown marks a call abandoned before the provider answered. The
// provider may still have applied it.
var ErrOutcomeUnknown = errors.New("gateway outcome unknown")

// OutcomeUnknown reports whether err leaves the provider-side effect of a
// call undetermined.
func OutcomeUnknown(err error) bool {
	return errors.Is(err, ErrOutcomeUnknown) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// PaymentGateway is the subset of the payment provider the service talks to.
// Amounts are always in minor units.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	IssueRefund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error)
	FetchRefund(ctx context.Context, refundID string) (*Refund, error)
}

type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

type Refund struct {
	ID        string
	PaymentID string
	Amount    int64
	Status    string
	CreatedAt time.Time
}
