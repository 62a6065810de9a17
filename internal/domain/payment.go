package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPaid PaymentStatus = "paid"
)

type RefundStatus string

const (
	RefundNone      RefundStatus = ""
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
	RefundFailed    RefundStatus = "failed"
)

// RefundStatusFromGateway collapses a gateway refund status onto the stored
// set: anything that is not "processed" is still in flight.
func RefundStatusFromGateway(s string) RefundStatus {
	if s == string(RefundProcessed) {
		return RefundProcessed
	}
	return RefundPending
}

// PaymentRecord is written once a payment signature has been verified.
// Amounts are in major currency units.
type PaymentRecord struct {
	ID           uuid.UUID
	OrderID      string
	PaymentID    string
	Signature    string
	Amount       decimal.Decimal
	Currency     string
	Status       PaymentStatus
	RefundID     *string
	RefundAmount decimal.NullDecimal
	RefundStatus RefundStatus
	RefundedAt   *time.Time
	CreatedAt    time.Time
}

// Refundable reports whether another refund may be issued against the record.
func (p *PaymentRecord) Refundable() bool {
	return p.RefundStatus != RefundProcessed
}

// RefundUpdate carries the fields written after a refund is issued.
type RefundUpdate struct {
	RefundID   string
	Amount     decimal.Decimal
	Status     RefundStatus
	RefundedAt time.Time
}

// Refund is the gateway's view of a refund, amounts in major units.
type Refund struct {
	ID        string
	PaymentID string
	Amount    decimal.Decimal
	Status    string
	CreatedAt time.Time
}
