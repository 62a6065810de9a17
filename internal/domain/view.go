package domain

import (
	"paydesk/internal/money"
	"time"
)

// PaymentView is a PaymentRecord projected for listing, with derived fields.
type PaymentView struct {
	ID               string     `json:"_id"`
	OrderID          string     `json:"order_id"`
	PaymentID        string     `json:"payment_id"`
	Signature        string     `json:"signature"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	RefundID         *string    `json:"refund_id"`
	RefundAmount     *float64   `json:"refund_amount"`
	RefundStatus     *string    `json:"refund_status"`
	RefundedAt       *time.Time `json:"refunded_at"`
	CreatedAt        time.Time  `json:"createdAt"`
	NetAmount        float64    `json:"net_amount"`
	IsRefunded       bool       `json:"is_refunded"`
	RefundPercentage string     `json:"refund_percentage"`
}

func NewPaymentView(p PaymentRecord) PaymentView {
	v := PaymentView{
		ID:         p.ID.String(),
		OrderID:    p.OrderID,
		PaymentID:  p.PaymentID,
		Signature:  p.Signature,
		Amount:     p.Amount.InexactFloat64(),
		Currency:   p.Currency,
		Status:     string(p.Status),
		RefundID:   p.RefundID,
		RefundedAt: p.RefundedAt,
		CreatedAt:  p.CreatedAt,
		IsRefunded: p.RefundStatus == RefundProcessed,
	}
	if p.RefundStatus != RefundNone {
		s := string(p.RefundStatus)
		v.RefundStatus = &s
	}

	refunded := money.Zero
	v.RefundPercentage = "0%"
	if p.RefundAmount.Valid {
		refunded = p.RefundAmount.Decimal
		f := refunded.InexactFloat64()
		v.RefundAmount = &f
		v.RefundPercentage = money.Percentage(refunded, p.Amount)
	}
	v.NetAmount = p.Amount.Sub(refunded).InexactFloat64()
	return v
}
