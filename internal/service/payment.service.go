package service

import (
	"context"
	"errors"
	"fmt"
	"paydesk/internal/domain"
	"paydesk/internal/infrastructure/payment"
	"paydesk/internal/money"
	"paydesk/internal/repo"
	"paydesk/internal/signature"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type PaymentService interface {
	// CreateOrder opens a gateway order for amount, given in major units.
	CreateOrder(ctx context.Context, amount decimal.NullDecimal) (*domain.Order, error)
	VerifyPayment(ctx context.Context, orderID, paymentID, sig string) error
	// Refund refunds amount (major units) or, when absent, the full payment.
	Refund(ctx context.Context, paymentID string, amount decimal.NullDecimal, reason string) (*RefundResult, error)
	FetchRefund(ctx context.Context, refundID string) (*domain.Refund, error)
	ListPayments(ctx context.Context) ([]domain.PaymentView, error)
	// HandleWebhook applies a gateway notification. body must be the raw
	// request bytes; sig is the signature header value.
	HandleWebhook(ctx context.Context, body []byte, sig string) error
}

type PaymentConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	// RefundTimeout bounds one shared refund attempt, which outlives the
	// request that started it. Defaults to defaultRefundTimeout.
	RefundTimeout time.Duration
}

const defaultRefundTimeout = 30 * time.Second

type RefundResult struct {
	ID        string
	Amount    decimal.Decimal
	Status    string
	PaymentID string
}

type paymentService struct {
	payments repo.PaymentRepo
	gateway  payment.PaymentGateway
	cfg      PaymentConfig
	log      logrus.FieldLogger

	// refunds collapses identical concurrent refund requests into one
	// gateway call.
	refunds singleflight.Group
}

func NewPaymentService(
	payments repo.PaymentRepo,
	gateway payment.PaymentGateway,
	cfg PaymentConfig,
	log logrus.FieldLogger,
) PaymentService {
	if cfg.RefundTimeout <= 0 {
		cfg.RefundTimeout = defaultRefundTimeout
	}
	return &paymentService{
		payments: payments,
		gateway:  gateway,
		cfg:      cfg,
		log:      log,
	}
}

func (s *paymentService) CreateOrder(ctx context.Context, amount decimal.NullDecimal) (*domain.Order, error) {
	if !amount.Valid {
		return nil, domain.ValidationError("Amount is required")
	}
	if err := checkAmount(amount.Decimal, "Amount"); err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("receipt_%d", time.Now().UnixMilli())
	order, err := s.gateway.CreateOrder(ctx, money.ToMinor(amount.Decimal), domain.CurrencyINR, receipt)
	if err != nil {
		msg := "create order failed"
		if payment.OutcomeUnknown(err) {
			msg = "create order outcome unknown"
		}
		s.log.WithError(err).WithField("receipt", receipt).Error(msg)
		return nil, domain.GatewayError(err)
	}

	return &domain.Order{
		ID:       order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Receipt:  order.Receipt,
		KeyID:    s.cfg.KeyID,
	}, nil
}

func (s *paymentService) VerifyPayment(ctx context.Context, orderID, paymentID, sig string) error {
	if orderID == "" || paymentID == "" || sig == "" {
		return domain.ValidationError("order_id, payment_id and signature are required")
	}

	fields := logrus.Fields{"order_id": orderID, "payment_id": paymentID}
	if !signature.VerifyPayment(s.cfg.KeySecret, orderID, paymentID, sig) {
		s.log.WithFields(fields).Warn("payment signature mismatch")
		return domain.SignatureError("Invalid signature")
	}

	existing, err := s.payments.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return domain.PersistenceError("could not load payment", err)
	}
	if existing != nil {
		return nil
	}

	order, err := s.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		s.log.WithError(err).WithFields(fields).Error("fetch order failed")
		return domain.GatewayError(err)
	}

	currency := order.Currency
	if currency == "" {
		currency = domain.CurrencyINR
	}
	record := &domain.PaymentRecord{
		ID:        uuid.New(),
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: sig,
		Amount:    money.FromMinor(order.Amount),
		Currency:  currency,
		Status:    domain.PaymentPaid,
		CreatedAt: time.Now().UTC(),
	}

	err = s.payments.Create(ctx, record)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	if err != nil {
		s.log.WithError(err).WithFields(fields).Error("payment verified but not recorded")
		return domain.PersistenceError("payment verified but not recorded", err)
	}

	s.log.WithFields(fields).WithField("amount", record.Amount.String()).Info("payment verified")
	return nil
}

func (s *paymentService) Refund(ctx context.Context, paymentID string, amount decimal.NullDecimal, reason string) (*RefundResult, error) {
	if paymentID == "" {
		return nil, domain.ValidationError("payment_id is required")
	}
	if amount.Valid {
		if err := checkAmount(amount.Decimal, "Refund amount"); err != nil {
			return nil, err
		}
	}

	key := paymentID
	if amount.Valid {
		key += "|" + amount.Decimal.String()
	}
	// The attempt is shared by every caller with the same key, so it must not
	// die with the first caller's request.
	ch := s.refunds.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RefundTimeout)
		defer cancel()
		return s.refund(shared, paymentID, amount, reason)
	})

	select {
	case <-ctx.Done():
		return nil, domain.UnknownError(ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res := *r.Val.(*RefundResult)
		return &res, nil
	}
}

// checkAmount requires a positive amount expressed in whole paise.
func checkAmount(d decimal.Decimal, field string) error {
	if !d.IsPositive() {
		return domain.ValidationError(field + " must be positive")
	}
	if !money.Exact(d) {
		return domain.ValidationError(field + " must have at most 2 decimal places")
	}
	return nil
}

func (s *paymentService) refund(ctx context.Context, paymentID string, amount decimal.NullDecimal, reason string) (*RefundResult, error) {
	record, err := s.payments.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, domain.PersistenceError("could not load payment", err)
	}
	if record == nil {
		return nil, domain.NotFoundError("Payment not found")
	}
	if !record.Refundable() {
		return nil, domain.ConflictError("Payment already refunded")
	}

	refundAmount := record.Amount
	if amount.Valid {
		refundAmount = amount.Decimal
	}
	if refundAmount.GreaterThan(record.Amount) {
		return nil, domain.ValidationError("Refund amount exceeds payment amount")
	}

	var notes map[string]string
	if reason != "" {
		notes = map[string]string{"reason": reason}
	}

	fields := logrus.Fields{"payment_id": paymentID, "amount": refundAmount.String()}
	issued, err := s.gateway.IssueRefund(ctx, paymentID, money.ToMinor(refundAmount), notes)
	if err != nil {
		msg := "refund failed at gateway"
		if payment.OutcomeUnknown(err) {
			msg = "refund outcome unknown"
		}
		s.log.WithError(err).WithFields(fields).Error(msg)
		return nil, domain.GatewayError(err)
	}

	recorded := refundAmount
	if issued.Amount > 0 {
		recorded = money.FromMinor(issued.Amount)
	}
	fields["refund_id"] = issued.ID

	err = s.payments.UpdateRefund(ctx, paymentID, domain.RefundUpdate{
		RefundID:   issued.ID,
		Amount:     recorded,
		Status:     domain.RefundStatusFromGateway(issued.Status),
		RefundedAt: time.Now().UTC(),
	})
	switch {
	case errors.Is(err, repo.ErrRefundClosed):
		s.log.WithFields(fields).Error("refund issued for a payment already marked processed")
		return nil, domain.ConflictError("Payment already refunded")
	case errors.Is(err, repo.ErrNotFound):
		return nil, domain.NotFoundError("Payment not found")
	case err != nil:
		s.log.WithError(err).WithFields(fields).Error("refund issued but not recorded")
		return nil, domain.PersistenceError("refund issued but not recorded", err)
	}

	s.log.WithFields(fields).WithField("status", issued.Status).Info("refund issued")
	return &RefundResult{
		ID:        issued.ID,
		Amount:    recorded,
		Status:    issued.Status,
		PaymentID: paymentID,
	}, nil
}

func (s *paymentService) FetchRefund(ctx context.Context, refundID string) (*domain.Refund, error) {
	if refundID == "" {
		return nil, domain.ValidationError("refund_id is required")
	}
	r, err := s.gateway.FetchRefund(ctx, refundID)
	if err != nil {
		s.log.WithError(err).WithField("refund_id", refundID).Error("fetch refund failed")
		return nil, domain.GatewayError(err)
	}
	return &domain.Refund{
		ID:        r.ID,
		PaymentID: r.PaymentID,
		Amount:    money.FromMinor(r.Amount),
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}, nil
}

func (s *paymentService) ListPayments(ctx context.Context) ([]domain.PaymentView, error) {
	records, err := s.payments.List(ctx)
	if err != nil {
		return nil, domain.PersistenceError("could not list payments", err)
	}
	views := make([]domain.PaymentView, 0, len(records))
	for _, r := range records {
		views = append(views, domain.NewPaymentView(r))
	}
	return views, nil
}
