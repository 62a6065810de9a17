package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	razorpay "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
)

type razorpayGateway struct {
	client     *razorpay.Client
	timeout    time.Duration
	retries    uint64
	newBackOff func() backoff.BackOff
}

// NewRazorpayGateway wraps the Razorpay SDK. Every call is bounded by
// timeout; order and refund lookups are retried up to retries times.
func NewRazorpayGateway(keyID, keySecret string, timeout time.Duration, retries int) PaymentGateway {
	return &razorpayGateway{
		client:     razorpay.NewClient(keyID, keySecret),
		timeout:    timeout,
		retries:    uint64(retries),
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

type sdkCall func() (map[string]interface{}, error)

// call runs fn under the gateway timeout. The SDK has no context support, so
// an abandoned call finishes in the background and its result is dropped;
// the returned error then wraps ErrOutcomeUnknown.
func (g *razorpayGateway) call(ctx context.Context, fn sdkCall) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := fn()
		done <- result{body, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrOutcomeUnknown, ctx.Err())
	case r := <-done:
		return r.body, r.err
	}
}

func (g *razorpayGateway) callWithRetry(ctx context.Context, fn sdkCall) (map[string]interface{}, error) {
	var body map[string]interface{}
	policy := backoff.WithContext(backoff.WithMaxRetries(g.newBackOff(), g.retries), ctx)
	err := backoff.Retry(func() error {
		var err error
		body, err = g.call(ctx, fn)
		if rejected(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	return body, err
}

// rejected reports whether the provider refused the request itself. Retrying
// a 4xx answer cannot change it.
func rejected(err error) bool {
	var badRequest *rzperrors.BadRequestError
	var badSignature *rzperrors.SignatureVerificationError
	return errors.As(err, &badRequest) || errors.As(err, &badSignature)
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	body, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.client.Order.Create(map[string]interface{}{
			"amount":   amount,
			"currency": currency,
			"receipt":  receipt,
		}, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return orderFromBody(body), nil
}

func (g *razorpayGateway) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	body, err := g.callWithRetry(ctx, func() (map[string]interface{}, error) {
		return g.client.Order.Fetch(orderID, nil, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch order %s: %w", orderID, err)
	}
	return orderFromBody(body), nil
}

func (g *razorpayGateway) IssueRefund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error) {
	data := map[string]interface{}{"speed": "normal"}
	if len(notes) > 0 {
		data["notes"] = notes
	}
	body, err := g.call(ctx, func() (map[string]interface{}, error) {
		return g.client.Payment.Refund(paymentID, int(amount), data, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay refund %s: %w", paymentID, err)
	}
	return refundFromBody(body), nil
}

func (g *razorpayGateway) FetchRefund(ctx context.Context, refundID string) (*Refund, error) {
	body, err := g.callWithRetry(ctx, func() (map[string]interface{}, error) {
		return g.client.Refund.Fetch(refundID, nil, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch refund %s: %w", refundID, err)
	}
	return refundFromBody(body), nil
}

func orderFromBody(m map[string]interface{}) *Order {
	return &Order{
		ID:       stringField(m, "id"),
		Amount:   intField(m, "amount"),
		Currency: stringField(m, "currency"),
		Receipt:  stringField(m, "receipt"),
		Status:   stringField(m, "status"),
	}
}

func refundFromBody(m map[string]interface{}) *Refund {
	return &Refund{
		ID:        stringField(m, "id"),
		PaymentID: stringField(m, "payment_id"),
		Amount:    intField(m, "amount"),
		Status:    stringField(m, "status"),
		CreatedAt: unixField(m, "created_at"),
	}
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func intField(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

func unixField(m map[string]interface{}, key string) time.Time {
	if sec := intField(m, key); sec > 0 {
		return time.Unix(sec, 0).UTC()
	}
	return time.Time{}
}
