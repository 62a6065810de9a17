package payment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownOrder = errors.New("mock gateway: order not found")

// MockGateway is an in-memory stand-in for the provider, used by
// GATEWAY_MODE=mock, the simulate command and tests.
type MockGateway struct {
	mu           sync.RWMutex
	orders       map[string]Order
	refunds      map[string]Refund
	refundStatus string
	failNext     error
	refundCalls  int
	refundDelay  time.Duration
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		orders:       make(map[string]Order),
		refunds:      make(map[string]Refund),
		refundStatus: "processed",
	}
}

// SetRefundStatus sets the status new refunds are created with.
func (g *MockGateway) SetRefundStatus(status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundStatus = status
}

// SetRefundDelay makes IssueRefund block, widening race windows in tests.
func (g *MockGateway) SetRefundDelay(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundDelay = d
}

// FailNext makes the next gateway call return err.
func (g *MockGateway) FailNext(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = err
}

// SettleRefund changes the status of an issued refund, as the provider does
// asynchronously.
func (g *MockGateway) SettleRefund(refundID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.refunds[refundID]; ok {
		r.Status = status
		g.refunds[refundID] = r
	}
}

func (g *MockGateway) RefundCalls() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.refundCalls
}

// takeFailure must be called with the write lock held.
func (g *MockGateway) takeFailure() error {
	err := g.failNext
	g.failNext = nil
	return err
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}

func (g *MockGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	o := Order{ID: newID("order_"), Amount: amount, Currency: currency, Receipt: receipt, Status: "created"}
	g.orders[o.ID] = o
	return &o, nil
}

func (g *MockGateway) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	o, ok := g.orders[orderID]
	if !ok {
		return nil, ErrUnknownOrder
	}
	return &o, nil
}

func (g *MockGateway) IssueRefund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error) {
	g.mu.Lock()
	delay := g.refundDelay
	g.refundCalls++
	err := g.takeFailure()
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	r := Refund{
		ID:        newID("rfnd_"),
		PaymentID: paymentID,
		Amount:    amount,
		Status:    g.refundStatus,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	g.refunds[r.ID] = r
	return &r, nil
}

func (g *MockGateway) FetchRefund(ctx context.Context, refundID string) (*Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.takeFailure(); err != nil {
		return nil, err
	}
	r, ok := g.refunds[refundID]
	if !ok {
		return nil, errors.New("mock gateway: refund not found")
	}
	return &r, nil
}
