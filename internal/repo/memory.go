package repo

import (
	"context"
	"paydesk/internal/domain"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Memory implements both repositories on maps guarded by one lock. It backs
// STORE_DRIVER=memory and the tests.
type Memory struct {
	mu          sync.RWMutex
	credentials map[string]domain.Credential
	payments    map[string]*domain.PaymentRecord // by payment_id
	writes      int
}

func NewMemory() *Memory {
	return &Memory{
		credentials: make(map[string]domain.Credential),
		payments:    make(map[string]*domain.PaymentRecord),
	}
}

// Writes counts successful mutations since creation.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *Memory) Credentials() CredentialRepo { return memCredentials{m} }
func (m *Memory) Payments() PaymentRepo       { return memPayments{m} }

type memCredentials struct{ m *Memory }

func (r memCredentials) FindByUsername(_ context.Context, username string) (*domain.Credential, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.credentials[username]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r memCredentials) Create(_ context.Context, cred *domain.Credential) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.credentials[cred.Username]; ok {
		return ErrDuplicate
	}
	r.m.credentials[cred.Username] = *cred
	r.m.writes++
	return nil
}

type memPayments struct{ m *Memory }

func clonePayment(p *domain.PaymentRecord) domain.PaymentRecord {
	c := *p
	if p.RefundID != nil {
		id := *p.RefundID
		c.RefundID = &id
	}
	if p.RefundedAt != nil {
		at := *p.RefundedAt
		c.RefundedAt = &at
	}
	return c
}

func (r memPayments) Create(_ context.Context, p *domain.PaymentRecord) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.payments[p.PaymentID]; ok {
		return ErrDuplicate
	}
	c := clonePayment(p)
	r.m.payments[p.PaymentID] = &c
	r.m.writes++
	return nil
}

func (r memPayments) FindByPaymentID(_ context.Context, paymentID string) (*domain.PaymentRecord, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	p, ok := r.m.payments[paymentID]
	if !ok {
		return nil, nil
	}
	c := clonePayment(p)
	return &c, nil
}

func (r memPayments) List(_ context.Context) ([]domain.PaymentRecord, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	out := make([]domain.PaymentRecord, 0, len(r.m.payments))
	for _, p := range r.m.payments {
		out = append(out, clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memPayments) UpdateRefund(_ context.Context, paymentID string, upd domain.RefundUpdate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.payments[paymentID]
	if !ok {
		return ErrNotFound
	}
	if !p.Refundable() {
		return ErrRefundClosed
	}
	id, at := upd.RefundID, upd.RefundedAt
	p.RefundID = &id
	p.RefundAmount = decimal.NewNullDecimal(upd.Amount)
	p.RefundStatus = upd.Status
	p.RefundedAt = &at
	r.m.writes++
	return nil
}

// byRefundID must be called with the lock held.
func (r memPayments) byRefundID(refundID string) *domain.PaymentRecord {
	for _, p := range r.m.payments {
		if p.RefundID != nil && *p.RefundID == refundID {
			return p
		}
	}
	return nil
}

func (r memPayments) MarkRefundProcessed(_ context.Context, refundID string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p := r.byRefundID(refundID)
	if p == nil {
		return ErrNotFound
	}
	p.RefundStatus = domain.RefundProcessed
	p.RefundedAt = &at
	r.m.writes++
	return nil
}

func (r memPayments) MarkRefundFailed(_ context.Context, refundID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p := r.byRefundID(refundID)
	if p == nil {
		return ErrNotFound
	}
	if p.RefundStatus == domain.RefundProcessed {
		return ErrRefundClosed
	}
	p.RefundStatus = domain.RefundFailed
	r.m.writes++
	return nil
}

func (r memPayments) FindPendingRefunds(_ context.Context, before time.Time, limit int) ([]domain.PaymentRecord, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []domain.PaymentRecord
	for _, p := range r.m.payments {
		if p.RefundStatus == domain.RefundPending && p.RefundedAt != nil && !p.RefundedAt.After(before) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RefundedAt.Before(*out[j].RefundedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
