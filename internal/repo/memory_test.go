package repo_test

import (
	"context"
	"paydesk/internal/domain"
	"paydesk/internal/repo"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_Contract(t *testing.T) {
	runRepoContract(t, func(t *testing.T) (repo.CredentialRepo, repo.PaymentRepo) {
		m := repo.NewMemory()
		return m.Credentials(), m.Payments()
	})
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := repo.NewMemory()
	require.NoError(t, m.Payments().Create(ctx, newRecord("pay_1", "10", time.Now())))

	got, err := m.Payments().FindByPaymentID(ctx, "pay_1")
	require.NoError(t, err)
	got.Status = "tampered"

	again, err := m.Payments().FindByPaymentID(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, again.Status)
	assert.Equal(t, 1, m.Writes())
}

func TestMemory_PendingRefundLimit(t *testing.T) {
	ctx := context.Background()
	m := repo.NewMemory()
	p := m.Payments()
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, p.Create(ctx, newRecord(id, "1", base)))
		require.NoError(t, p.UpdateRefund(ctx, id, domain.RefundUpdate{
			RefundID: "rfnd_" + id, Status: domain.RefundPending, RefundedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := p.FindPendingRefunds(ctx, time.Now(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].PaymentID)
	assert.Equal(t, "b", got[1].PaymentID)
}
