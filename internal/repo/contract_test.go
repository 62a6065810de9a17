package repo_test

import (
	"context"
	"paydesk/internal/domain"
	"paydesk/internal/repo"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) (repo.CredentialRepo, repo.PaymentRepo)

func newRecord(paymentID string, amount string, createdAt time.Time) *domain.PaymentRecord {
	return &domain.PaymentRecord{
		ID:        uuid.New(),
		OrderID:   "order_" + paymentID,
		PaymentID: paymentID,
		Signature: "sig",
		Amount:    decimal.RequireFromString(amount),
		Currency:  domain.CurrencyINR,
		Status:    domain.PaymentPaid,
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
	}
}

// runRepoContract checks behaviour every repository implementation shares.
func runRepoContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	t.Run("credentials", func(t *testing.T) {
		creds, _ := newStore(t)

		got, err := creds.FindByUsername(ctx, "asha")
		require.NoError(t, err)
		assert.Nil(t, got)

		c := &domain.Credential{Username: "asha", Password: "pw", CreatedAt: time.Now()}
		require.NoError(t, creds.Create(ctx, c))
		assert.ErrorIs(t, creds.Create(ctx, &domain.Credential{Username: "asha", Password: "other", CreatedAt: time.Now()}), repo.ErrDuplicate)

		got, err = creds.FindByUsername(ctx, "asha")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "pw", got.Password)
	})

	t.Run("create and find payment", func(t *testing.T) {
		_, payments := newStore(t)
		rec := newRecord("pay_1", "500.00", time.Now())

		require.NoError(t, payments.Create(ctx, rec))
		assert.ErrorIs(t, payments.Create(ctx, newRecord("pay_1", "1", time.Now())), repo.ErrDuplicate)

		got, err := payments.FindByPaymentID(ctx, "pay_1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, rec.ID, got.ID)
		assert.True(t, got.Amount.Equal(rec.Amount))
		assert.Equal(t, domain.RefundNone, got.RefundStatus)
		assert.False(t, got.RefundAmount.Valid)
		assert.Nil(t, got.RefundID)

		missing, err := payments.FindByPaymentID(ctx, "pay_missing")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("list newest first", func(t *testing.T) {
		_, payments := newStore(t)
		now := time.Now()
		require.NoError(t, payments.Create(ctx, newRecord("pay_old", "1", now.Add(-time.Hour))))
		require.NoError(t, payments.Create(ctx, newRecord("pay_new", "2", now)))

		list, err := payments.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "pay_new", list[0].PaymentID)
		assert.Equal(t, "pay_old", list[1].PaymentID)
	})

	t.Run("refund update is closed once processed", func(t *testing.T) {
		_, payments := newStore(t)
		require.NoError(t, payments.Create(ctx, newRecord("pay_r", "500", time.Now())))

		assert.ErrorIs(t, payments.UpdateRefund(ctx, "pay_none", domain.RefundUpdate{RefundID: "rfnd_x"}), repo.ErrNotFound)

		at := time.Now().UTC().Truncate(time.Microsecond)
		require.NoError(t, payments.UpdateRefund(ctx, "pay_r", domain.RefundUpdate{
			RefundID: "rfnd_1", Amount: decimal.NewFromInt(200), Status: domain.RefundPending, RefundedAt: at,
		}))
		require.NoError(t, payments.UpdateRefund(ctx, "pay_r", domain.RefundUpdate{
			RefundID: "rfnd_2", Amount: decimal.NewFromInt(500), Status: domain.RefundProcessed, RefundedAt: at,
		}))

		err := payments.UpdateRefund(ctx, "pay_r", domain.RefundUpdate{
			RefundID: "rfnd_3", Amount: decimal.NewFromInt(1), Status: domain.RefundPending, RefundedAt: at,
		})
		assert.ErrorIs(t, err, repo.ErrRefundClosed)

		got, err := payments.FindByPaymentID(ctx, "pay_r")
		require.NoError(t, err)
		assert.Equal(t, "rfnd_2", *got.RefundID)
		assert.Equal(t, domain.RefundProcessed, got.RefundStatus)
		assert.True(t, got.RefundAmount.Decimal.Equal(decimal.NewFromInt(500)))
	})

	t.Run("concurrent refunds write once after processed", func(t *testing.T) {
		_, payments := newStore(t)
		require.NoError(t, payments.Create(ctx, newRecord("pay_c", "10", time.Now())))

		var (
			wg     sync.WaitGroup
			mu     sync.Mutex
			closed int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := payments.UpdateRefund(ctx, "pay_c", domain.RefundUpdate{
					RefundID: uuid.NewString(), Amount: decimal.NewFromInt(10), Status: domain.RefundProcessed, RefundedAt: time.Now(),
				})
				if err != nil {
					assert.ErrorIs(t, err, repo.ErrRefundClosed)
					mu.Lock()
					closed++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 7, closed)
	})

	t.Run("webhook transitions", func(t *testing.T) {
		_, payments := newStore(t)
		issued := time.Now().Add(-time.Hour).UTC().Truncate(time.Microsecond)
		require.NoError(t, payments.Create(ctx, newRecord("pay_w", "100", time.Now())))
		require.NoError(t, payments.Create(ctx, newRecord("pay_f", "100", time.Now())))
		for pid, rid := range map[string]string{"pay_w": "rfnd_w", "pay_f": "rfnd_f"} {
			require.NoError(t, payments.UpdateRefund(ctx, pid, domain.RefundUpdate{
				RefundID: rid, Amount: decimal.NewFromInt(100), Status: domain.RefundPending, RefundedAt: issued,
			}))
		}

		pending, err := payments.FindPendingRefunds(ctx, time.Now(), 10)
		require.NoError(t, err)
		assert.Len(t, pending, 2)

		at := time.Unix(1700000000, 0).UTC()
		require.NoError(t, payments.MarkRefundProcessed(ctx, "rfnd_w", at))
		assert.ErrorIs(t, payments.MarkRefundProcessed(ctx, "rfnd_unknown", at), repo.ErrNotFound)
		assert.ErrorIs(t, payments.MarkRefundFailed(ctx, "rfnd_w"), repo.ErrRefundClosed)
		require.NoError(t, payments.MarkRefundFailed(ctx, "rfnd_f"))

		w, err := payments.FindByPaymentID(ctx, "pay_w")
		require.NoError(t, err)
		assert.Equal(t, domain.RefundProcessed, w.RefundStatus)
		assert.True(t, at.Equal(*w.RefundedAt))

		f, err := payments.FindByPaymentID(ctx, "pay_f")
		require.NoError(t, err)
		assert.Equal(t, domain.RefundFailed, f.RefundStatus)

		pending, err = payments.FindPendingRefunds(ctx, time.Now(), 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}
