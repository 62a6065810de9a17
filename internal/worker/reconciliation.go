package worker

import (
	"context"
	"errors"
	"paydesk/internal/domain"
	"paydesk/internal/infrastructure/payment"
	"paydesk/internal/repo"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultBatch = 50

// ReconciliationWorker polls the gateway for refunds still pending locally,
// covering webhooks that never arrived.
type ReconciliationWorker struct {
	payments repo.PaymentRepo
	gateway  payment.PaymentGateway
	interval time.Duration
	after    time.Duration
	batch    int
	log      logrus.FieldLogger
}

type Result struct {
	Checked   int
	Processed int
	Failed    int
}

func NewReconciliationWorker(
	payments repo.PaymentRepo,
	gateway payment.PaymentGateway,
	interval time.Duration,
	after time.Duration,
	log logrus.FieldLogger,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		payments: payments,
		gateway:  gateway,
		interval: interval,
		after:    after,
		batch:    defaultBatch,
		log:      log.WithField("component", "reconciliation"),
	}
}

// Run blocks until ctx is cancelled.
func (rw *ReconciliationWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	rw.log.WithField("interval", rw.interval.String()).Info("reconciliation worker started")

	for {
		select {
		case <-ctx.Done():
			rw.log.Info("reconciliation worker stopped")
			return nil
		case <-ticker.C:
			res, err := rw.RunOnce(ctx)
			if err != nil {
				rw.log.WithError(err).Error("reconciliation failed")
				continue
			}
			if res.Checked > 0 {
				rw.log.WithFields(logrus.Fields{
					"checked":   res.Checked,
					"processed": res.Processed,
					"failed":    res.Failed,
				}).Info("reconciliation pass finished")
			}
		}
	}
}

// RunOnce reconciles one batch of pending refunds.
func (rw *ReconciliationWorker) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	pending, err := rw.payments.FindPendingRefunds(ctx, time.Now().Add(-rw.after), rw.batch)
	if err != nil {
		return res, err
	}

	for _, rec := range pending {
		if rec.RefundID == nil {
			continue
		}
		res.Checked++
		log := rw.log.WithFields(logrus.Fields{"payment_id": rec.PaymentID, "refund_id": *rec.RefundID})

		refund, err := rw.gateway.FetchRefund(ctx, *rec.RefundID)
		if err != nil {
			// left pending, retried on the next tick
			log.WithError(err).Warn("could not fetch refund")
			continue
		}

		switch refund.Status {
		case string(domain.RefundProcessed):
			at := refund.CreatedAt
			if at.IsZero() {
				at = time.Now().UTC()
			}
			err = rw.payments.MarkRefundProcessed(ctx, *rec.RefundID, at)
			if err == nil {
				res.Processed++
				log.Info("refund reconciled to processed")
			}
		case string(domain.RefundFailed):
			err = rw.payments.MarkRefundFailed(ctx, *rec.RefundID)
			if errors.Is(err, repo.ErrRefundClosed) {
				err = nil
			} else if err == nil {
				res.Failed++
				log.Warn("refund reconciled to failed")
			}
		}
		if err != nil {
			log.WithError(err).Error("could not store reconciled refund status")
		}
	}
	return res, nil
}
