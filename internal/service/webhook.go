package service

import (
	"context"
	"encoding/json"
	"errors"
	"paydesk/internal/domain"
	"paydesk/internal/repo"
	"paydesk/internal/signature"
	"time"
)

const (
	EventRefundProcessed = "refund.processed"
	EventRefundFailed    = "refund.failed"
)

type webhookEvent struct {
	Event     string `json:"event"`
	CreatedAt int64  `json:"created_at"`
	Payload   struct {
		Refund *struct {
			Entity refundEntity `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

type refundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

func (e *webhookEvent) refund() (*refundEntity, error) {
	if e.Payload.Refund == nil || e.Payload.Refund.Entity.ID == "" {
		return nil, domain.ValidationError("webhook payload has no refund entity")
	}
	return &e.Payload.Refund.Entity, nil
}

// occurredAt prefers the event timestamp, then the entity's.
func (e *webhookEvent) occurredAt(entity *refundEntity) time.Time {
	switch {
	case e.CreatedAt > 0:
		return time.Unix(e.CreatedAt, 0).UTC()
	case entity.CreatedAt > 0:
		return time.Unix(entity.CreatedAt, 0).UTC()
	default:
		return time.Now().UTC()
	}
}

func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, sig string) error {
	if s.cfg.WebhookSecret != "" && !signature.Verify(s.cfg.WebhookSecret, body, sig) {
		s.log.Warn("webhook signature mismatch")
		return domain.SignatureError("Invalid signature")
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return domain.ValidationError("malformed webhook payload")
	}
	log := s.log.WithField("event", evt.Event)

	switch evt.Event {
	case EventRefundProcessed:
		entity, err := evt.refund()
		if err != nil {
			return err
		}
		log = log.WithField("refund_id", entity.ID)
		err = s.payments.MarkRefundProcessed(ctx, entity.ID, evt.occurredAt(entity))
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn("webhook for unknown refund")
			return nil
		}
		if err != nil {
			return domain.PersistenceError("could not record refund status", err)
		}
		log.Info("refund processed")

	case EventRefundFailed:
		entity, err := evt.refund()
		if err != nil {
			return err
		}
		log = log.WithField("refund_id", entity.ID)
		err = s.payments.MarkRefundFailed(ctx, entity.ID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			log.Warn("webhook for unknown refund")
		case errors.Is(err, repo.ErrRefundClosed):
			log.Warn("ignoring failure for a processed refund")
		case err != nil:
			return domain.PersistenceError("could not record refund status", err)
		default:
			log.Info("refund failed")
		}

	default:
		log.Debug("webhook event ignored")
	}
	return nil
}
