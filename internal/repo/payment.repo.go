package repo

import (
	"context"
	"database/sql"
	"errors"
	"paydesk/internal/domain"
	"time"
)

type PaymentRepo interface {
	// Create returns ErrDuplicate when payment_id is already recorded.
	Create(ctx context.Context, payment *domain.PaymentRecord) error
	// FindByPaymentID returns nil, nil when no record exists.
	FindByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentRecord, error)
	List(ctx context.Context) ([]domain.PaymentRecord, error)
	// UpdateRefund writes refund fields only while the record's refund is not
	// processed. Returns ErrNotFound or ErrRefundClosed when nothing was written.
	UpdateRefund(ctx context.Context, paymentID string, upd domain.RefundUpdate) error
	// MarkRefundProcessed returns ErrNotFound for an unknown refund id.
	MarkRefundProcessed(ctx context.Context, refundID string, at time.Time) error
	// MarkRefundFailed never downgrades a processed refund; that case
	// returns ErrRefundClosed.
	MarkRefundFailed(ctx context.Context, refundID string) error
	// FindPendingRefunds lists records whose refund is pending and was
	// issued at or before the given time, oldest first.
	FindPendingRefunds(ctx context.Context, before time.Time, limit int) ([]domain.PaymentRecord, error)
}

type paymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) PaymentRepo {
	return &paymentRepo{db: db}
}

const paymentColumns = `id, order_id, payment_id, signature, amount, currency, status,
	refund_id, refund_amount, refund_status, refunded_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*domain.PaymentRecord, error) {
	var (
		p            domain.PaymentRecord
		refundID     sql.NullString
		refundStatus sql.NullString
		refundedAt   sql.NullTime
	)
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.PaymentID,
		&p.Signature,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&refundID,
		&p.RefundAmount,
		&refundStatus,
		&refundedAt,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if refundID.Valid {
		p.RefundID = &refundID.String
	}
	if refundStatus.Valid {
		p.RefundStatus = domain.RefundStatus(refundStatus.String)
	}
	if refundedAt.Valid {
		p.RefundedAt = &refundedAt.Time
	}
	return &p, nil
}

func (r *paymentRepo) Create(ctx context.Context, p *domain.PaymentRecord) error {
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	var refundStatus sql.NullString
	if p.RefundStatus != domain.RefundNone {
		refundStatus = sql.NullString{String: string(p.RefundStatus), Valid: true}
	}

	_, err := r.db.ExecContext(
		ctx, query,
		p.ID, p.OrderID, p.PaymentID, p.Signature, p.Amount, p.Currency, p.Status,
		p.RefundID, p.RefundAmount, refundStatus, p.RefundedAt, p.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *paymentRepo) FindByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE payment_id = $1`, paymentID)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *paymentRepo) List(ctx context.Context) ([]domain.PaymentRecord, error) {
	return r.query(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY created_at DESC`)
}

func (r *paymentRepo) FindPendingRefunds(ctx context.Context, before time.Time, limit int) ([]domain.PaymentRecord, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE refund_status = $1
		AND refunded_at <= $2
		ORDER BY refunded_at
		LIMIT $3
	`
	return r.query(ctx, query, domain.RefundPending, before, limit)
}

func (r *paymentRepo) query(ctx context.Context, query string, args ...any) ([]domain.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []domain.PaymentRecord{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *paymentRepo) UpdateRefund(ctx context.Context, paymentID string, upd domain.RefundUpdate) error {
	query := `
		UPDATE payments
		SET refund_id = $2,
		    refund_amount = $3,
		    refund_status = $4,
		    refunded_at = $5
		WHERE payment_id = $1
		AND refund_status IS DISTINCT FROM 'processed'
	`
	res, err := r.db.ExecContext(ctx, query, paymentID, upd.RefundID, upd.Amount, upd.Status, upd.RefundedAt)
	if err != nil {
		return err
	}
	return r.resolveMiss(ctx, res, "payment_id", paymentID)
}

func (r *paymentRepo) MarkRefundProcessed(ctx context.Context, refundID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET refund_status = $2, refunded_at = $3 WHERE refund_id = $1`,
		refundID, domain.RefundProcessed, at,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *paymentRepo) MarkRefundFailed(ctx context.Context, refundID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET refund_status = $2
		WHERE refund_id = $1 AND refund_status IS DISTINCT FROM 'processed'`,
		refundID, domain.RefundFailed,
	)
	if err != nil {
		return err
	}
	return r.resolveMiss(ctx, res, "refund_id", refundID)
}

// resolveMiss tells a missing row apart from a row the processed guard kept
// unchanged.
func (r *paymentRepo) resolveMiss(ctx context.Context, res sql.Result, column, value string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE `+column+` = $1)`, value,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrRefundClosed
}
