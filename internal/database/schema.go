package database

var schema = []string{
	`CREATE TABLE IF NOT EXISTS credentials (
		username   TEXT PRIMARY KEY,
		password   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id            UUID PRIMARY KEY,
		order_id      TEXT NOT NULL,
		payment_id    TEXT NOT NULL UNIQUE,
		signature     TEXT NOT NULL,
		amount        NUMERIC(14, 2) NOT NULL,
		currency      TEXT NOT NULL,
		status        TEXT NOT NULL,
		refund_id     TEXT,
		refund_amount NUMERIC(14, 2),
		refund_status TEXT,
		refunded_at   TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS payments_refund_id_idx ON payments (refund_id)`,
	`CREATE INDEX IF NOT EXISTS payments_pending_refund_idx ON payments (refunded_at) WHERE refund_status = 'pending'`,
}
