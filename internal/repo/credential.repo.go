package repo

import (
	"context"
	"database/sql"
	"errors"
	"paydesk/internal/domain"
)

type CredentialRepo interface {
	// FindByUsername returns nil, nil when no credential exists.
	FindByUsername(ctx context.Context, username string) (*domain.Credential, error)
	// Create returns ErrDuplicate if the username is taken.
	Create(ctx context.Context, cred *domain.Credential) error
}

type credentialRepo struct {
	db *sql.DB
}

func NewCredentialRepo(db *sql.DB) CredentialRepo {
	return &credentialRepo{db: db}
}

func (r *credentialRepo) FindByUsername(ctx context.Context, username string) (*domain.Credential, error) {
	var c domain.Credential
	err := r.db.QueryRowContext(ctx,
		"SELECT username, password, created_at FROM credentials WHERE username = $1",
		username,
	).Scan(&c.Username, &c.Password, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *credentialRepo) Create(ctx context.Context, cred *domain.Credential) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO credentials (username, password, created_at) VALUES ($1, $2, $3)",
		cred.Username, cred.Password, cred.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
