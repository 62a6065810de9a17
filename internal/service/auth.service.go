package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"paydesk/internal/domain"
	"paydesk/internal/repo"
	"time"

	"github.com/sirupsen/logrus"
)

type AuthService interface {
	Signup(ctx context.Context, username, password string) error
	// Login returns the username of the matching credential.
	Login(ctx context.Context, username, password string) (string, error)
}

type authService struct {
	credentials repo.CredentialRepo
	log         logrus.FieldLogger
}

func NewAuthService(credentials repo.CredentialRepo, log logrus.FieldLogger) AuthService {
	return &authService{credentials: credentials, log: log}
}

func (s *authService) Signup(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return domain.ValidationError("Username and password required")
	}

	existing, err := s.credentials.FindByUsername(ctx, username)
	if err != nil {
		return domain.PersistenceError("could not check username", err)
	}
	if existing != nil {
		return domain.ConflictError("User already exists")
	}

	err = s.credentials.Create(ctx, &domain.Credential{
		Username:  username,
		Password:  password,
		CreatedAt: time.Now().UTC(),
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return domain.ConflictError("User already exists")
	}
	if err != nil {
		return domain.PersistenceError("could not create user", err)
	}

	s.log.WithField("username", username).Info("user signed up")
	return nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	cred, err := s.credentials.FindByUsername(ctx, username)
	if err != nil {
		return "", domain.PersistenceError("could not load user", err)
	}
	if cred == nil || subtle.ConstantTimeCompare([]byte(cred.Password), []byte(password)) != 1 {
		return "", domain.AuthError("Invalid username or password")
	}
	return cred.Username, nil
}
