package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/store"
)

// Errors returned by Service. Store errors (store.ErrConflict) pass through
// wrapped.
var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AccountStore is the slice of the persistence layer the auth service needs.
type AccountStore interface {
	CreateAccount(ctx context.Context, email, passwordHash, salt string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
}

// Service registers accounts and exchanges credentials for tokens.
type Service struct {
	accounts AccountStore
	issuer   *Issuer
}

// NewService creates a Service.
func NewService(accounts AccountStore, issuer *Issuer) *Service {
	return &Service{accounts: accounts, issuer: issuer}
}

// Issuer returns the token issuer used by the service.
func (s *Service) Issuer() *Issuer { return s.issuer }

// Register creates an account and returns a token for it.
func (s *Service) Register(ctx context.Context, c model.Credentials) (string, error) {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return "", ErrMissingCredentials
	}

	salt, err := NewSalt()
	if err != nil {
		return "", err
	}
	hash, err := HashPassword(c.Password, salt)
	if err != nil {
		return "", err
	}

	acct, err := s.accounts.CreateAccount(ctx, c.Email, hash, salt)
	if err != nil {
		return "", fmt.Errorf("registering %s: %w", c.Email, err)
	}
	return s.issuer.Issue(model.User{ID: acct.ID, Email: acct.Email})
}

// Login verifies credentials and returns a fresh token. Unknown emails and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, c model.Credentials) (string, error) {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return "", ErrMissingCredentials
	}

	acct, err := s.accounts.GetAccountByEmail(ctx, c.Email)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", c.Email, err)
	}

	if !CheckPassword(acct.PasswordHash, c.Password, acct.Salt) {
		return "", ErrInvalidCredentials
	}
	return s.issuer.Issue(model.User{ID: acct.ID, Email: acct.Email})
}
