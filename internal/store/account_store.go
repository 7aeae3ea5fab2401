package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/todolist/internal/model"
)

const accountColumns = "id, email, password_hash, salt, created_at"

// CreateAccount inserts a new account. Emails are compared case-insensitively
// by normalizing to lower case.
func (s *SQLiteStore) CreateAccount(
	ctx context.Context,
	email, passwordHash, salt string,
) (*model.Account, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (email, password_hash, salt, created_at) VALUES (?, ?, ?, ?)",
		email, passwordHash, salt, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("account %s: %w", email, ErrConflict)
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading account id: %w", err)
	}

	return &model.Account{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Salt:         salt,
		CreatedAt:    now,
	}, nil
}

// GetAccountByEmail looks an account up by its (normalized) email.
func (s *SQLiteStore) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	var a model.Account
	err := s.db.GetContext(ctx, &a,
		"SELECT "+accountColumns+" FROM accounts WHERE email = ?", normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting account %s: %w", email, err)
	}
	return &a, nil
}

// GetAccountByID looks an account up by id.
func (s *SQLiteStore) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	var a model.Account
	err := s.db.GetContext(ctx, &a,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting account %d: %w", id, err)
	}
	return &a, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
