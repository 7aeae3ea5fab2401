package testutil

import (
	"context"
	"testing"

	"github.com/nhle/todolist/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestAccount creates an account with a placeholder hash and returns its id.
func NewTestAccount(t *testing.T, s store.Store, email string) int64 {
	t.Helper()

	acct, err := s.CreateAccount(context.Background(), email, "hash", "salt")
	if err != nil {
		t.Fatalf("creating test account %s: %v", email, err)
	}
	return acct.ID
}
