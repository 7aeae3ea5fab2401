package credential

import (
	"testing"

	"github.com/99designs/keyring"

	"github.com/nhle/todolist/internal/localstore"
)

type tokenStore interface {
	Token() (string, error)
	SetToken(string) error
	ClearToken() error
}

func TestTokenStores(t *testing.T) {
	stores := map[string]tokenStore{
		"keyring": NewKeyring(keyring.NewArrayKeyring(nil)),
		"storage": NewStorageTokens(localstore.NewMemoryStorage()),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			if tok, err := s.Token(); err != nil || tok != "" {
				t.Fatalf("empty Token() = %q, %v", tok, err)
			}
			if err := s.ClearToken(); err != nil {
				t.Errorf("ClearToken on empty store: %v", err)
			}

			if err := s.SetToken("jwt-abc"); err != nil {
				t.Fatalf("SetToken: %v", err)
			}
			if tok, err := s.Token(); err != nil || tok != "jwt-abc" {
				t.Errorf("Token() = %q, %v", tok, err)
			}

			if err := s.ClearToken(); err != nil {
				t.Fatalf("ClearToken: %v", err)
			}
			if tok, _ := s.Token(); tok != "" {
				t.Errorf("token after clear = %q", tok)
			}
		})
	}
}
