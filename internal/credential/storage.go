package credential

import (
	"github.com/nhle/todolist/internal/localstore"
)

// StorageTokens keeps the session token under localstore.TokenKey.
type StorageTokens struct {
	storage localstore.Storage
}

// NewStorageTokens creates a StorageTokens over s.
func NewStorageTokens(s localstore.Storage) *StorageTokens {
	return &StorageTokens{storage: s}
}

func (t *StorageTokens) Token() (string, error) {
	v, ok, err := t.storage.Get(localstore.TokenKey)
	if err != nil || !ok {
		return "", err
	}
	return string(v), nil
}

func (t *StorageTokens) SetToken(token string) error {
	return t.storage.Set(localstore.TokenKey, []byte(token))
}

func (t *StorageTokens) ClearToken() error {
	return t.storage.Remove(localstore.TokenKey)
}
