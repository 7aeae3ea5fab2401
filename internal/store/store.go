package store

import (
	"context"
	"errors"

	"github.com/nhle/todolist/internal/model"
)

// Sentinel errors returned by Store implementations. Callers match them
// with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("validation failed")
)

// Stats summarizes row counts for the admin command.
type Stats struct {
	Accounts   int `db:"accounts"`
	Todos      int `db:"todos"`
	Categories int `db:"categories"`
}

// Store defines the persistence interface for accounts and the todos and
// categories they own. Every todo and category operation is scoped by
// account; rows owned by another account behave as if they do not exist.
type Store interface {
	// === Accounts ===

	CreateAccount(ctx context.Context, email, passwordHash, salt string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)

	// === Todos ===

	ListTodos(ctx context.Context, accountID int64) ([]model.Todo, error)
	GetTodo(ctx context.Context, accountID, id int64) (*model.Todo, error)
	CreateTodo(ctx context.Context, accountID int64, in model.NewTodo) (*model.Todo, error)
	UpdateTodo(ctx context.Context, accountID, id int64, u model.TodoUpdate) (*model.Todo, error)
	DeleteTodo(ctx context.Context, accountID, id int64) error
	ReorderTodos(ctx context.Context, accountID int64, ids []int64) ([]model.Todo, error)

	// === Categories ===

	ListCategories(ctx context.Context, accountID int64) ([]model.Category, error)
	CreateCategory(ctx context.Context, accountID int64, name string) (*model.Category, error)
	RenameCategory(ctx context.Context, accountID, id int64, name string) (*model.Category, error)
	DeleteCategory(ctx context.Context, accountID, id int64) error

	// === Admin ===

	Stats(ctx context.Context) (Stats, error)
	Close() error
}
