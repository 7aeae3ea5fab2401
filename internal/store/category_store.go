package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/todolist/internal/model"
)

const categoryColumns = "id, account_id, name, created_at"

// ListCategories returns the account's categories by name.
func (s *SQLiteStore) ListCategories(ctx context.Context, accountID int64) ([]model.Category, error) {
	cats := []model.Category{}
	err := s.db.SelectContext(ctx, &cats,
		"SELECT "+categoryColumns+" FROM categories WHERE account_id = ? ORDER BY name, id",
		accountID)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	return cats, nil
}

// CreateCategory adds a category. Names are unique per account.
func (s *SQLiteStore) CreateCategory(
	ctx context.Context,
	accountID int64,
	name string,
) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidation)
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (account_id, name, created_at) VALUES (?, ?, ?)",
		accountID, name, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category %q: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading category id: %w", err)
	}
	return &model.Category{ID: id, AccountID: accountID, Name: name, CreatedAt: now}, nil
}

// RenameCategory changes an owned category's name.
func (s *SQLiteStore) RenameCategory(
	ctx context.Context,
	accountID, id int64,
	name string,
) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidation)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE categories SET name = ? WHERE id = ? AND account_id = ?", name, id, accountID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category %q: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("renaming category %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}

	var c model.Category
	err = s.db.GetContext(ctx, &c,
		"SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("reloading category %d: %w", id, err)
	}
	return &c, nil
}

// DeleteCategory removes an owned category. Todos referencing it have their
// category_id nulled in the same transaction, so no todo ever points at a
// missing category.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, accountID, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var owner int64
	err = tx.GetContext(ctx, &owner,
		"SELECT account_id FROM categories WHERE id = ? AND account_id = ?", id, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("getting category %d: %w", id, err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE todo_items SET category_id = NULL WHERE category_id = ? AND account_id = ?",
		id, accountID)
	if err != nil {
		return fmt.Errorf("detaching todos from category %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM categories WHERE id = ? AND account_id = ?", id, accountID); err != nil {
		return fmt.Errorf("deleting category %d: %w", id, err)
	}

	return tx.Commit()
}
