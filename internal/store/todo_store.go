package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/todolist/internal/model"
)

const todoColumns = `id, name, group_name, sort_order, priority, done, notes,
	parent_node_id, category_id, created_at, last_changed, done_at`

// ListTodos returns every todo owned by the account in display order.
func (s *SQLiteStore) ListTodos(ctx context.Context, accountID int64) ([]model.Todo, error) {
	return listTodos(ctx, s.db, accountID)
}

// GetTodo returns a single owned todo.
func (s *SQLiteStore) GetTodo(ctx context.Context, accountID, id int64) (*model.Todo, error) {
	return getTodo(ctx, s.db, accountID, id)
}

// CreateTodo inserts a todo at the end of the account's list. The first
// todo gets sort_order 0.
func (s *SQLiteStore) CreateTodo(
	ctx context.Context,
	accountID int64,
	in model.NewTodo,
) (*model.Todo, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkRefs(ctx, tx, accountID, 0, in.ParentNodeID, in.CategoryID); err != nil {
		return nil, err
	}

	todo := in.Todo(s.now())

	err = tx.GetContext(ctx, &todo.Order,
		"SELECT COALESCE(MAX(sort_order), -1) + 1 FROM todo_items WHERE account_id = ?",
		accountID)
	if err != nil {
		return nil, fmt.Errorf("getting next sort_order: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO todo_items (
			account_id, name, group_name, sort_order, priority, done, notes,
			parent_node_id, category_id, created_at, last_changed, done_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		accountID, todo.Name, todo.Group, todo.Order, todo.Priority,
		boolToInt(todo.Done), todo.Notes,
		todo.ParentNodeID, todo.CategoryID,
		todo.CreatedAt, todo.LastChanged, todo.DoneAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating todo: %w", err)
	}

	todo.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading todo id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing todo: %w", err)
	}
	return &todo, nil
}

// UpdateTodo applies a partial update to an owned todo. Fields absent from
// u keep their stored value; done_at follows the done transition rule.
func (s *SQLiteStore) UpdateTodo(
	ctx context.Context,
	accountID, id int64,
	u model.TodoUpdate,
) (*model.Todo, error) {
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	todo, err := getTodo(ctx, tx, accountID, id)
	if err != nil {
		return nil, err
	}

	var parent, category *int64
	if u.ParentNodeID.Set {
		parent = u.ParentNodeID.Value
	}
	if u.CategoryID.Set {
		category = u.CategoryID.Value
	}
	if err := checkRefs(ctx, tx, accountID, id, parent, category); err != nil {
		return nil, err
	}

	u.ApplyTo(todo, s.now())

	_, err = tx.ExecContext(ctx, `
		UPDATE todo_items SET
			name = ?, group_name = ?, priority = ?, done = ?, notes = ?,
			parent_node_id = ?, category_id = ?, last_changed = ?, done_at = ?
		WHERE id = ? AND account_id = ?`,
		todo.Name, todo.Group, todo.Priority, boolToInt(todo.Done), todo.Notes,
		todo.ParentNodeID, todo.CategoryID, todo.LastChanged, todo.DoneAt,
		id, accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating todo %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing todo %d: %w", id, err)
	}
	return todo, nil
}

// DeleteTodo hard-deletes an owned todo. Children pointing at it through
// parent_node_id are detached.
func (s *SQLiteStore) DeleteTodo(ctx context.Context, accountID, id int64) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM todo_items WHERE id = ? AND account_id = ?", id, accountID)
	if err != nil {
		return fmt.Errorf("deleting todo %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	return nil
}

// ReorderTodos rewrites sort_order in one transaction. Owned ids in the
// request take positions 0..k-1 in request order; unknown, foreign and
// duplicate ids are skipped; owned todos missing from the request follow in
// their previous order. The result is always dense from 0.
func (s *SQLiteStore) ReorderTodos(
	ctx context.Context,
	accountID int64,
	ids []int64,
) ([]model.Todo, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current []int64
	err = tx.SelectContext(ctx, &current,
		"SELECT id FROM todo_items WHERE account_id = ? ORDER BY sort_order, id", accountID)
	if err != nil {
		return nil, fmt.Errorf("loading current order: %w", err)
	}

	owned := make(map[int64]bool, len(current))
	for _, id := range current {
		owned[id] = true
	}

	order := make([]int64, 0, len(current))
	placed := make(map[int64]bool, len(current))
	for _, id := range ids {
		if owned[id] && !placed[id] {
			order = append(order, id)
			placed[id] = true
		}
	}
	for _, id := range current {
		if !placed[id] {
			order = append(order, id)
		}
	}

	stmt, err := tx.PreparexContext(ctx,
		"UPDATE todo_items SET sort_order = ? WHERE id = ? AND account_id = ?")
	if err != nil {
		return nil, fmt.Errorf("preparing reorder statement: %w", err)
	}
	defer stmt.Close()

	for i, id := range order {
		if _, err := stmt.ExecContext(ctx, i, id, accountID); err != nil {
			return nil, fmt.Errorf("reordering todo %d: %w", id, err)
		}
	}

	todos, err := listTodos(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reorder: %w", err)
	}
	return todos, nil
}

func listTodos(ctx context.Context, q sqlx.QueryerContext, accountID int64) ([]model.Todo, error) {
	todos := []model.Todo{}
	err := sqlx.SelectContext(ctx, q, &todos,
		"SELECT "+todoColumns+" FROM todo_items WHERE account_id = ? ORDER BY sort_order, id",
		accountID)
	if err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}
	return todos, nil
}

func getTodo(ctx context.Context, q sqlx.QueryerContext, accountID, id int64) (*model.Todo, error) {
	var todo model.Todo
	err := sqlx.GetContext(ctx, q, &todo,
		"SELECT "+todoColumns+" FROM todo_items WHERE id = ? AND account_id = ?",
		id, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting todo %d: %w", id, err)
	}
	return &todo, nil
}

// checkRefs verifies that parent and category, when non-nil, belong to the
// account. A todo cannot be its own parent.
func checkRefs(
	ctx context.Context,
	tx *sqlx.Tx,
	accountID, selfID int64,
	parent, category *int64,
) error {
	if parent != nil {
		if *parent == selfID {
			return fmt.Errorf("%w: todo cannot be its own parent", ErrValidation)
		}
		var n int
		err := tx.GetContext(ctx, &n,
			"SELECT COUNT(*) FROM todo_items WHERE id = ? AND account_id = ?", *parent, accountID)
		if err != nil {
			return fmt.Errorf("checking parent %d: %w", *parent, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: unknown parent todo %d", ErrValidation, *parent)
		}
	}
	if category != nil {
		var n int
		err := tx.GetContext(ctx, &n,
			"SELECT COUNT(*) FROM categories WHERE id = ? AND account_id = ?", *category, accountID)
		if err != nil {
			return fmt.Errorf("checking category %d: %w", *category, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: unknown category %d", ErrValidation, *category)
		}
	}
	return nil
}
