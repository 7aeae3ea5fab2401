package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Priority bounds and creation defaults.
const (
	PriorityMin     = 1
	PriorityMax     = 5
	DefaultPriority = 1
	DefaultGroup    = "default"
)

// ErrInvalidTodo is wrapped by every todo validation failure.
var ErrInvalidTodo = errors.New("invalid todo")

// Todo is a single item in an account's ordered list.
type Todo struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Group        string     `json:"group" db:"group_name"`
	Order        int        `json:"order" db:"sort_order"`
	Priority     int        `json:"priority" db:"priority"`
	Done         bool       `json:"done" db:"done"`
	Notes        string     `json:"notes" db:"notes"`
	ParentNodeID *int64     `json:"parent_node_id" db:"parent_node_id"`
	CategoryID   *int64     `json:"category_id" db:"category_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	LastChanged  time.Time  `json:"last_changed" db:"last_changed"`
	DoneAt       *time.Time `json:"done_at" db:"done_at"`
}

// NewTodo is the creation payload. Unset optional fields fall back to
// DefaultGroup and DefaultPriority.
type NewTodo struct {
	Name         string  `json:"name"`
	Group        *string `json:"group,omitempty"`
	Priority     *int    `json:"priority,omitempty"`
	Done         bool    `json:"done,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	ParentNodeID *int64  `json:"parent_node_id,omitempty"`
	CategoryID   *int64  `json:"category_id,omitempty"`
}

// Validate reports whether the payload can be stored.
func (n NewTodo) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("%w: todo name is required", ErrInvalidTodo)
	}
	if n.Priority != nil {
		return validatePriority(*n.Priority)
	}
	return nil
}

// Todo materializes the payload with defaults applied, stamped at now.
func (n NewTodo) Todo(now time.Time) Todo {
	t := Todo{
		Name:         n.Name,
		Group:        DefaultGroup,
		Priority:     DefaultPriority,
		Done:         n.Done,
		Notes:        n.Notes,
		ParentNodeID: n.ParentNodeID,
		CategoryID:   n.CategoryID,
		CreatedAt:    now,
		LastChanged:  now,
	}
	if n.Group != nil {
		t.Group = *n.Group
	}
	if n.Priority != nil {
		t.Priority = *n.Priority
	}
	if t.Done {
		t.DoneAt = &now
	}
	return t
}

// AsNew returns the creation payload that reproduces t's editable fields.
func (t Todo) AsNew() NewTodo {
	return NewTodo{
		Name:         t.Name,
		Group:        &t.Group,
		Priority:     &t.Priority,
		Done:         t.Done,
		Notes:        t.Notes,
		ParentNodeID: t.ParentNodeID,
		CategoryID:   t.CategoryID,
	}
}

// NullableID distinguishes an absent reference field from an explicit null.
// The zero value means "not present"; Set with a nil Value means "clear".
type NullableID struct {
	Set   bool
	Value *int64
}

// ClearID returns a NullableID that clears the reference.
func ClearID() NullableID { return NullableID{Set: true} }

// SetID returns a NullableID that points the reference at id.
func SetID(id int64) NullableID { return NullableID{Set: true, Value: &id} }

// UnmarshalJSON records presence. A JSON null clears the reference.
func (n *NullableID) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	n.Value = &id
	return nil
}

// MarshalJSON emits the value or null. Absent fields are dropped by the
// omitzero tag on the owning struct.
func (n NullableID) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// TodoUpdate is a partial update; nil or unset fields keep their prior value.
type TodoUpdate struct {
	Name         *string    `json:"name,omitempty"`
	Group        *string    `json:"group,omitempty"`
	Priority     *int       `json:"priority,omitempty"`
	Done         *bool      `json:"done,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	ParentNodeID NullableID `json:"parent_node_id,omitzero"`
	CategoryID   NullableID `json:"category_id,omitzero"`
}

// IsEmpty reports whether the update touches no field.
func (u TodoUpdate) IsEmpty() bool {
	return u.Name == nil && u.Group == nil && u.Priority == nil &&
		u.Done == nil && u.Notes == nil &&
		!u.ParentNodeID.Set && !u.CategoryID.Set
}

// Validate rejects blank names and out-of-range priorities.
func (u TodoUpdate) Validate() error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("%w: todo name must not be empty", ErrInvalidTodo)
	}
	if u.Priority != nil {
		return validatePriority(*u.Priority)
	}
	return nil
}

// ApplyTo merges the update into t. done_at is stamped only when done
// flips from false to true and cleared when it flips back. last_changed
// is always refreshed.
func (u TodoUpdate) ApplyTo(t *Todo, now time.Time) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Group != nil {
		t.Group = *u.Group
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Done != nil {
		switch {
		case *u.Done && !t.Done:
			stamp := now
			t.DoneAt = &stamp
		case !*u.Done:
			t.DoneAt = nil
		}
		t.Done = *u.Done
	}
	if u.Notes != nil {
		t.Notes = *u.Notes
	}
	if u.ParentNodeID.Set {
		t.ParentNodeID = u.ParentNodeID.Value
	}
	if u.CategoryID.Set {
		t.CategoryID = u.CategoryID.Value
	}
	t.LastChanged = now
}

func validatePriority(p int) error {
	if p < PriorityMin || p > PriorityMax {
		return fmt.Errorf("%w: priority must be between %d and %d",
			ErrInvalidTodo, PriorityMin, PriorityMax)
	}
	return nil
}
