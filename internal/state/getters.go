package state

import (
	"fmt"
	"time"

	"github.com/nhle/todolist/internal/model"
)

// FilteredTodos applies the completion filter and then the category filter.
// The separate filter lists active todos first, then recently done ones.
func (s *Store) FilteredTodos() []model.Todo {
	st := s.Snapshot()
	return st.FilteredTodos(s.now())
}

// FilteredTodos is the pure form of Store.FilteredTodos, evaluated at now.
func (st State) FilteredTodos(now time.Time) []model.Todo {
	cutoff := now.Add(-time.Duration(st.DoneAgeFilter) * 24 * time.Hour)
	doneRecently := func(t model.Todo) bool {
		return t.Done && t.DoneAt != nil && !t.DoneAt.Before(cutoff)
	}
	inCategory := func(t model.Todo) bool {
		if len(st.SelectedCategories) == 0 {
			return true
		}
		return t.CategoryID != nil && st.SelectedCategories.Has(*t.CategoryID)
	}

	var out []model.Todo
	pick := func(keep func(model.Todo) bool) {
		for _, t := range st.Todos {
			if keep(t) && inCategory(t) {
				out = append(out, t)
			}
		}
	}

	switch st.Filter {
	case FilterActive:
		pick(func(t model.Todo) bool { return !t.Done })
	case FilterDone:
		pick(doneRecently)
	case FilterSeparate:
		pick(func(t model.Todo) bool { return !t.Done })
		pick(doneRecently)
	default:
		pick(func(model.Todo) bool { return true })
	}
	return out
}

// TodoByID looks up a todo.
func (s *Store) TodoByID(id int64) (model.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOfTodo(s.state.Todos, id); i >= 0 {
		return s.state.Todos[i], true
	}
	return model.Todo{}, false
}

// CategoryByID looks up a category.
func (s *Store) CategoryByID(id int64) (model.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.state.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return model.Category{}, false
}

func (s *Store) count(keep func(model.Todo) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.state.Todos {
		if keep(t) {
			n++
		}
	}
	return n
}

func (s *Store) ActiveCount() int { return s.count(func(t model.Todo) bool { return !t.Done }) }
func (s *Store) DoneCount() int   { return s.count(func(t model.Todo) bool { return t.Done }) }
func (s *Store) TotalCount() int  { return s.count(func(model.Todo) bool { return true }) }

// StatusText summarizes completion, e.g. "1/3 completed".
func (s *Store) StatusText() string {
	return fmt.Sprintf("%d/%d completed", s.DoneCount(), s.TotalCount())
}
