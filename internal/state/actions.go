package state

import (
	"slices"

	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/reorder"
)

// SetAuthenticated records a signed-in user and clears any error.
func (s *Store) SetAuthenticated(user model.User) {
	s.SetState(func(st *State) {
		st.IsAuthenticated = true
		st.User = &user
		st.Error = ""
	})
}

// SetUnauthenticated drops the session and every piece of account data.
func (s *Store) SetUnauthenticated() {
	s.SetState(func(st *State) {
		st.IsAuthenticated = false
		st.User = nil
		st.Todos = []model.Todo{}
		st.Categories = []model.Category{}
		st.EditingTodo = nil
		st.ExpandedTodos = IDSet{}
		st.SelectedCategories = IDSet{}
	})
}

// SetTodos replaces the todo list.
func (s *Store) SetTodos(todos []model.Todo) {
	todos = slices.Clone(todos)
	s.SetState(func(st *State) { st.Todos = todos })
}

// AddTodo appends t, or replaces the todo that already has its id.
func (s *Store) AddTodo(t model.Todo) {
	s.SetState(func(st *State) {
		if i := indexOfTodo(st.Todos, t.ID); i >= 0 {
			st.Todos[i] = t
			return
		}
		st.Todos = append(st.Todos, t)
	})
}

// UpdateTodo applies patches to the todo with id. Unknown ids are ignored.
func (s *Store) UpdateTodo(id int64, patches ...model.TodoPatch) {
	now := s.now()
	s.SetState(func(st *State) {
		if i := indexOfTodo(st.Todos, id); i >= 0 {
			st.Todos[i] = model.ApplyPatches(st.Todos[i], now, patches...)
		}
	})
}

// ReplaceTodo swaps the todo with id for t, keeping its position. It is how
// a provisional todo picks up the server's copy. If another entry already
// carries t's id it is dropped.
func (s *Store) ReplaceTodo(id int64, t model.Todo) {
	s.SetState(func(st *State) {
		i := indexOfTodo(st.Todos, id)
		if i < 0 {
			return
		}
		if t.ID != id {
			if j := indexOfTodo(st.Todos, t.ID); j >= 0 {
				st.Todos = slices.Delete(st.Todos, j, j+1)
				if j < i {
					i--
				}
			}
		}
		st.Todos[i] = t
		if st.EditingTodo != nil && st.EditingTodo.ID == id {
			cp := t
			st.EditingTodo = &cp
		}
		if id != t.ID && st.ExpandedTodos.Has(id) {
			delete(st.ExpandedTodos, id)
			st.ExpandedTodos[t.ID] = struct{}{}
		}
	})
}

// RemoveTodo deletes the todo with id.
func (s *Store) RemoveTodo(id int64) {
	s.SetState(func(st *State) {
		st.Todos = slices.DeleteFunc(st.Todos, func(t model.Todo) bool { return t.ID == id })
		delete(st.ExpandedTodos, id)
		if st.EditingTodo != nil && st.EditingTodo.ID == id {
			st.EditingTodo = nil
		}
	})
}

// SwapVisible exchanges the todos at positions from and to of the filtered
// list within the full list. Positions out of range are ignored. The lookup
// and the swap happen in one update.
func (s *Store) SwapVisible(from, to int) {
	now := s.now()
	s.SetState(func(st *State) {
		visible := st.FilteredTodos(now)
		if from < 0 || to < 0 || from >= len(visible) || to >= len(visible) || from == to {
			return
		}
		i := indexOfTodo(st.Todos, visible[from].ID)
		j := indexOfTodo(st.Todos, visible[to].ID)
		if i < 0 || j < 0 {
			return
		}
		st.Todos = reorder.ReorderItems(st.Todos, i, j)
	})
}

// ReorderTodos replaces the list with a reordered copy.
func (s *Store) ReorderTodos(newOrder []model.Todo) {
	s.SetTodos(newOrder)
}

// SetCategories replaces the category list.
func (s *Store) SetCategories(cats []model.Category) {
	cats = slices.Clone(cats)
	s.SetState(func(st *State) { st.Categories = cats })
}

// AddCategory appends c.
func (s *Store) AddCategory(c model.Category) {
	s.SetState(func(st *State) {
		if slices.ContainsFunc(st.Categories, func(x model.Category) bool { return x.ID == c.ID }) {
			return
		}
		st.Categories = append(st.Categories, c)
	})
}

// RenameCategory renames the category with id.
func (s *Store) RenameCategory(id int64, name string) {
	s.SetState(func(st *State) {
		for i := range st.Categories {
			if st.Categories[i].ID == id {
				st.Categories[i].Name = name
			}
		}
	})
}

// RemoveCategory deletes the category with id, uncategorizes its todos and
// drops it from the category filter.
func (s *Store) RemoveCategory(id int64) {
	s.SetState(func(st *State) {
		st.Categories = slices.DeleteFunc(st.Categories, func(c model.Category) bool { return c.ID == id })
		for i := range st.Todos {
			if cid := st.Todos[i].CategoryID; cid != nil && *cid == id {
				st.Todos[i].CategoryID = nil
			}
		}
		delete(st.SelectedCategories, id)
	})
}

// SetFilter changes the completion filter. Unknown filters are ignored.
func (s *Store) SetFilter(f Filter) {
	if !f.Valid() {
		return
	}
	s.SetState(func(st *State) { st.Filter = f })
}

// SetDoneAgeFilter sets how many days completed todos stay visible.
func (s *Store) SetDoneAgeFilter(days int) {
	if days < 0 {
		return
	}
	s.SetState(func(st *State) { st.DoneAgeFilter = days })
}

// SetEditingTodo marks t as being edited.
func (s *Store) SetEditingTodo(t model.Todo) {
	s.SetState(func(st *State) { st.EditingTodo = &t })
}

// ClearEditingTodo ends editing.
func (s *Store) ClearEditingTodo() {
	s.SetState(func(st *State) { st.EditingTodo = nil })
}

// ToggleExpandedTodo shows or hides the notes of a todo.
func (s *Store) ToggleExpandedTodo(id int64) {
	s.SetState(func(st *State) { toggle(st.ExpandedTodos, id) })
}

// ClearExpandedTodos collapses every todo.
func (s *Store) ClearExpandedTodos() {
	s.SetState(func(st *State) { st.ExpandedTodos = IDSet{} })
}

// ToggleCategoryFilter adds or removes a category from the filter.
func (s *Store) ToggleCategoryFilter(id int64) {
	s.SetState(func(st *State) { toggle(st.SelectedCategories, id) })
}

// SelectOnlyCategory narrows the list to a single category.
func (s *Store) SelectOnlyCategory(id int64) {
	s.SetState(func(st *State) { st.SelectedCategories = NewIDSet(id) })
}

// SelectAllCategories removes the category filter.
func (s *Store) SelectAllCategories() {
	s.SetState(func(st *State) { st.SelectedCategories = IDSet{} })
}

// SetError stores a message for display.
func (s *Store) SetError(msg string) {
	s.SetState(func(st *State) { st.Error = msg })
}

// ClearError removes the displayed message.
func (s *Store) ClearError() {
	s.SetError("")
}

// SetLoading flags an in-flight sync.
func (s *Store) SetLoading(loading bool) {
	s.SetState(func(st *State) { st.Loading = loading })
}

// HandleOffline shows the offline notice.
func (s *Store) HandleOffline() {
	s.SetError(offlineMessage)
}

func indexOfTodo(todos []model.Todo, id int64) int {
	return slices.IndexFunc(todos, func(t model.Todo) bool { return t.ID == id })
}

func toggle(set IDSet, id int64) {
	if set.Has(id) {
		delete(set, id)
		return
	}
	set[id] = struct{}{}
}
