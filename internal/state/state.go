// Package state is the client's single source of truth: todos, categories,
// view settings and session status, persisted to local storage after every
// change and broadcast to observers.
package state

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/nhle/todolist/internal/model"
)

// Filter selects which todos the list shows.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterActive   Filter = "active"
	FilterDone     Filter = "done"
	FilterSeparate Filter = "separate"
)

// DefaultDoneAgeFilter is how many days completed todos stay visible.
const DefaultDoneAgeFilter = 7

var filterCycle = []Filter{FilterSeparate, FilterAll, FilterActive, FilterDone}

// Next returns the filter after f in display order.
func (f Filter) Next() Filter {
	i := slices.Index(filterCycle, f)
	return filterCycle[(i+1)%len(filterCycle)]
}

// Valid reports whether f is a known filter.
func (f Filter) Valid() bool { return slices.Contains(filterCycle, f) }

// Label is the human-readable name of f.
func (f Filter) Label() string {
	switch f {
	case FilterAll:
		return "All"
	case FilterActive:
		return "Active"
	case FilterDone:
		return "Done"
	case FilterSeparate:
		return "Active + recently done"
	default:
		return string(f)
	}
}

// IDSet is a set of ids. It encodes as a sorted JSON array.
type IDSet map[int64]struct{}

// NewIDSet returns a set holding ids.
func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []int64 {
	return slices.Sorted(maps.Keys(s))
}

func (s IDSet) clone() IDSet {
	out := make(IDSet, len(s))
	maps.Copy(out, s)
	return out
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	ids := s.Sorted()
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal(ids)
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("decoding id set: %w", err)
	}
	*s = NewIDSet(ids...)
	return nil
}

// State is a snapshot of the client state. Observers receive copies; the
// store's own value is never shared.
type State struct {
	Todos         []model.Todo     `json:"todos"`
	Categories    []model.Category `json:"categories"`
	Filter        Filter           `json:"filter"`
	DoneAgeFilter int              `json:"doneAgeFilter"`
	EditingTodo   *model.Todo      `json:"editingTodo"`
	// ExpandedTodos holds todos whose notes are shown.
	ExpandedTodos IDSet `json:"expandedTodos"`
	// SelectedCategories narrows the list; empty means every category.
	SelectedCategories IDSet       `json:"selectedCategories"`
	User               *model.User `json:"user"`
	IsAuthenticated    bool        `json:"isAuthenticated"`

	// Loading and Error are transient and never persisted.
	Loading bool   `json:"-"`
	Error   string `json:"-"`
}

func initialState() State {
	return State{
		Todos:              []model.Todo{},
		Categories:         []model.Category{},
		Filter:             FilterSeparate,
		DoneAgeFilter:      DefaultDoneAgeFilter,
		ExpandedTodos:      IDSet{},
		SelectedCategories: IDSet{},
	}
}

// Clone returns a copy that shares nothing mutable with s.
func (s State) Clone() State {
	out := s
	out.Todos = slices.Clone(s.Todos)
	out.Categories = slices.Clone(s.Categories)
	out.ExpandedTodos = s.ExpandedTodos.clone()
	out.SelectedCategories = s.SelectedCategories.clone()
	if s.EditingTodo != nil {
		t := *s.EditingTodo
		out.EditingTodo = &t
	}
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}
