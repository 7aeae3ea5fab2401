package state

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nhle/todolist/internal/localstore"
	"github.com/nhle/todolist/internal/model"
)

// Update mutates the state in place. Updates passed to one SetState call
// are applied together and observed as a single change.
type Update func(*State)

// Observer receives the state after every change.
type Observer func(State)

type observer struct {
	id int
	fn Observer
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for the done-age window and patch
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger for persistence and observer failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Store holds the client state. All methods are safe for concurrent use;
// observers run synchronously on the goroutine that made the change, in
// registration order, after the store lock is released.
type Store struct {
	mu        sync.Mutex
	state     State
	storage   localstore.Storage
	observers []observer
	nextID    int

	now    func() time.Time
	logger *slog.Logger
}

// New creates a Store hydrated from storage. A missing or unreadable
// snapshot leaves the defaults in place.
func New(storage localstore.Storage, opts ...Option) *Store {
	s := &Store{
		state:   initialState(),
		storage: storage,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observer{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.observers = slices.DeleteFunc(s.observers, func(o observer) bool { return o.id == id })
	}
}

// SetState applies updates atomically, persists the result and notifies
// observers. A persistence failure is logged; the in-memory change stands.
func (s *Store) SetState(updates ...Update) {
	s.mu.Lock()
	for _, u := range updates {
		if u != nil {
			u(&s.state)
		}
	}
	s.normalize()
	s.save()
	snap := s.state.Clone()
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		s.notify(o, snap)
	}
}

func (s *Store) notify(o observer, snap State) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("state observer panicked", "observer", o.id, "panic", rec)
		}
	}()
	o.fn(snap.Clone())
}

// normalize keeps the invariants updates may have broken: non-nil
// collections and unique todo ids, first occurrence winning.
func (s *Store) normalize() {
	st := &s.state
	if st.Todos == nil {
		st.Todos = []model.Todo{}
	}
	if st.Categories == nil {
		st.Categories = []model.Category{}
	}
	if st.ExpandedTodos == nil {
		st.ExpandedTodos = IDSet{}
	}
	if st.SelectedCategories == nil {
		st.SelectedCategories = IDSet{}
	}

	seen := make(map[int64]bool, len(st.Todos))
	st.Todos = slices.DeleteFunc(st.Todos, func(t model.Todo) bool {
		if seen[t.ID] {
			return true
		}
		seen[t.ID] = true
		return false
	})
}

// save must be called with s.mu held.
func (s *Store) save() {
	if s.storage == nil {
		return
	}
	data, err := json.Marshal(s.state)
	if err != nil {
		s.logger.Warn("encoding state snapshot", "error", err)
		return
	}
	if err := s.storage.Set(localstore.StateKey, data); err != nil {
		s.logger.Warn("saving state snapshot", "error", err)
	}
}

func (s *Store) load() {
	if s.storage == nil {
		return
	}
	data, ok, err := s.storage.Get(localstore.StateKey)
	if err != nil {
		s.logger.Warn("loading state snapshot", "error", err)
		return
	}
	if !ok || len(data) == 0 {
		return
	}

	var snap State
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("parsing state snapshot", "error", err)
		return
	}

	st := &s.state
	if snap.Todos != nil {
		st.Todos = snap.Todos
	}
	if snap.Categories != nil {
		st.Categories = snap.Categories
	}
	if snap.Filter.Valid() {
		st.Filter = snap.Filter
	}
	if snap.DoneAgeFilter > 0 {
		st.DoneAgeFilter = snap.DoneAgeFilter
	}
	st.EditingTodo = snap.EditingTodo
	if snap.ExpandedTodos != nil {
		st.ExpandedTodos = snap.ExpandedTodos
	}
	if snap.SelectedCategories != nil {
		st.SelectedCategories = snap.SelectedCategories
	}
	st.User = snap.User
	st.IsAuthenticated = snap.IsAuthenticated
	s.normalize()
}
