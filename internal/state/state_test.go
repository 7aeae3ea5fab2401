package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nhle/todolist/internal/client"
	"github.com/nhle/todolist/internal/localstore"
	"github.com/nhle/todolist/internal/model"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, storage localstore.Storage) *Store {
	t.Helper()
	if storage == nil {
		storage = localstore.NewMemoryStorage()
	}
	return New(storage,
		WithClock(func() time.Time { return testNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func ptr[T any](v T) *T { return &v }

func todo(id int64, name string) model.Todo {
	return model.Todo{ID: id, Name: name, Group: model.DefaultGroup, Priority: model.DefaultPriority}
}

func ids(todos []model.Todo) []int64 {
	out := make([]int64, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.ID)
	}
	return out
}

func TestNewDefaults(t *testing.T) {
	st := newTestStore(t, nil).Snapshot()

	if st.Filter != FilterSeparate || st.DoneAgeFilter != 7 {
		t.Errorf("filter = %q, doneAgeFilter = %d", st.Filter, st.DoneAgeFilter)
	}
	if st.IsAuthenticated || st.User != nil || len(st.Todos) != 0 {
		t.Errorf("unexpected initial state: %+v", st)
	}
}

func TestAddRemoveKeepsIDsUnique(t *testing.T) {
	s := newTestStore(t, nil)

	added, removed := 0, 0
	for i := int64(1); i <= 20; i++ {
		s.AddTodo(todo(i, "t"))
		added++
		if i%3 == 0 {
			s.RemoveTodo(i - 1)
			removed++
		}
		if i%5 == 0 {
			s.AddTodo(todo(i, "duplicate id"))
		}
	}
	s.ReorderTodos(append(s.Snapshot().Todos, todo(1, "dup")))

	got := s.Snapshot().Todos
	if len(got) != added-removed {
		t.Errorf("len = %d, want %d", len(got), added-removed)
	}
	seen := map[int64]bool{}
	for _, td := range got {
		if seen[td.ID] {
			t.Errorf("duplicate id %d", td.ID)
		}
		seen[td.ID] = true
	}
}

func TestUpdateTodoAndStatusText(t *testing.T) {
	s := newTestStore(t, nil)
	s.AddTodo(todo(1, "Buy milk"))
	s.AddTodo(todo(2, "Walk dog"))

	s.UpdateTodo(1, model.SetDone{Done: true}, model.SetPriority{Priority: 3})
	s.UpdateTodo(99, model.RenameTodo{Name: "ignored"})

	got, ok := s.TodoByID(1)
	if !ok || !got.Done || got.Priority != 3 || got.DoneAt == nil || !got.DoneAt.Equal(testNow) {
		t.Errorf("updated todo = %+v", got)
	}
	if s.ActiveCount() != 1 || s.DoneCount() != 1 || s.TotalCount() != 2 {
		t.Errorf("counts = %d/%d/%d", s.ActiveCount(), s.DoneCount(), s.TotalCount())
	}
	if got := s.StatusText(); got != "1/2 completed" {
		t.Errorf("StatusText() = %q", got)
	}
}

func TestReplaceTodoSwapsProvisionalID(t *testing.T) {
	s := newTestStore(t, nil)
	s.AddTodo(todo(1, "a"))
	s.AddTodo(todo(-1, "provisional"))
	s.AddTodo(todo(2, "b"))
	s.ToggleExpandedTodo(-1)

	s.ReplaceTodo(-1, todo(7, "provisional"))

	st := s.Snapshot()
	if diff := cmp.Diff([]int64{1, 7, 2}, ids(st.Todos)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if !st.ExpandedTodos.Has(7) || st.ExpandedTodos.Has(-1) {
		t.Errorf("expanded = %v", st.ExpandedTodos.Sorted())
	}

	// The server copy already arrived through a sync.
	s.AddTodo(todo(-2, "again"))
	s.AddTodo(todo(8, "again"))
	s.ReplaceTodo(-2, todo(8, "again"))
	if diff := cmp.Diff([]int64{1, 7, 2, 8}, ids(s.Snapshot().Todos)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	storage := localstore.NewMemoryStorage()
	s := newTestStore(t, storage)

	done := todo(2, "done")
	done.Done = true
	done.DoneAt = ptr(testNow.Add(-time.Hour))
	done.CategoryID = ptr(int64(5))

	s.SetAuthenticated(model.User{ID: 1, Email: "user@test.com"})
	s.SetTodos([]model.Todo{todo(1, "a"), done, todo(3, "c")})
	s.SetCategories([]model.Category{{ID: 5, Name: "Work"}, {ID: 6, Name: "Home"}})
	s.SetFilter(FilterActive)
	s.SetDoneAgeFilter(30)
	for _, id := range []int64{3, 1, 2} {
		s.ToggleExpandedTodo(id)
	}
	s.ToggleCategoryFilter(6)
	s.ToggleCategoryFilter(5)
	s.SetLoading(true)
	s.SetError("boom")

	before := s.Snapshot()
	after := newTestStore(t, storage).Snapshot()

	if diff := cmp.Diff(before.Todos, after.Todos); diff != "" {
		t.Errorf("todos mismatch (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(before.Categories, after.Categories); diff != "" {
		t.Errorf("categories mismatch (-before +after):\n%s", diff)
	}
	if after.Filter != FilterActive || after.DoneAgeFilter != 30 {
		t.Errorf("filter = %q, doneAgeFilter = %d", after.Filter, after.DoneAgeFilter)
	}
	if diff := cmp.Diff(before.ExpandedTodos.Sorted(), after.ExpandedTodos.Sorted()); diff != "" {
		t.Errorf("expanded mismatch (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{5, 6}, after.SelectedCategories.Sorted()); diff != "" {
		t.Errorf("selected mismatch (-want +got):\n%s", diff)
	}
	if !after.IsAuthenticated || after.User == nil || after.User.Email != "user@test.com" {
		t.Errorf("session not restored: %+v", after.User)
	}
	if after.Loading || after.Error != "" {
		t.Errorf("transient fields persisted: loading=%v error=%q", after.Loading, after.Error)
	}

	raw, _, _ := storage.Get(localstore.StateKey)
	if !strings.Contains(string(raw), `"expandedTodos":[1,2,3]`) {
		t.Errorf("sets not stored as sorted arrays: %s", raw)
	}
}

func TestCorruptSnapshotFallsBackToDefaults(t *testing.T) {
	storage := localstore.NewMemoryStorage()
	if err := storage.Set(localstore.StateKey, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	st := newTestStore(t, storage).Snapshot()
	if st.Filter != FilterSeparate || len(st.Todos) != 0 {
		t.Errorf("state = %+v", st)
	}
}

func TestQuotaFailureStillAppliesInMemory(t *testing.T) {
	storage := localstore.NewMemoryStorage()
	storage.Quota = 16
	s := newTestStore(t, storage)

	s.AddTodo(todo(1, "a todo whose snapshot cannot fit"))

	if s.TotalCount() != 1 {
		t.Errorf("TotalCount() = %d after failed persist", s.TotalCount())
	}
	if _, ok, _ := storage.Get(localstore.StateKey); ok {
		t.Error("snapshot written despite quota")
	}
}

func TestFilteredTodos(t *testing.T) {
	doneAt := func(daysAgo int) *time.Time {
		ts := testNow.Add(-time.Duration(daysAgo) * 24 * time.Hour)
		return &ts
	}
	a := todo(1, "active")
	recent := todo(2, "recent")
	recent.Done, recent.DoneAt = true, doneAt(2)
	old := todo(3, "old")
	old.Done, old.DoneAt = true, doneAt(10)
	undated := todo(4, "undated")
	undated.Done = true
	b := todo(5, "active 2")

	s := newTestStore(t, nil)
	s.SetTodos([]model.Todo{recent, a, old, undated, b})

	tests := []struct {
		filter Filter
		want   []int64
	}{
		{FilterAll, []int64{2, 1, 3, 4, 5}},
		{FilterActive, []int64{1, 5}},
		{FilterDone, []int64{2}},
		{FilterSeparate, []int64{1, 5, 2}},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			s.SetFilter(tt.filter)
			if diff := cmp.Diff(tt.want, ids(s.FilteredTodos())); diff != "" {
				t.Errorf("FilteredTodos mismatch (-want +got):\n%s", diff)
			}
		})
	}

	s.SetFilter(FilterDone)
	s.SetDoneAgeFilter(30)
	if diff := cmp.Diff([]int64{2, 3}, ids(s.FilteredTodos())); diff != "" {
		t.Errorf("30-day window mismatch (-want +got):\n%s", diff)
	}
}

func TestFilteredTodosDoneNeverStale(t *testing.T) {
	s := newTestStore(t, nil)
	var todos []model.Todo
	for i := range 40 {
		td := todo(int64(i+1), "t")
		td.Done = i%2 == 0
		if i%3 != 0 {
			ts := testNow.Add(-time.Duration(i) * 12 * time.Hour)
			td.DoneAt = &ts
		}
		todos = append(todos, td)
	}
	s.SetTodos(todos)
	s.SetFilter(FilterDone)

	cutoff := testNow.Add(-7 * 24 * time.Hour)
	for _, td := range s.FilteredTodos() {
		if td.DoneAt == nil || td.DoneAt.Before(cutoff) {
			t.Errorf("todo %d shown with done_at %v", td.ID, td.DoneAt)
		}
	}
}

func TestCategoryFilterExcludesUncategorized(t *testing.T) {
	work := model.Category{ID: 1, Name: "Work"}
	home := model.Category{ID: 2, Name: "Home"}

	w := todo(1, "report")
	w.CategoryID = ptr(work.ID)
	h := todo(2, "dishes")
	h.CategoryID = ptr(home.ID)
	none := todo(3, "loose")

	s := newTestStore(t, nil)
	s.SetCategories([]model.Category{work, home})
	s.SetTodos([]model.Todo{w, h, none})
	s.SetFilter(FilterAll)

	s.SelectOnlyCategory(work.ID)
	if diff := cmp.Diff([]int64{1}, ids(s.FilteredTodos())); diff != "" {
		t.Errorf("work only mismatch (-want +got):\n%s", diff)
	}

	s.ToggleCategoryFilter(home.ID)
	if diff := cmp.Diff([]int64{1, 2}, ids(s.FilteredTodos())); diff != "" {
		t.Errorf("work+home mismatch (-want +got):\n%s", diff)
	}

	s.SelectAllCategories()
	if diff := cmp.Diff([]int64{1, 2, 3}, ids(s.FilteredTodos())); diff != "" {
		t.Errorf("all mismatch (-want +got):\n%s", diff)
	}
}

func TestSwapVisibleUsesFilteredPositions(t *testing.T) {
	work := model.Category{ID: 1, Name: "Work"}
	report := todo(1, "report")
	report.CategoryID = ptr(work.ID)
	slides := todo(4, "slides")
	slides.CategoryID = ptr(work.ID)

	s := newTestStore(t, nil)
	s.SetCategories([]model.Category{work})
	s.SetTodos([]model.Todo{report, todo(3, "loose"), slides})
	s.SetFilter(FilterAll)
	s.SelectOnlyCategory(work.ID)

	s.SwapVisible(0, 1)
	if diff := cmp.Diff([]int64{4, 3, 1}, ids(s.Snapshot().Todos)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	s.SwapVisible(0, 2)
	s.SwapVisible(-1, 0)
	if diff := cmp.Diff([]int64{4, 3, 1}, ids(s.Snapshot().Todos)); diff != "" {
		t.Errorf("out of range swap changed order (-want +got):\n%s", diff)
	}
}

func TestRemoveCategoryUncategorizesTodos(t *testing.T) {
	w := todo(1, "report")
	w.CategoryID = ptr(int64(9))

	s := newTestStore(t, nil)
	s.AddCategory(model.Category{ID: 9, Name: "Work"})
	s.AddCategory(model.Category{ID: 9, Name: "Work"})
	s.SetTodos([]model.Todo{w})
	s.SelectOnlyCategory(9)
	s.RenameCategory(9, "Office")

	if c, ok := s.CategoryByID(9); !ok || c.Name != "Office" {
		t.Errorf("CategoryByID = %+v, %v", c, ok)
	}

	s.RemoveCategory(9)

	st := s.Snapshot()
	if len(st.Categories) != 0 || st.Todos[0].CategoryID != nil || len(st.SelectedCategories) != 0 {
		t.Errorf("state after RemoveCategory = %+v", st)
	}
}

func TestEditingAndExpanded(t *testing.T) {
	s := newTestStore(t, nil)
	s.AddTodo(todo(1, "a"))

	s.SetEditingTodo(todo(1, "a"))
	if st := s.Snapshot(); st.EditingTodo == nil || st.EditingTodo.ID != 1 {
		t.Fatalf("editing = %+v", st.EditingTodo)
	}
	s.ToggleExpandedTodo(1)
	s.RemoveTodo(1)

	st := s.Snapshot()
	if st.EditingTodo != nil || st.ExpandedTodos.Has(1) {
		t.Errorf("removed todo still referenced: %+v", st)
	}

	s.SetEditingTodo(todo(2, "b"))
	s.ClearEditingTodo()
	s.ToggleExpandedTodo(2)
	s.ClearExpandedTodos()
	if st := s.Snapshot(); st.EditingTodo != nil || len(st.ExpandedTodos) != 0 {
		t.Errorf("state = %+v", st)
	}
}

func TestSubscribeOrderAndUnsubscribe(t *testing.T) {
	s := newTestStore(t, nil)

	var calls []string
	s.Subscribe(func(State) { calls = append(calls, "first") })
	s.Subscribe(func(State) { panic("observer bug") })
	unsub := s.Subscribe(func(State) { calls = append(calls, "third") })

	s.SetFilter(FilterDone)
	unsub()
	s.SetFilter(FilterAll)

	if diff := cmp.Diff([]string{"first", "third", "first"}, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestObserversSeeCompleteChanges(t *testing.T) {
	s := newTestStore(t, nil)

	var seen []State
	s.Subscribe(func(st State) { seen = append(seen, st) })

	s.SetState(
		func(st *State) { st.Todos = append(st.Todos, todo(1, "a")) },
		func(st *State) { st.Filter = FilterActive },
	)

	if len(seen) != 1 {
		t.Fatalf("notifications = %d, want 1", len(seen))
	}
	if len(seen[0].Todos) != 1 || seen[0].Filter != FilterActive {
		t.Errorf("observer saw %+v", seen[0])
	}

	seen[0].Todos[0].Name = "mutated"
	if got, _ := s.TodoByID(1); got.Name != "a" {
		t.Error("observer mutation leaked into the store")
	}
}

func TestConcurrentUpdates(t *testing.T) {
	s := newTestStore(t, nil)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddTodo(todo(int64(i), "t"))
		}()
	}
	wg.Wait()

	if s.TotalCount() != 50 {
		t.Errorf("TotalCount() = %d", s.TotalCount())
	}
}

func TestSetUnauthenticatedClearsAccountData(t *testing.T) {
	s := newTestStore(t, nil)
	s.SetAuthenticated(model.User{ID: 1, Email: "a@b.c"})
	s.AddTodo(todo(1, "a"))
	s.AddCategory(model.Category{ID: 1, Name: "Work"})
	s.SelectOnlyCategory(1)
	s.ToggleExpandedTodo(1)
	s.SetFilter(FilterDone)

	s.SetUnauthenticated()

	st := s.Snapshot()
	if st.IsAuthenticated || st.User != nil || len(st.Todos) != 0 || len(st.Categories) != 0 ||
		len(st.SelectedCategories) != 0 || len(st.ExpandedTodos) != 0 {
		t.Errorf("state after sign out = %+v", st)
	}
	if st.Filter != FilterDone {
		t.Errorf("view preference lost: %q", st.Filter)
	}
}

func TestFilterCycle(t *testing.T) {
	f := FilterSeparate
	var seen []Filter
	for range 4 {
		f = f.Next()
		seen = append(seen, f)
	}
	if diff := cmp.Diff([]Filter{FilterAll, FilterActive, FilterDone, FilterSeparate}, seen); diff != "" {
		t.Errorf("cycle mismatch (-want +got):\n%s", diff)
	}

	s := newTestStore(t, nil)
	s.SetFilter("bogus")
	if s.Snapshot().Filter != FilterSeparate {
		t.Error("unknown filter accepted")
	}
}

type fakeFetcher struct {
	todos    []model.Todo
	cats     []model.Category
	todoErr  error
	catErr   error
	listings int
	mu       sync.Mutex
}

func (f *fakeFetcher) ListTodos(context.Context) ([]model.Todo, error) {
	f.mu.Lock()
	f.listings++
	f.mu.Unlock()
	return f.todos, f.todoErr
}

func (f *fakeFetcher) ListCategories(context.Context) ([]model.Category, error) {
	return f.cats, f.catErr
}

func TestSyncWithServer(t *testing.T) {
	ctx := context.Background()

	t.Run("signed out does nothing", func(t *testing.T) {
		s := newTestStore(t, nil)
		f := &fakeFetcher{}
		if err := s.SyncWithServer(ctx, f); err != nil || f.listings != 0 {
			t.Errorf("err = %v, listings = %d", err, f.listings)
		}
	})

	t.Run("success replaces data", func(t *testing.T) {
		s := newTestStore(t, nil)
		s.SetAuthenticated(model.User{ID: 1})
		s.AddTodo(todo(99, "stale"))
		s.SetError("old")

		f := &fakeFetcher{
			todos: []model.Todo{todo(1, "a"), todo(2, "b")},
			cats:  []model.Category{{ID: 3, Name: "Work"}},
		}
		if err := s.SyncWithServer(ctx, f); err != nil {
			t.Fatalf("SyncWithServer: %v", err)
		}
		st := s.Snapshot()
		if diff := cmp.Diff([]int64{1, 2}, ids(st.Todos)); diff != "" {
			t.Errorf("todos mismatch (-want +got):\n%s", diff)
		}
		if len(st.Categories) != 1 || st.Error != "" || st.Loading {
			t.Errorf("state = %+v", st)
		}
	})

	failures := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"offline", client.ErrOffline, "Offline - using cached data"},
		{"network", &client.NetworkError{Method: "GET", Path: "/api/todos", Err: errors.New("connection refused")}, "Offline - using cached data"},
		{"server", &client.APIError{Status: http.StatusInternalServerError, Message: "Failed to fetch todos"}, "Sync error: Failed to fetch todos"},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, nil)
			s.SetAuthenticated(model.User{ID: 1})
			s.AddTodo(todo(1, "cached"))

			if err := s.SyncWithServer(ctx, &fakeFetcher{todoErr: tt.err}); err == nil {
				t.Fatal("expected an error")
			}
			st := s.Snapshot()
			if st.Error != tt.wantMsg {
				t.Errorf("Error = %q, want %q", st.Error, tt.wantMsg)
			}
			if st.Loading || len(st.Todos) != 1 {
				t.Errorf("cached data lost or still loading: %+v", st)
			}
		})
	}

	t.Run("unauthorized signs out", func(t *testing.T) {
		s := newTestStore(t, nil)
		s.SetAuthenticated(model.User{ID: 1})
		s.AddTodo(todo(1, "cached"))

		err := s.SyncWithServer(ctx, &fakeFetcher{catErr: &client.APIError{Status: http.StatusUnauthorized}})
		if !errors.Is(err, client.ErrUnauthorized) {
			t.Fatalf("err = %v", err)
		}
		if st := s.Snapshot(); st.IsAuthenticated || len(st.Todos) != 0 {
			t.Errorf("state after 401 = %+v", st)
		}
	})
}

func TestHandleOnlineAndOffline(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	s.SetAuthenticated(model.User{ID: 1})

	s.HandleOffline()
	if got := s.Snapshot().Error; got != "Offline - using cached data" {
		t.Errorf("Error = %q", got)
	}

	f := &fakeFetcher{todos: []model.Todo{todo(1, "a")}}
	if err := s.HandleOnline(ctx, f); err != nil {
		t.Fatalf("HandleOnline: %v", err)
	}
	if f.listings != 0 || s.Snapshot().Error != "" {
		t.Errorf("empty cache: listings = %d, error = %q", f.listings, s.Snapshot().Error)
	}

	s.AddTodo(todo(7, "cached"))
	if err := s.HandleOnline(ctx, f); err != nil {
		t.Fatalf("HandleOnline: %v", err)
	}
	if f.listings != 1 || s.TotalCount() != 1 {
		t.Errorf("listings = %d, todos = %v", f.listings, ids(s.Snapshot().Todos))
	}
}
