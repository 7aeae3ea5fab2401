package todolist

import (
	"strings"
	"testing"
	"time"

	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/state"
)

func snapshot(now time.Time) state.State {
	done := now.Add(-time.Hour)
	old := now.Add(-30 * 24 * time.Hour)
	home := int64(1)
	return state.State{
		Todos: []model.Todo{
			{ID: 1, Name: "Write report", Priority: 1, Group: model.DefaultGroup},
			{ID: 2, Name: "Water plants", Priority: 3, Group: "home", CategoryID: &home, Notes: "# Ferns\nTwice a week"},
			{ID: 3, Name: "Paid rent", Priority: 2, Done: true, DoneAt: &done},
			{ID: 4, Name: "Old chore", Priority: 2, Done: true, DoneAt: &old},
		},
		Categories:         []model.Category{{ID: 1, Name: "Home"}},
		Filter:             state.FilterSeparate,
		DoneAgeFilter:      7,
		ExpandedTodos:      state.IDSet{},
		SelectedCategories: state.IDSet{},
	}
}

func TestSyncBuildsVisibleRows(t *testing.T) {
	now := time.Now()
	m := New(100, 30)
	m.Sync(snapshot(now), now, -1)

	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (old done todo hidden)", m.Len())
	}
	view := m.View()
	for _, want := range []string{"Write report", "Water plants", "Home", "Paid rent"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	if strings.Contains(view, "Old chore") {
		t.Error("View() shows a todo done before the cutoff")
	}
}

func TestSyncKeepsCursorOnSameTodo(t *testing.T) {
	now := time.Now()
	st := snapshot(now)
	m := New(100, 30)
	m.Sync(st, now, -1)
	m.Select(1)

	// Move "Water plants" to the end of the list.
	st.Todos = []model.Todo{st.Todos[0], st.Todos[2], st.Todos[3], st.Todos[1]}
	st.Filter = state.FilterAll
	m.Sync(st, now, -1)

	got, ok := m.Selected()
	if !ok || got.ID != 2 {
		t.Errorf("Selected() = %d, want todo 2", got.ID)
	}
	if m.Index() != 3 {
		t.Errorf("Index() = %d, want 3", m.Index())
	}
}

func TestSyncFollowsGrabbedRow(t *testing.T) {
	now := time.Now()
	m := New(100, 30)
	m.Sync(snapshot(now), now, 2)

	if m.Index() != 2 {
		t.Errorf("Index() = %d, want the grabbed row", m.Index())
	}
}

func TestExpandedNotesRendered(t *testing.T) {
	t.Setenv("TODOLIST_MD_STYLE", "dark")
	now := time.Now()
	st := snapshot(now)
	st.ExpandedTodos = state.NewIDSet(2)

	m := New(100, 30)
	m.Sync(st, now, -1)
	m.Select(1)

	if !strings.Contains(m.View(), "week") {
		t.Error("notes of the expanded todo are not shown")
	}
}

func TestEmptyState(t *testing.T) {
	now := time.Now()
	st := snapshot(now)
	st.SelectedCategories = state.NewIDSet(99)

	m := New(80, 20)
	m.Sync(st, now, -1)
	if !strings.Contains(m.View(), "No matching todos") {
		t.Error("filtered empty list should suggest changing the filter")
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-10 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-2 * 24 * time.Hour), "2d ago"},
		{now.Add(-15 * 24 * time.Hour), "2w ago"},
		{time.Time{}, ""},
	}
	for _, tt := range tests {
		if got := relativeTime(tt.at, now); got != tt.want {
			t.Errorf("relativeTime(%v) = %q, want %q", tt.at, got, tt.want)
		}
	}
}
