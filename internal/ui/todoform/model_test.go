package todoform

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nhle/todolist/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestValuesNewTodo(t *testing.T) {
	tests := []struct {
		name string
		in   Values
		want model.NewTodo
	}{
		{
			name: "defaults left to the server",
			in:   Values{Name: "  Buy milk "},
			want: model.NewTodo{Name: "Buy milk"},
		},
		{
			name: "every field",
			in:   Values{Name: "Ship", Group: "work", Priority: 2, Notes: "**now**", CategoryID: 7},
			want: model.NewTodo{
				Name:       "Ship",
				Group:      ptr("work"),
				Priority:   ptr(2),
				Notes:      "**now**",
				CategoryID: ptr(int64(7)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.in.NewTodo()); diff != "" {
				t.Errorf("NewTodo() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValuesPatches(t *testing.T) {
	orig := model.NewTodo{Name: "Ship", CategoryID: ptr(int64(3))}.Todo(time.Now())
	orig.ID = 1

	if got := ValuesOf(orig).Patches(orig); len(got) != 0 {
		t.Errorf("unchanged form produced %v", got)
	}

	v := ValuesOf(orig)
	v.Name = "Ship it"
	v.Priority = 4
	v.CategoryID = 0
	got := model.UpdateFromPatches(v.Patches(orig)...)

	want := model.TodoUpdate{
		Name:       ptr("Ship it"),
		Priority:   ptr(4),
		CategoryID: model.ClearID(),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Patches() mismatch (-want +got):\n%s", diff)
	}
}

func TestStartEditPrefillsForm(t *testing.T) {
	m := New(80, 24)
	m.SetCategories([]model.Category{{ID: 3, Name: "Home"}})

	todo := model.Todo{ID: 9, Name: "Fix sink", Group: "house", Priority: 3, CategoryID: ptr(int64(3))}
	m.StartEdit(todo)

	if m.Editing() != 9 {
		t.Errorf("Editing() = %d, want 9", m.Editing())
	}
	if diff := cmp.Diff(ValuesOf(todo), *m.fb); diff != "" {
		t.Errorf("form values (-want +got):\n%s", diff)
	}

	m.StartCreate()
	if m.Editing() != 0 || m.fb.Name != "" || m.fb.Priority != model.DefaultPriority {
		t.Errorf("StartCreate left %+v", *m.fb)
	}
}
