package todolist

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/state"
	"github.com/nhle/todolist/internal/theme"
)

// notesHeight is how many lines the notes panel may take.
const notesHeight = 8

// Model is the todo list view. It renders a state snapshot and leaves
// every action to the parent.
type Model struct {
	list     list.Model
	delegate Delegate
	filtered bool
	notes    string
	width    int
	height   int
}

// New creates a new todo list model.
func New(width, height int) Model {
	d := Delegate{now: time.Now}
	l := list.New([]list.Item{}, d, width, height)
	l.Title = "Todos"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = theme.HeaderStyle
	l.SetStatusBarItemName("todo", "todos")

	m := Model{list: l, delegate: d}
	m.SetSize(width, height)
	return m
}

// Sync rebuilds the rows from a state snapshot, keeping the cursor on the
// same todo. grabbed is the visible index of a dragged row, or -1.
func (m *Model) Sync(st state.State, now time.Time, grabbed int) tea.Cmd {
	prev, hadPrev := m.Selected()

	names := make(map[int64]string, len(st.Categories))
	for _, c := range st.Categories {
		names[c.ID] = c.Name
	}

	todos := st.FilteredTodos(now)
	items := make([]list.Item, len(todos))
	cursor := -1
	for i, t := range todos {
		it := Item{
			Todo:     t,
			Expanded: st.ExpandedTodos.Has(t.ID),
			Grabbed:  i == grabbed,
		}
		if t.CategoryID != nil {
			it.Category = names[*t.CategoryID]
		}
		items[i] = it
		if hadPrev && t.ID == prev.ID {
			cursor = i
		}
	}

	m.filtered = st.Filter != state.FilterAll || len(st.SelectedCategories) > 0
	m.list.Title = "Todos · " + st.Filter.Label()
	if st.Filter == state.FilterDone || st.Filter == state.FilterSeparate {
		m.list.Title += fmt.Sprintf(" (done ≤ %dd)", st.DoneAgeFilter)
	}

	cmd := m.list.SetItems(items)
	switch {
	case grabbed >= 0 && grabbed < len(items):
		m.list.Select(grabbed)
	case cursor >= 0:
		m.list.Select(cursor)
	case m.list.Index() >= len(items) && len(items) > 0:
		m.list.Select(len(items) - 1)
	}
	m.refreshNotes()
	return cmd
}

// Selected returns the todo under the cursor.
func (m Model) Selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return model.Todo{}, false
	}
	return it.Todo, true
}

// Index returns the cursor position in the visible list.
func (m Model) Index() int { return m.list.Index() }

// Len returns the number of visible rows.
func (m Model) Len() int { return len(m.list.Items()) }

// Select moves the cursor.
func (m *Model) Select(i int) {
	if i >= 0 && i < m.Len() {
		m.list.Select(i)
		m.refreshNotes()
	}
}

// Update forwards navigation to the list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	m.refreshNotes()
	return m, cmd
}

// refreshNotes renders the notes of the selected todo when it is expanded.
func (m *Model) refreshNotes() {
	m.notes = ""
	it, ok := m.list.SelectedItem().(Item)
	if !ok || !it.Expanded || it.Todo.Notes == "" {
		m.list.SetSize(m.width, m.height)
		return
	}
	m.notes = RenderNotes(it.Todo.Notes, m.width-8)
	m.list.SetSize(m.width, max(m.height-notesHeight, 3))
}

// View renders the list, the notes panel and an empty state.
func (m Model) View() string {
	if m.Len() == 0 {
		return m.renderEmptyState()
	}
	if m.notes == "" {
		return m.list.View()
	}
	notes := theme.NotesStyle.
		MaxHeight(notesHeight).
		Render(m.notes)
	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), notes)
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.filtered {
		return style.Render("No matching todos.\nPress f to change the filter or 0 for all categories.")
	}
	return style.Render("Nothing to do yet.\n\nPress n to add a todo.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.refreshNotes()
}
