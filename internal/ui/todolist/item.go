package todolist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/theme"
)

// Item wraps a model.Todo so it can be used in a bubbles/list.
type Item struct {
	Todo     model.Todo
	Category string
	Expanded bool
	Grabbed  bool
}

// FilterValue returns the string used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Todo.Name }

// Title returns the todo name.
func (i Item) Title() string { return i.Todo.Name }

// Description returns a short summary line.
func (i Item) Description() string {
	parts := []string{fmt.Sprintf("P%d", i.Todo.Priority), i.Todo.Group}
	if i.Category != "" {
		parts = append(parts, i.Category)
	}
	return strings.Join(parts, " | ")
}

// Delegate implements list.ItemDelegate for todo rows.
type Delegate struct {
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d Delegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d Delegate) Spacing() int { return 0 }

// Update handles per-item messages.
func (d Delegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

// Render draws a single todo row.
func (d Delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(Item)
	if !ok {
		return
	}
	fmt.Fprint(w, d.line(it, index == m.Index()))
}

func (d Delegate) line(it Item, selected bool) string {
	t := it.Todo

	check := "○"
	if t.Done {
		check = "✓"
	}
	handle := "⠿"
	if it.Grabbed {
		handle = "↕"
	}
	notes := " "
	if t.Notes != "" {
		notes = "▸"
		if it.Expanded {
			notes = "▾"
		}
	}

	pri := theme.PriorityStyle(t.Priority).Render(fmt.Sprintf("P%d", t.Priority))
	name := t.Name
	if t.Done {
		name = theme.DimmedStyle.Render(name)
	}

	badges := ""
	if it.Category != "" && t.CategoryID != nil {
		badges += " " + theme.CategoryStyle(*t.CategoryID).Render(it.Category)
	}
	if t.Group != "" && t.Group != model.DefaultGroup {
		badges += lipgloss.NewStyle().Foreground(theme.ColorGray).Render(" #" + t.Group)
	}
	if t.ID < 0 {
		badges += lipgloss.NewStyle().Foreground(theme.ColorOrange).Render(" (pending)")
	}

	age := ""
	if t.Done && t.DoneAt != nil {
		age = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Render("  done " + relativeTime(*t.DoneAt, d.clock()))
	}

	line := fmt.Sprintf("%s %s %s %s %s%s%s", handle, check, notes, pri, name, badges, age)

	switch {
	case it.Grabbed:
		return theme.GrabbedItemStyle.Render(line)
	case selected:
		return theme.SelectedItemStyle.Render(line)
	default:
		return theme.ListItemStyle.Render(line)
	}
}

func (d Delegate) clock() time.Time {
	if d.now == nil {
		return time.Now()
	}
	return d.now()
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
