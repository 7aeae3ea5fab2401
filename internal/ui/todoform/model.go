package todoform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/theme"
)

// SubmittedMsg is dispatched when the form is completed. EditID is zero
// for a new todo.
type SubmittedMsg struct {
	EditID int64
	Values Values
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// Values are the fields a user can set on a todo. CategoryID zero means
// no category.
type Values struct {
	Name       string
	Group      string
	Priority   int
	Notes      string
	CategoryID int64
}

// ValuesOf fills the form from an existing todo.
func ValuesOf(t model.Todo) Values {
	v := Values{Name: t.Name, Group: t.Group, Priority: t.Priority, Notes: t.Notes}
	if t.CategoryID != nil {
		v.CategoryID = *t.CategoryID
	}
	return v
}

// NewTodo converts the values into a creation payload.
func (v Values) NewTodo() model.NewTodo {
	in := model.NewTodo{
		Name:  strings.TrimSpace(v.Name),
		Notes: v.Notes,
	}
	if g := strings.TrimSpace(v.Group); g != "" {
		in.Group = &g
	}
	if v.Priority != 0 {
		p := v.Priority
		in.Priority = &p
	}
	if v.CategoryID != 0 {
		id := v.CategoryID
		in.CategoryID = &id
	}
	return in
}

// Patches lists the changes from orig. An unchanged form yields none.
func (v Values) Patches(orig model.Todo) []model.TodoPatch {
	var out []model.TodoPatch
	if name := strings.TrimSpace(v.Name); name != orig.Name {
		out = append(out, model.RenameTodo{Name: name})
	}
	if g := strings.TrimSpace(v.Group); g != "" && g != orig.Group {
		out = append(out, model.SetGroup{Group: g})
	}
	if v.Priority != 0 && v.Priority != orig.Priority {
		out = append(out, model.SetPriority{Priority: v.Priority})
	}
	if v.Notes != orig.Notes {
		out = append(out, model.SetNotes{Notes: v.Notes})
	}

	var current int64
	if orig.CategoryID != nil {
		current = *orig.CategoryID
	}
	if v.CategoryID != current {
		p := model.SetCategory{}
		if v.CategoryID != 0 {
			id := v.CategoryID
			p.CategoryID = &id
		}
		out = append(out, p)
	}
	return out
}

// Model is the Bubble Tea model for the todo create/edit form.
type Model struct {
	form       *huh.Form
	fb         *Values
	editID     int64
	categories []model.Category
	width      int
	height     int
}

// New creates a new todo form model.
func New(width, height int) Model {
	return Model{
		fb:     &Values{Priority: model.DefaultPriority, Group: model.DefaultGroup},
		width:  width,
		height: height,
	}
}

// SetCategories sets the choices of the category selector.
func (m *Model) SetCategories(cats []model.Category) {
	m.categories = cats
}

// StartCreate initializes the form for a new todo.
func (m *Model) StartCreate() tea.Cmd {
	m.editID = 0
	*m.fb = Values{Priority: model.DefaultPriority, Group: model.DefaultGroup}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form with an existing todo.
func (m *Model) StartEdit(t model.Todo) tea.Cmd {
	m.editID = t.ID
	*m.fb = ValuesOf(t)
	m.form = m.buildForm()
	return m.form.Init()
}

// Editing reports the id of the todo being edited, zero when creating.
func (m Model) Editing() int64 { return m.editID }

// Update handles messages for the todo form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		submitted := SubmittedMsg{EditID: m.editID, Values: *m.fb}
		return m, func() tea.Msg { return submitted }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the todo form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	title := "New Todo"
	if m.editID != 0 {
		title = "Edit Todo"
	}
	content := theme.TitleStyle.Render(title) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	priorities := make([]huh.Option[int], 0, model.PriorityMax)
	for p := model.PriorityMin; p <= model.PriorityMax; p++ {
		priorities = append(priorities, huh.NewOption(fmt.Sprintf("P%d", p), p))
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Name").
			Placeholder("What needs to be done?").
			Value(&m.fb.Name).
			Validate(validateRequired("Name")),
		huh.NewText().
			Title("Notes").
			Placeholder("Markdown, optional").
			Value(&m.fb.Notes),
		huh.NewInput().
			Title("Group").
			Placeholder(model.DefaultGroup).
			Value(&m.fb.Group),
		huh.NewSelect[int]().
			Title("Priority").
			Options(priorities...).
			Value(&m.fb.Priority),
	}
	if f := m.categoryField(); f != nil {
		fields = append(fields, f)
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) categoryField() huh.Field {
	if len(m.categories) == 0 {
		return nil
	}
	opts := []huh.Option[int64]{huh.NewOption("None", int64(0))}
	for _, c := range m.categories {
		opts = append(opts, huh.NewOption(c.Name, c.ID))
	}
	return huh.NewSelect[int64]().
		Title("Category").
		Options(opts...).
		Value(&m.fb.CategoryID)
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
