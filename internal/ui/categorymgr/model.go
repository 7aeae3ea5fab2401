package categorymgr

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todolist/internal/keys"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/theme"
)

// CloseMsg signals the parent to close the category view.
type CloseMsg struct{}

// CreateMsg asks the parent to create a category.
type CreateMsg struct{ Name string }

// RenameMsg asks the parent to rename a category.
type RenameMsg struct {
	ID   int64
	Name string
}

// DeleteMsg asks the parent to delete a category.
type DeleteMsg struct{ ID int64 }

// ToggleFilterMsg asks the parent to add or remove a category from the
// list filter.
type ToggleFilterMsg struct{ ID int64 }

type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirmDelete
)

type formBindings struct {
	name    string
	confirm bool
}

// Model is the Bubble Tea model for category management. It holds no data
// of its own; the parent feeds it the current categories.
type Model struct {
	mode        mode
	keys        *keys.KeyMap
	categories  []model.Category
	selected    map[int64]bool
	selectedIdx int
	editingID   int64
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	width       int
	height      int
}

// New creates a new category manager model.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:   modeList,
		keys:   k,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// SetCategories replaces the listed categories and the ids currently in
// the filter.
func (m *Model) SetCategories(cats []model.Category, selected []int64) {
	m.categories = cats
	m.selected = make(map[int64]bool, len(selected))
	for _, id := range selected {
		m.selected[id] = true
	}
	if m.selectedIdx >= len(m.categories) {
		m.selectedIdx = max(len(m.categories)-1, 0)
	}
}

// Reset returns to the list.
func (m *Model) Reset() {
	m.mode = modeList
	m.form = nil
	m.confirmForm = nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.mode == modeList {
			return m.handleListKey(msg)
		}
		if key.Matches(msg, m.keys.Back) {
			m.Reset()
			return m, nil
		}
	}

	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.categories) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.categories)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.categories) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.categories) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if cat, ok := m.current(); ok {
			return m, func() tea.Msg { return ToggleFilterMsg{ID: cat.ID} }
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		m.editingID = 0
		m.fb.name = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Edit):
		cat, ok := m.current()
		if !ok {
			return m, nil
		}
		m.editingID = cat.ID
		m.fb.name = cat.Name
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		if _, ok := m.current(); !ok {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) current() (model.Category, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.categories) {
		return model.Category{}, false
	}
	return m.categories[m.selectedIdx], true
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("Category name").
				Value(&m.fb.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth())
}

func (m Model) buildConfirmForm() *huh.Form {
	cat, _ := m.current()
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete category %q?", cat.Name)).
				Description("Its todos are kept without a category.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.mode = modeList
		name := strings.TrimSpace(m.fb.name)
		if m.editingID == 0 {
			return m, func() tea.Msg { return CreateMsg{Name: name} }
		}
		id := m.editingID
		return m, func() tea.Msg { return RenameMsg{ID: id, Name: name} }
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}

	switch m.confirmForm.State {
	case huh.StateCompleted:
		m.mode = modeList
		cat, ok := m.current()
		if m.fb.confirm && ok {
			return m, func() tea.Msg { return DeleteMsg{ID: cat.ID} }
		}
		return m, nil
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// View renders the category manager.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm(m.form)
	case modeConfirmDelete:
		return m.viewForm(m.confirmForm)
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	b.WriteString(theme.TitleStyle.Render("Categories"))
	b.WriteString("\n\n")

	if len(m.categories) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("No categories yet. Press 'n' to create one."))
	} else {
		for i, c := range m.categories {
			mark := "[ ]"
			if m.selected[c.ID] {
				mark = "[x]"
			}
			label := fmt.Sprintf("%s %d %s", mark, i+1, theme.CategoryStyle(c.ID).Render(c.Name))

			if i == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(theme.ListItemStyle.Render(label))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render(
		"space filter | n new | e rename | d delete | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Render(b.String())
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(f.View())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}
