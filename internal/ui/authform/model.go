// Package authform is the sign-in screen shown while no session exists.
package authform

import (
	"errors"
	"net/mail"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/theme"
)

// SubmitMsg asks the parent to sign in, or to create the account first
// when Register is set.
type SubmitMsg struct {
	Register bool
	Creds    model.Credentials
}

const (
	actionLogin    = "login"
	actionRegister = "register"
)

type formBindings struct {
	action   string
	email    string
	password string
}

// Model wraps a huh form collecting credentials.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	err    string
	width  int
	height int
}

// New creates the sign-in form.
func New(width, height int) Model {
	m := Model{
		fb:     &formBindings{action: actionLogin},
		width:  width,
		height: height,
	}
	m.form = m.buildForm()
	return m
}

// Start resets the form, keeping the last email.
func (m *Model) Start() tea.Cmd {
	m.fb.password = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// SetError shows msg above the form.
func (m *Model) SetError(msg string) {
	m.err = msg
}

// Update handles messages for the form. An aborted form restarts.
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
		submit := SubmitMsg{
			Register: m.fb.action == actionRegister,
			Creds: model.Credentials{
				Email:    strings.TrimSpace(m.fb.email),
				Password: m.fb.password,
			},
		}
		m.err = ""
		return m, tea.Batch(m.Start(), func() tea.Msg { return submit })
	case huh.StateAborted:
		return m, m.Start()
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	parts := []string{theme.TitleStyle.Render("Sign in to todolist")}
	if m.err != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.err))
	}
	parts = append(parts, m.form.View())

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Account").
				Options(
					huh.NewOption("Sign in", actionLogin),
					huh.NewOption("Create account", actionRegister),
				).
				Value(&m.fb.action),
			huh.NewInput().
				Title("Email").
				Value(&m.fb.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(validatePassword),
		),
	).WithWidth(min(max(m.width-4, 40), 80))
}

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}

func validatePassword(s string) error {
	if s == "" {
		return errors.New("password is required")
	}
	return nil
}
