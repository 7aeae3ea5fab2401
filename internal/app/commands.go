package app

import (
	"context"
	"fmt"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todolist/internal/state"
	"github.com/nhle/todolist/internal/ui/authform"
	"github.com/nhle/todolist/internal/ui/command"
	"github.com/nhle/todolist/internal/ui/todoform"
)

// stateMsg carries a new snapshot from the state store.
type stateMsg struct {
	st state.State
}

// actionDoneMsg is sent after a session call returns. Failures are already
// reflected in the state's error message.
type actionDoneMsg struct {
	op  string
	err error
}

// run performs a session call off the UI goroutine.
func (m Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{op: op, err: fn(ctx)}
	}
}

// restore reconciles the persisted session with the stored token.
func (m Model) restore() tea.Cmd {
	return m.run("restore", m.session.Restore)
}

// wentOnline replays the offline queue and resyncs.
func (m Model) wentOnline() tea.Cmd {
	return m.run("online", m.session.WentOnline)
}

// authenticate signs in or registers.
func (m Model) authenticate(msg authform.SubmitMsg) tea.Cmd {
	if msg.Register {
		return m.run("register", func(ctx context.Context) error {
			return m.session.Register(ctx, msg.Creds)
		})
	}
	return m.run("login", func(ctx context.Context) error {
		return m.session.Login(ctx, msg.Creds)
	})
}

// saveTodo creates a todo or applies the edited fields. Edits are diffed
// against the current local copy so untouched fields are not sent.
func (m Model) saveTodo(msg todoform.SubmittedMsg) tea.Cmd {
	if msg.EditID == 0 {
		return m.run("add", func(ctx context.Context) error {
			_, err := m.session.AddTodo(ctx, msg.Values.NewTodo())
			return err
		})
	}

	current, ok := m.store.TodoByID(msg.EditID)
	if !ok {
		return nil
	}
	patches := msg.Values.Patches(current)
	if len(patches) == 0 {
		return nil
	}
	return m.run("edit", func(ctx context.Context) error {
		return m.session.Apply(ctx, msg.EditID, patches...)
	})
}

// execute runs a command palette entry.
func (m Model) execute(msg command.Msg) (tea.Model, tea.Cmd) {
	switch msg.Name {
	case "sync", "refresh":
		if m.monitor != nil {
			m.monitor.Refresh()
		}
		return m, m.run("sync", m.session.Sync)

	case "offline":
		if m.monitor != nil {
			m.monitor.SetOnline(false)
		}
		return m, nil

	case "online":
		if m.monitor != nil {
			m.monitor.SetOnline(true)
		}
		return m, nil

	case "filter":
		f := state.Filter(msg.Arg)
		if !f.Valid() {
			m.store.SetError(fmt.Sprintf("Unknown filter %q", msg.Arg))
			return m, nil
		}
		m.store.SetFilter(f)
		return m, nil

	case "done-age":
		days, err := strconv.Atoi(msg.Arg)
		if err != nil || days < 0 {
			m.store.SetError("done-age needs a number of days")
			return m, nil
		}
		m.store.SetDoneAgeFilter(days)
		return m, nil

	case "categories":
		m.categories.Reset()
		m.currentView = ViewCategories
		return m, nil

	case "logout":
		return m, m.run("logout", func(ctx context.Context) error {
			m.session.Logout(ctx)
			return nil
		})

	case "quit", "q":
		return m, tea.Quit

	default:
		m.store.SetError(fmt.Sprintf("Unknown command %q", msg.Name))
		return m, nil
	}
}
