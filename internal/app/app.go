package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/todolist/internal/client"
	"github.com/nhle/todolist/internal/keys"
	"github.com/nhle/todolist/internal/reorder"
	"github.com/nhle/todolist/internal/session"
	"github.com/nhle/todolist/internal/state"
	appsync "github.com/nhle/todolist/internal/sync"
	"github.com/nhle/todolist/internal/ui"
	"github.com/nhle/todolist/internal/ui/authform"
	"github.com/nhle/todolist/internal/ui/categorymgr"
	"github.com/nhle/todolist/internal/ui/command"
	helpview "github.com/nhle/todolist/internal/ui/help"
	"github.com/nhle/todolist/internal/ui/todoform"
	"github.com/nhle/todolist/internal/ui/todolist"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewAuth ViewState = iota
	ViewList
	ViewForm
	ViewCategories
	ViewHelp
	ViewCommand
)

// Queue reports requests waiting for the server.
type Queue interface {
	Pending() ([]client.QueuedRequest, error)
}

// Options wires the root model to the rest of the client.
type Options struct {
	Session *session.Session
	Monitor *appsync.Monitor
	Queue   Queue
	Logger  *slog.Logger
	// Context bounds every request the UI starts.
	Context context.Context
}

// Model is the root Bubble Tea model. It routes input to the active view,
// turns user intents into session calls and re-renders whenever the state
// store changes.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	ctx          context.Context
	logger       *slog.Logger

	session *session.Session
	store   *state.Store
	monitor *appsync.Monitor
	queue   Queue
	drag    *reorder.Machine

	// changes carries the latest state snapshot from the store observer.
	changes     chan state.State
	unsubscribe func()

	snapshot state.State
	pending  int

	todoList   todolist.Model
	todoForm   todoform.Model
	authForm   authform.Model
	categories categorymgr.Model
	helpView   helpview.Model
	command    command.Model
	ready      bool
}

// New creates the root model and subscribes it to the session's store.
func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	k := keys.DefaultKeyMap()
	store := opts.Session.Store()

	m := Model{
		keys:       k,
		ctx:        opts.Context,
		logger:     opts.Logger,
		session:    opts.Session,
		store:      store,
		monitor:    opts.Monitor,
		queue:      opts.Queue,
		drag:       reorder.NewMachine(),
		changes:    make(chan state.State, 1),
		snapshot:   store.Snapshot(),
		todoList:   todolist.New(80, 22),
		todoForm:   todoform.New(80, 22),
		authForm:   authform.New(80, 22),
		categories: categorymgr.New(k, 80, 22),
		helpView:   helpview.New(k, 80, 22),
		command:    command.New(80, 22),
	}
	m.unsubscribe = store.Subscribe(m.publish)

	m.currentView = ViewAuth
	if m.snapshot.IsAuthenticated {
		m.currentView = ViewList
	}
	m.syncViews()
	return m
}

// publish keeps only the newest snapshot in the channel.
func (m Model) publish(st state.State) {
	for {
		select {
		case m.changes <- st:
			return
		default:
		}
		select {
		case <-m.changes:
		default:
		}
	}
}

func (m Model) waitForState() tea.Cmd {
	ch := m.changes
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg{st: st}
	}
}

// Init restores the session, starts the connectivity monitor and begins
// listening for state changes.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.restore(), m.waitForState()}
	if m.monitor != nil {
		cmds = append(cmds, m.monitor.Start())
	}
	if m.currentView == ViewAuth {
		cmds = append(cmds, m.authForm.Start())
	}
	return tea.Batch(cmds...)
}

// Close detaches the model from the store and stops background work.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	if m.monitor != nil {
		m.monitor.Stop()
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.todoList.SetSize(w, h)
		m.todoForm.SetSize(w, h)
		m.authForm.SetSize(w, h)
		m.categories.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.command.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case stateMsg:
		return m.applyState(msg.st)

	case appsync.ConnectivityMsg:
		var cmd tea.Cmd
		if msg.Online {
			m.logger.Info("server reachable")
			cmd = m.wentOnline()
		} else {
			m.logger.Warn("server unreachable", "simulated", msg.Simulated, "error", msg.Err)
			m.session.WentOffline()
		}
		return m, tea.Batch(cmd, m.monitor.WaitForNext())

	case actionDoneMsg:
		if msg.err != nil {
			m.logger.Debug("action finished with error", "op", msg.op, "error", msg.err)
		}
		m.pending = m.countPending()
		return m, nil

	case authform.SubmitMsg:
		return m, m.authenticate(msg)

	case todoform.SubmittedMsg:
		m.currentView = ViewList
		m.store.ClearEditingTodo()
		return m, m.saveTodo(msg)

	case todoform.CancelMsg:
		m.currentView = ViewList
		m.store.ClearEditingTodo()
		return m, nil

	case categorymgr.CloseMsg:
		m.currentView = ViewList
		return m, nil

	case categorymgr.ToggleFilterMsg:
		m.store.ToggleCategoryFilter(msg.ID)
		return m, nil

	case categorymgr.CreateMsg:
		return m, m.run("create category", func(ctx context.Context) error {
			_, err := m.session.CreateCategory(ctx, msg.Name)
			return err
		})

	case categorymgr.RenameMsg:
		return m, m.run("rename category", func(ctx context.Context) error {
			return m.session.RenameCategory(ctx, msg.ID, msg.Name)
		})

	case categorymgr.DeleteMsg:
		return m, m.run("delete category", func(ctx context.Context) error {
			return m.session.DeleteCategory(ctx, msg.ID)
		})

	case command.Msg:
		if m.currentView == ViewCommand {
			m.currentView = m.previousView
		}
		return m.execute(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.currentView {
		case ViewList:
			return m.handleListKey(msg)
		case ViewHelp:
			if key.Matches(msg, m.keys.Help, m.keys.Back) {
				m.currentView = m.previousView
				return m, nil
			}
		case ViewCommand:
			if key.Matches(msg, m.keys.Back) {
				m.currentView = m.previousView
				return m, nil
			}
		case ViewForm:
			if key.Matches(msg, m.keys.Back) {
				m.currentView = ViewList
				m.store.ClearEditingTodo()
				return m, nil
			}
		}
	}

	return m.updateActiveView(msg)
}

// applyState re-renders from a new snapshot and switches between the
// sign-in screen and the list when the session changes.
func (m Model) applyState(st state.State) (tea.Model, tea.Cmd) {
	m.snapshot = st
	m.pending = m.countPending()
	cmds := []tea.Cmd{m.waitForState()}

	switch {
	case !st.IsAuthenticated && m.currentView != ViewAuth:
		m.drag.Cancel()
		m.currentView = ViewAuth
		cmds = append(cmds, m.authForm.Start())
	case st.IsAuthenticated && m.currentView == ViewAuth:
		m.currentView = ViewList
	}
	if m.currentView == ViewAuth {
		m.authForm.SetError(st.Error)
	}

	cmds = append(cmds, m.syncViews())
	return m, tea.Batch(cmds...)
}

// syncViews pushes the current snapshot into the list and category views.
func (m *Model) syncViews() tea.Cmd {
	m.categories.SetCategories(m.snapshot.Categories, m.snapshot.SelectedCategories.Sorted())
	return m.todoList.Sync(m.snapshot, time.Now(), m.grabbed())
}

func (m Model) grabbed() int {
	if m.drag.State() != reorder.Dragging {
		return -1
	}
	idx, _ := m.drag.Index()
	return idx
}

func (m Model) countPending() int {
	if m.queue == nil {
		return 0
	}
	entries, err := m.queue.Pending()
	if err != nil {
		return 0
	}
	return len(entries)
}

// handleListKey handles keys on the todo list. While a row is grabbed only
// movement and drop keys apply.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.drag.State() == reorder.Dragging {
		return m.handleDragKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.command.Focus()

	case key.Matches(msg, m.keys.New):
		m.todoForm.SetCategories(m.snapshot.Categories)
		m.currentView = ViewForm
		return m, m.todoForm.StartCreate()

	case key.Matches(msg, m.keys.Edit):
		t, ok := m.todoList.Selected()
		if !ok {
			return m, nil
		}
		m.store.SetEditingTodo(t)
		m.todoForm.SetCategories(m.snapshot.Categories)
		m.currentView = ViewForm
		return m, m.todoForm.StartEdit(t)

	case key.Matches(msg, m.keys.Toggle):
		t, ok := m.todoList.Selected()
		if !ok {
			return m, nil
		}
		return m, m.run("toggle", func(ctx context.Context) error {
			return m.session.ToggleDone(ctx, t.ID)
		})

	case key.Matches(msg, m.keys.Delete):
		t, ok := m.todoList.Selected()
		if !ok {
			return m, nil
		}
		return m, m.run("delete", func(ctx context.Context) error {
			return m.session.DeleteTodo(ctx, t.ID)
		})

	case key.Matches(msg, m.keys.Expand):
		if t, ok := m.todoList.Selected(); ok {
			m.store.ToggleExpandedTodo(t.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.Grab):
		m.drag.HandleDragStart(m.todoList.Len() > 1, m.todoList.Index())
		return m, m.syncViews()

	case key.Matches(msg, m.keys.CycleFilter):
		m.store.SetFilter(m.snapshot.Filter.Next())
		return m, nil

	case key.Matches(msg, m.keys.MoreDoneAge):
		m.store.SetDoneAgeFilter(m.snapshot.DoneAgeFilter + 1)
		return m, nil

	case key.Matches(msg, m.keys.LessDoneAge):
		m.store.SetDoneAgeFilter(max(m.snapshot.DoneAgeFilter-1, 1))
		return m, nil

	case key.Matches(msg, m.keys.CategoryFilter):
		n := int(msg.Runes[0] - '1')
		if n < len(m.snapshot.Categories) {
			m.store.ToggleCategoryFilter(m.snapshot.Categories[n].ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.ClearCategories):
		m.store.SelectAllCategories()
		return m, nil

	case key.Matches(msg, m.keys.Categories):
		m.categories.Reset()
		m.currentView = ViewCategories
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.monitor != nil {
			m.monitor.Refresh()
		}
		return m, m.run("sync", m.session.Sync)

	case key.Matches(msg, m.keys.ToggleOffline):
		m.toggleOffline()
		return m, nil

	case key.Matches(msg, m.keys.Logout):
		return m, m.run("logout", func(ctx context.Context) error {
			m.session.Logout(ctx)
			return nil
		})
	}

	var cmd tea.Cmd
	m.todoList, cmd = m.todoList.Update(msg)
	return m, cmd
}

// handleDragKey moves the grabbed row one step at a time. Every step is a
// local swap; dropping persists the final order once.
func (m Model) handleDragKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	idx, _ := m.drag.Index()
	var eff reorder.Effect

	switch {
	case key.Matches(msg, m.keys.Up):
		eff = m.drag.MoveTo(idx-1, m.todoList.Len())
	case key.Matches(msg, m.keys.Down):
		eff = m.drag.MoveTo(idx+1, m.todoList.Len())
	case key.Matches(msg, m.keys.Drop):
		eff = m.drag.TouchEnd()
	default:
		return m, nil
	}

	m.session.ApplyEffect(m.ctx, eff)
	return m, m.syncViews()
}

func (m Model) toggleOffline() {
	if m.monitor == nil {
		return
	}
	m.monitor.SetOnline(m.monitor.Status().Simulated)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewAuth:
		m.authForm, cmd = m.authForm.Update(msg)
	case ViewList:
		m.todoList, cmd = m.todoList.Update(msg)
	case ViewForm:
		m.todoForm, cmd = m.todoForm.Update(msg)
	case ViewCategories:
		m.categories, cmd = m.categories.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.command, cmd = m.command.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "todolist"
	if u := m.snapshot.User; u != nil && m.snapshot.IsAuthenticated {
		title += " · " + u.Email
	}
	conn, offline := m.connectionStatus()
	header := m.layout.RenderHeader(title, conn, offline)

	status := m.layout.RenderStatusBar(m.hints(), m.summary())
	return m.layout.RenderWithFrame(header, m.renderContent(), status)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewAuth:
		return m.authForm.View()
	case ViewList:
		return m.todoList.View()
	case ViewForm:
		return m.todoForm.View()
	case ViewCategories:
		return m.categories.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.command.View()
	default:
		return ""
	}
}

func (m Model) connectionStatus() (string, bool) {
	if m.monitor == nil {
		return "online", false
	}
	st := m.monitor.Status()
	switch {
	case st.Simulated:
		return "offline (simulated)", true
	case !st.Online:
		return "offline", true
	default:
		return "online", false
	}
}

// summary is the right side of the status bar.
func (m Model) summary() string {
	if !m.snapshot.IsAuthenticated {
		return ""
	}
	out := m.store.StatusText()
	if m.pending > 0 {
		out += fmt.Sprintf(" · %d queued", m.pending)
	}
	return out
}

// hints is the left side of the status bar. Errors take precedence.
func (m Model) hints() string {
	if m.snapshot.Error != "" && m.currentView != ViewAuth {
		return m.snapshot.Error
	}

	switch m.currentView {
	case ViewAuth:
		return "tab next field | enter submit | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewForm:
		return "enter submit | esc cancel"
	case ViewCategories:
		return "space filter | n new | e rename | d delete | esc back"
	default:
		if m.drag.State() == reorder.Dragging {
			return "↑/↓ move | m/enter drop"
		}
		return m.helpView.ShortView()
	}
}
