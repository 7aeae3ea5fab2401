// Package session connects user intents to the client state and the API
// gateway. Changes are applied locally first and then sent to the server;
// the server's reply reconciles the local copy.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nhle/todolist/internal/client"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/reorder"
	"github.com/nhle/todolist/internal/state"
)

const msgSessionExpired = "Session expired, please sign in again"

// Gateway is the part of client.Client the session drives.
type Gateway interface {
	state.Fetcher

	Register(ctx context.Context, creds model.Credentials) error
	Login(ctx context.Context, creds model.Credentials) error
	Logout(ctx context.Context) error
	User() (model.User, bool)
	Authenticated() bool

	CreateTodo(ctx context.Context, in model.NewTodo) (*model.Todo, error)
	UpdateTodo(ctx context.Context, id int64, patches ...model.TodoPatch) (*model.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
	ReorderTodos(ctx context.Context, ids []int64) ([]model.Todo, error)

	CreateCategory(ctx context.Context, name string) (*model.Category, error)
	RenameCategory(ctx context.Context, id int64, name string) (*model.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	FlushQueue(ctx context.Context) (client.FlushResult, error)
	RewriteQueued(ref string, body any) (bool, error)
	CancelQueued(ref string) (bool, error)
}

// Session orchestrates one signed-in user.
type Session struct {
	store  *state.Store
	api    Gateway
	logger *slog.Logger
	now    func() time.Time

	// tempID hands out negative ids for todos created while offline.
	tempID atomic.Int64
	// background tracks fire-and-forget reorder requests.
	background sync.WaitGroup
}

// New creates a Session over store and api. A nil logger uses slog.Default().
func New(store *state.Store, api Gateway, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{store: store, api: api, logger: logger, now: time.Now}

	lowest := int64(0)
	for _, t := range store.Snapshot().Todos {
		lowest = min(lowest, t.ID)
	}
	s.tempID.Store(lowest)
	return s
}

// Store returns the state store the session writes to.
func (s *Session) Store() *state.Store { return s.store }

// Restore reconciles persisted session state with the stored token and
// refreshes data when signed in.
func (s *Session) Restore(ctx context.Context) error {
	user, ok := s.api.User()
	if !ok || !s.api.Authenticated() {
		if s.store.Snapshot().IsAuthenticated {
			s.store.SetUnauthenticated()
		}
		return nil
	}
	s.store.SetAuthenticated(user)
	return s.Sync(ctx)
}

// Sync refreshes todos and categories from the server.
func (s *Session) Sync(ctx context.Context) error {
	return s.store.SyncWithServer(ctx, s.api)
}

// Register creates an account and signs in.
func (s *Session) Register(ctx context.Context, creds model.Credentials) error {
	return s.authenticate(ctx, creds, s.api.Register)
}

// Login signs in.
func (s *Session) Login(ctx context.Context, creds model.Credentials) error {
	return s.authenticate(ctx, creds, s.api.Login)
}

func (s *Session) authenticate(
	ctx context.Context,
	creds model.Credentials,
	call func(context.Context, model.Credentials) error,
) error {
	if err := call(ctx, creds); err != nil {
		s.store.SetError(err.Error())
		return err
	}

	user, ok := s.api.User()
	if !ok {
		user = model.User{Email: creds.Email}
	}
	s.store.SetAuthenticated(user)
	s.logger.Info("signed in", "email", user.Email)

	if err := s.Sync(ctx); err != nil {
		s.logger.Warn("initial sync failed", "error", err)
	}
	return nil
}

// Logout tells the server, then drops all local account data whatever the
// server answered.
func (s *Session) Logout(ctx context.Context) {
	s.Wait()
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("logout request failed", "error", err)
	}
	s.store.SetUnauthenticated()
	s.store.ClearError()
}

// AddTodo creates a todo. While offline the request is queued and a
// provisional todo with a negative id stands in until the next sync.
func (s *Session) AddTodo(ctx context.Context, in model.NewTodo) (model.Todo, error) {
	if err := in.Validate(); err != nil {
		s.store.SetError(err.Error())
		return model.Todo{}, err
	}

	tmp := s.tempID.Add(-1)
	created, err := s.api.CreateTodo(client.WithQueueRef(ctx, provisionalRef(tmp)), in)
	switch {
	case err == nil:
		s.store.AddTodo(*created)
		return *created, nil
	case errors.Is(err, client.ErrQueued):
		t := in.Todo(s.now())
		t.ID = tmp
		t.Order = s.store.TotalCount()
		s.store.AddTodo(t)
		return t, nil
	default:
		return model.Todo{}, s.fail(err)
	}
}

// ToggleDone flips the done flag of a todo.
func (s *Session) ToggleDone(ctx context.Context, id int64) error {
	t, ok := s.store.TodoByID(id)
	if !ok {
		return fmt.Errorf("todo %d: %w", id, errNotLoaded)
	}
	return s.Apply(ctx, id, model.SetDone{Done: !t.Done})
}

var (
	errNotLoaded = errors.New("not in the local list")
	// errReplaying means a provisional todo's create is already on its way
	// to the server; the sync that follows replaces the local copy.
	errReplaying = errors.New("still syncing, try again in a moment")
)

// provisionalRef tags the queued create of the provisional todo id.
func provisionalRef(id int64) string {
	return fmt.Sprintf("todo:%d", id)
}

// Apply changes fields of a todo: locally at once, then on the server.
func (s *Session) Apply(ctx context.Context, id int64, patches ...model.TodoPatch) error {
	if err := model.UpdateFromPatches(patches...).Validate(); err != nil {
		s.store.SetError(err.Error())
		return err
	}
	if _, ok := s.store.TodoByID(id); !ok {
		return fmt.Errorf("todo %d: %w", id, errNotLoaded)
	}

	s.store.UpdateTodo(id, patches...)
	if id < 0 {
		// Not on the server yet: fold the change into the queued create.
		t, ok := s.store.TodoByID(id)
		if !ok {
			return nil
		}
		found, err := s.api.RewriteQueued(provisionalRef(id), t.AsNew())
		return s.provisional(id, found, err)
	}

	updated, err := s.api.UpdateTodo(ctx, id, patches...)
	if err != nil {
		return s.fail(err, id)
	}
	s.store.ReplaceTodo(id, *updated)
	return nil
}

// DeleteTodo removes a todo locally and on the server.
func (s *Session) DeleteTodo(ctx context.Context, id int64) error {
	if id < 0 {
		found, err := s.api.CancelQueued(provisionalRef(id))
		if err == nil && found {
			s.store.RemoveTodo(id)
		}
		return s.provisional(id, found, err)
	}
	s.store.RemoveTodo(id)

	err := s.api.DeleteTodo(ctx, id)
	if client.Classify(err) == client.KindNotFound {
		return nil
	}
	return s.fail(err)
}

// Swap exchanges two rows of the visible list locally. Touch and keyboard
// drags call it for every intermediate move.
func (s *Session) Swap(from, to int) {
	s.store.SwapVisible(from, to)
}

// Reorder swaps two visible rows and persists the new order.
func (s *Session) Reorder(ctx context.Context, from, to int) {
	s.Swap(from, to)
	s.FinalizeReorder(ctx)
}

// FinalizeReorder sends the current local order to the server in the
// background. The local order is never rolled back.
func (s *Session) FinalizeReorder(ctx context.Context) {
	var ids []int64
	for _, t := range s.store.Snapshot().Todos {
		if t.ID > 0 {
			ids = append(ids, t.ID)
		}
	}

	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		if _, err := s.api.ReorderTodos(ctx, ids); err != nil {
			s.logger.Warn("persisting order", "error", err, "kind", client.Classify(err))
			if client.Classify(err) == client.KindUnauthorized {
				s.expire()
			}
		}
	}()
}

// ApplyEffect performs what a drag gesture transition asks for.
func (s *Session) ApplyEffect(ctx context.Context, eff reorder.Effect) {
	switch eff.Kind {
	case reorder.EffectSwap:
		s.Swap(eff.From, eff.To)
	case reorder.EffectFinalize:
		if eff.From != eff.To {
			s.Swap(eff.From, eff.To)
		}
		s.FinalizeReorder(ctx)
	}
}

// Wait blocks until background requests have finished.
func (s *Session) Wait() {
	s.background.Wait()
}

// CreateCategory creates a category on the server and adds it locally.
func (s *Session) CreateCategory(ctx context.Context, name string) (model.Category, error) {
	cat, err := s.api.CreateCategory(ctx, name)
	if err != nil {
		return model.Category{}, s.fail(err)
	}
	s.store.AddCategory(*cat)
	return *cat, nil
}

// RenameCategory renames a category on the server and locally.
func (s *Session) RenameCategory(ctx context.Context, id int64, name string) error {
	cat, err := s.api.RenameCategory(ctx, id, name)
	if err != nil {
		return s.fail(err)
	}
	s.store.RenameCategory(cat.ID, cat.Name)
	return nil
}

// DeleteCategory removes a category locally, uncategorizing its todos, and
// then on the server.
func (s *Session) DeleteCategory(ctx context.Context, id int64) error {
	s.store.RemoveCategory(id)
	err := s.api.DeleteCategory(ctx, id)
	if client.Classify(err) == client.KindNotFound {
		return nil
	}
	return s.fail(err)
}

// WentOnline replays queued requests and then resyncs.
func (s *Session) WentOnline(ctx context.Context) error {
	res, err := s.api.FlushQueue(ctx)
	if err != nil {
		s.logger.Error("flushing offline queue", "error", err)
	} else if res.Replayed+res.Failed > 0 {
		s.logger.Info("replayed offline changes", "replayed", res.Replayed, "failed", res.Failed)
	}

	if !s.store.Snapshot().IsAuthenticated {
		s.store.ClearError()
		return nil
	}
	// Provisional todos are replaced by the server's copies on sync.
	return s.store.HandleOnline(ctx, s.api)
}

// WentOffline shows the offline notice.
func (s *Session) WentOffline() {
	s.store.HandleOffline()
}

// fail records err in the state according to its kind and returns it.
// Queued requests are not failures. notFound names a todo to drop on 404.
func (s *Session) fail(err error, notFound ...int64) error {
	switch client.Classify(err) {
	case client.KindNone, client.KindQueued:
		return nil
	case client.KindUnauthorized:
		s.expire()
	case client.KindNetwork:
		s.store.HandleOffline()
	case client.KindNotFound:
		for _, id := range notFound {
			s.store.RemoveTodo(id)
		}
		s.store.SetError(err.Error())
	default:
		s.store.SetError(err.Error())
	}
	return err
}

// provisional reports the outcome of changing the queued create of a
// provisional todo.
func (s *Session) provisional(id int64, found bool, err error) error {
	switch {
	case err != nil:
		s.logger.Error("updating queued todo", "todo", id, "error", err)
		s.store.SetError(err.Error())
		return err
	case !found:
		err := fmt.Errorf("todo %d: %w", id, errReplaying)
		s.store.SetError(err.Error())
		return err
	}
	return nil
}

func (s *Session) expire() {
	s.store.SetUnauthenticated()
	s.store.SetError(msgSessionExpired)
}
