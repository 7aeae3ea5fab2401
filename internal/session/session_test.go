package session_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nhle/todolist/internal/client"
	"github.com/nhle/todolist/internal/credential"
	"github.com/nhle/todolist/internal/localstore"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/reorder"
	"github.com/nhle/todolist/internal/session"
	"github.com/nhle/todolist/internal/state"
	"github.com/nhle/todolist/internal/testutil/testserver"
)

type switchable struct{ offline atomic.Bool }

func (s *switchable) Online() bool { return !s.offline.Load() }

type harness struct {
	srv     *testserver.Server
	api     *client.Client
	conn    *switchable
	storage *localstore.MemoryStorage
	sess    *session.Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := testserver.New(t)
	storage := localstore.NewMemoryStorage()
	conn := &switchable{}
	api := client.New(srv.URL, client.Options{
		Tokens:       credential.NewStorageTokens(storage),
		Storage:      storage,
		Connectivity: conn,
		Logger:       discard,
	})
	st := state.New(storage, state.WithLogger(discard))

	h := &harness{srv: srv, api: api, conn: conn, storage: storage, sess: session.New(st, api, discard)}
	t.Cleanup(h.sess.Wait)
	return h
}

func (h *harness) register(t *testing.T) {
	t.Helper()
	err := h.sess.Register(context.Background(), model.Credentials{Email: "user@test.com", Password: "pw12345"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func (h *harness) serverTodos(t *testing.T) []model.Todo {
	t.Helper()
	todos, err := h.api.ListTodos(context.Background())
	if err != nil {
		t.Fatalf("ListTodos: %v", err)
	}
	return todos
}

func names(todos []model.Todo) []string {
	out := make([]string, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.Name)
	}
	return out
}

func TestRegisterAddToggleStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	st := h.sess.Store().Snapshot()
	if !st.IsAuthenticated || st.User == nil || st.User.Email != "user@test.com" {
		t.Fatalf("not signed in: %+v", st.User)
	}

	todo, err := h.sess.AddTodo(ctx, model.NewTodo{Name: "Buy milk"})
	if err != nil {
		t.Fatalf("AddTodo: %v", err)
	}
	if todo.ID <= 0 {
		t.Errorf("server id = %d", todo.ID)
	}

	if err := h.sess.ToggleDone(ctx, todo.ID); err != nil {
		t.Fatalf("ToggleDone: %v", err)
	}
	if got := h.sess.Store().StatusText(); got != "1/1 completed" {
		t.Errorf("StatusText() = %q, want %q", got, "1/1 completed")
	}

	server := h.serverTodos(t)
	if len(server) != 1 || !server[0].Done || server[0].DoneAt == nil {
		t.Errorf("server copy = %+v", server)
	}
	local, _ := h.sess.Store().TodoByID(todo.ID)
	if local.DoneAt == nil || !local.DoneAt.Equal(*server[0].DoneAt) {
		t.Errorf("local done_at %v not reconciled with server %v", local.DoneAt, server[0].DoneAt)
	}
}

func TestLoginFailureShowsError(t *testing.T) {
	h := newHarness(t)
	h.register(t)
	h.sess.Logout(context.Background())

	err := h.sess.Login(context.Background(), model.Credentials{Email: "user@test.com", Password: "nope"})
	if client.Classify(err) != client.KindUnauthorized {
		t.Fatalf("Login error = %v", err)
	}
	st := h.sess.Store().Snapshot()
	if st.IsAuthenticated || st.Error != "Invalid credentials" {
		t.Errorf("state = authenticated %v, error %q", st.IsAuthenticated, st.Error)
	}
}

func TestAddTodoValidation(t *testing.T) {
	h := newHarness(t)
	h.register(t)

	if _, err := h.sess.AddTodo(context.Background(), model.NewTodo{Name: "  "}); err == nil {
		t.Fatal("expected a validation error")
	}
	if h.sess.Store().Snapshot().Error == "" {
		t.Error("validation error not surfaced")
	}
	if len(h.serverTodos(t)) != 0 {
		t.Error("invalid todo reached the server")
	}
}

func TestOfflineAddReplaysAfterReconnect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	h.conn.offline.Store(true)
	h.sess.WentOffline()

	provisional, err := h.sess.AddTodo(ctx, model.NewTodo{Name: "Buy milk"})
	if err != nil {
		t.Fatalf("offline AddTodo: %v", err)
	}
	if provisional.ID >= 0 {
		t.Errorf("provisional id = %d, want negative", provisional.ID)
	}
	st := h.sess.Store().Snapshot()
	if len(st.Todos) != 1 || st.Error != "Offline - using cached data" {
		t.Errorf("offline state = %+v", st)
	}

	h.conn.offline.Store(false)
	if err := h.sess.WentOnline(ctx); err != nil {
		t.Fatalf("WentOnline: %v", err)
	}

	server := h.serverTodos(t)
	if diff := cmp.Diff([]string{"Buy milk"}, names(server)); diff != "" {
		t.Errorf("server todos mismatch (-want +got):\n%s", diff)
	}
	st = h.sess.Store().Snapshot()
	if len(st.Todos) != 1 || st.Todos[0].ID != server[0].ID || st.Error != "" {
		t.Errorf("state after reconnect = %+v", st)
	}

	if err := h.sess.WentOnline(ctx); err != nil {
		t.Fatalf("second WentOnline: %v", err)
	}
	if n := len(h.serverTodos(t)); n != 1 {
		t.Errorf("server has %d todos after second flush, want 1", n)
	}
}

func TestOfflineChangesToProvisionalTodosReachServer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	h.conn.offline.Store(true)
	h.sess.WentOffline()

	milk, err := h.sess.AddTodo(ctx, model.NewTodo{Name: "Buy milk"})
	if err != nil {
		t.Fatalf("AddTodo(Buy milk): %v", err)
	}
	call, err := h.sess.AddTodo(ctx, model.NewTodo{Name: "Call mom"})
	if err != nil {
		t.Fatalf("AddTodo(Call mom): %v", err)
	}

	if err := h.sess.ToggleDone(ctx, milk.ID); err != nil {
		t.Fatalf("ToggleDone: %v", err)
	}
	if err := h.sess.Apply(ctx, milk.ID, model.RenameTodo{Name: "Buy oat milk"}, model.SetPriority{Priority: 3}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := h.sess.DeleteTodo(ctx, call.ID); err != nil {
		t.Fatalf("DeleteTodo: %v", err)
	}

	pending, err := h.api.Pending()
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %+v, want only the create of the kept todo", pending)
	}

	h.conn.offline.Store(false)
	if err := h.sess.WentOnline(ctx); err != nil {
		t.Fatalf("WentOnline: %v", err)
	}

	server := h.serverTodos(t)
	if len(server) != 1 {
		t.Fatalf("server todos = %v, want one", names(server))
	}
	got := server[0]
	if got.Name != "Buy oat milk" || !got.Done || got.DoneAt == nil || got.Priority != 3 {
		t.Errorf("server todo = %+v", got)
	}

	local := h.sess.Store().Snapshot().Todos
	if len(local) != 1 || local[0].ID != got.ID || !local[0].Done {
		t.Errorf("local todos after reconnect = %+v", local)
	}
}

func TestProvisionalTodoChangeDuringReplayIsReported(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	h.conn.offline.Store(true)
	tmp, err := h.sess.AddTodo(ctx, model.NewTodo{Name: "Buy milk"})
	if err != nil {
		t.Fatalf("AddTodo: %v", err)
	}
	// The queued create is gone, as if a flush had already taken it.
	pending, err := h.api.Pending()
	if err != nil || len(pending) != 1 || pending[0].Ref == "" {
		t.Fatalf("Pending = %+v, %v", pending, err)
	}
	if _, err := h.api.CancelQueued(pending[0].Ref); err != nil {
		t.Fatalf("CancelQueued: %v", err)
	}

	if err := h.sess.DeleteTodo(ctx, tmp.ID); err == nil {
		t.Error("DeleteTodo succeeded without a queued create to cancel")
	}
	st := h.sess.Store().Snapshot()
	if len(st.Todos) != 1 || st.Error == "" {
		t.Errorf("state = %+v, want the todo kept and an error shown", st)
	}
}

func TestUpdateOfDeletedTodoRemovesItLocally(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	todo, err := h.sess.AddTodo(ctx, model.NewTodo{Name: "gone soon"})
	if err != nil {
		t.Fatalf("AddTodo: %v", err)
	}
	user, _ := h.api.User()
	if err := h.srv.Store.DeleteTodo(ctx, user.ID, todo.ID); err != nil {
		t.Fatalf("deleting on server: %v", err)
	}

	err = h.sess.Apply(ctx, todo.ID, model.RenameTodo{Name: "renamed"})
	if client.Classify(err) != client.KindNotFound {
		t.Fatalf("Apply error = %v", err)
	}
	st := h.sess.Store().Snapshot()
	if len(st.Todos) != 0 || st.Error != "Todo not found" {
		t.Errorf("state = %+v", st)
	}
}

func TestExpiredSessionSignsOut(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	todo, err := h.sess.AddTodo(ctx, model.NewTodo{Name: "a"})
	if err != nil {
		t.Fatalf("AddTodo: %v", err)
	}
	if err := credential.NewStorageTokens(h.storage).SetToken("expired"); err != nil {
		t.Fatal(err)
	}

	if err := h.sess.ToggleDone(ctx, todo.ID); client.Classify(err) != client.KindUnauthorized {
		t.Fatalf("ToggleDone error = %v", err)
	}
	st := h.sess.Store().Snapshot()
	if st.IsAuthenticated || len(st.Todos) != 0 || st.Error == "" {
		t.Errorf("state after 401 = %+v", st)
	}
}

func TestDeleteTodo(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	a, _ := h.sess.AddTodo(ctx, model.NewTodo{Name: "a"})
	b, _ := h.sess.AddTodo(ctx, model.NewTodo{Name: "b"})

	if err := h.sess.DeleteTodo(ctx, a.ID); err != nil {
		t.Fatalf("DeleteTodo: %v", err)
	}
	if err := h.sess.DeleteTodo(ctx, a.ID); err != nil {
		t.Errorf("deleting an already deleted todo: %v", err)
	}
	if diff := cmp.Diff([]string{"b"}, names(h.serverTodos(t))); diff != "" {
		t.Errorf("server mismatch (-want +got):\n%s", diff)
	}
	if _, ok := h.sess.Store().TodoByID(b.ID); !ok || h.sess.Store().TotalCount() != 1 {
		t.Error("local list out of step")
	}
}

func TestReorderPersistsSwap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	for _, name := range []string{"A", "B", "C"} {
		if _, err := h.sess.AddTodo(ctx, model.NewTodo{Name: name}); err != nil {
			t.Fatalf("AddTodo(%s): %v", name, err)
		}
	}

	h.sess.Reorder(ctx, 0, 2)
	if diff := cmp.Diff([]string{"C", "B", "A"}, names(h.sess.Store().Snapshot().Todos)); diff != "" {
		t.Errorf("local order mismatch (-want +got):\n%s", diff)
	}

	h.sess.Wait()
	if diff := cmp.Diff([]string{"C", "B", "A"}, names(h.serverTodos(t))); diff != "" {
		t.Errorf("server order mismatch (-want +got):\n%s", diff)
	}
}

func TestDragEffectsSendOnlyFinalOrder(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	for _, name := range []string{"A", "B", "C", "D"} {
		if _, err := h.sess.AddTodo(ctx, model.NewTodo{Name: name}); err != nil {
			t.Fatalf("AddTodo(%s): %v", name, err)
		}
	}

	m := reorder.NewMachine()
	m.HandleDragStart(true, 0)
	for target := 1; target <= 3; target++ {
		h.sess.ApplyEffect(ctx, m.MoveTo(target, 4))
	}
	if diff := cmp.Diff([]string{"A", "B", "C", "D"}, names(h.serverTodos(t))); diff != "" {
		t.Errorf("server changed before the drop (-want +got):\n%s", diff)
	}

	h.sess.ApplyEffect(ctx, m.TouchEnd())
	h.sess.Wait()

	want := []string{"B", "C", "D", "A"}
	if diff := cmp.Diff(want, names(h.sess.Store().Snapshot().Todos)); diff != "" {
		t.Errorf("local order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, names(h.serverTodos(t))); diff != "" {
		t.Errorf("server order mismatch (-want +got):\n%s", diff)
	}
}

func TestSwapDoesNotLoseConcurrentAdds(t *testing.T) {
	h := newHarness(t)
	store := h.sess.Store()
	store.SetTodos([]model.Todo{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}})

	const n = 500
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range n {
			store.AddTodo(model.Todo{ID: int64(100 + i), Name: "added"})
		}
	}()
	go func() {
		defer wg.Done()
		for range n {
			h.sess.Swap(0, 1)
		}
	}()
	wg.Wait()

	if got := store.TotalCount(); got != n+2 {
		t.Errorf("TotalCount() = %d, want %d", got, n+2)
	}
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)

	work, err := h.sess.CreateCategory(ctx, "Work")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if err := h.sess.RenameCategory(ctx, work.ID, "Office"); err != nil {
		t.Fatalf("RenameCategory: %v", err)
	}
	if c, ok := h.sess.Store().CategoryByID(work.ID); !ok || c.Name != "Office" {
		t.Errorf("local category = %+v", c)
	}

	todo, err := h.sess.AddTodo(ctx, model.NewTodo{Name: "report"})
	if err != nil {
		t.Fatalf("AddTodo: %v", err)
	}
	if err := h.sess.Apply(ctx, todo.ID, model.SetCategory{CategoryID: &work.ID}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	h.sess.Store().SelectOnlyCategory(work.ID)
	if n := len(h.sess.Store().FilteredTodos()); n != 1 {
		t.Errorf("filtered = %d, want 1", n)
	}

	if err := h.sess.DeleteCategory(ctx, work.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	local, _ := h.sess.Store().TodoByID(todo.ID)
	if local.CategoryID != nil {
		t.Errorf("local category_id = %v", *local.CategoryID)
	}
	server := h.serverTodos(t)
	if len(server) != 1 || server[0].CategoryID != nil {
		t.Errorf("server todos = %+v", server)
	}
}

func TestLogoutAndRestore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t)
	if _, err := h.sess.AddTodo(ctx, model.NewTodo{Name: "kept on server"}); err != nil {
		t.Fatal(err)
	}

	// A fresh process over the same storage resumes the session.
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	resumed := session.New(state.New(h.storage, state.WithLogger(discard)), h.api, discard)
	if err := resumed.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if st := resumed.Store().Snapshot(); !st.IsAuthenticated || len(st.Todos) != 1 {
		t.Errorf("restored state = %+v", st)
	}

	resumed.Logout(ctx)
	if h.api.Authenticated() {
		t.Error("token kept after Logout")
	}
	if st := resumed.Store().Snapshot(); st.IsAuthenticated || len(st.Todos) != 0 {
		t.Errorf("state after Logout = %+v", st)
	}

	again := session.New(state.New(h.storage, state.WithLogger(discard)), h.api, discard)
	if err := again.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if again.Store().Snapshot().IsAuthenticated {
		t.Error("restored a signed-out session")
	}
}
