// Package testserver starts the REST API over an in-memory store for
// end-to-end tests of the client, state and session packages.
package testserver

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nhle/todolist/internal/auth"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/server"
	"github.com/nhle/todolist/internal/store"
	"github.com/nhle/todolist/internal/testutil"
)

// Server is a running API backed by Store.
type Server struct {
	*httptest.Server
	Store *store.SQLiteStore
}

// New starts an API server and closes it when the test completes.
func New(t *testing.T) *Server {
	t.Helper()

	st := testutil.NewTestStore(t)
	svc := auth.NewService(st, auth.NewIssuer("test-secret", time.Hour))
	api := server.New(st, svc, model.ServerConfig{LoginPerMinute: 6000, LoginBurst: 1000},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)

	return &Server{Server: ts, Store: st}
}
