package state

import (
	"context"
	"errors"

	"github.com/sourcegraph/conc/pool"

	"github.com/nhle/todolist/internal/client"
	"github.com/nhle/todolist/internal/model"
)

const offlineMessage = "Offline - using cached data"

// Fetcher loads the account's data from the server.
type Fetcher interface {
	ListTodos(ctx context.Context) ([]model.Todo, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
}

// SyncWithServer replaces todos and categories with the server's copies.
// On failure the cached data stays and the error message explains why; an
// expired session signs the user out. It does nothing while signed out.
func (s *Store) SyncWithServer(ctx context.Context, api Fetcher) error {
	if !s.Snapshot().IsAuthenticated {
		return nil
	}
	s.SetLoading(true)

	var (
		todos []model.Todo
		cats  []model.Category
	)
	p := pool.New().WithContext(ctx).WithFirstError()
	p.Go(func(ctx context.Context) error {
		var err error
		todos, err = api.ListTodos(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		cats, err = api.ListCategories(ctx)
		return err
	})

	if err := p.Wait(); err != nil {
		s.logger.Warn("sync with server failed", "error", err)
		if errors.Is(err, client.ErrUnauthorized) {
			s.SetState(func(st *State) { st.Loading = false })
			s.SetUnauthenticated()
			return err
		}
		msg := offlineMessage
		if !client.IsNetwork(err) {
			msg = "Sync error: " + err.Error()
		}
		s.SetState(func(st *State) {
			st.Loading = false
			st.Error = msg
		})
		return err
	}

	s.SetState(func(st *State) {
		st.Todos = todos
		st.Categories = cats
		st.Loading = false
		st.Error = ""
	})
	return nil
}

// HandleOnline clears the offline notice and resyncs when there is cached
// data to refresh.
func (s *Store) HandleOnline(ctx context.Context, api Fetcher) error {
	s.ClearError()
	st := s.Snapshot()
	if len(st.Todos) == 0 && len(st.Categories) == 0 {
		return nil
	}
	return s.SyncWithServer(ctx, api)
}
