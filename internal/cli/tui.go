package cli

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/todolist/internal/app"
	"github.com/nhle/todolist/internal/client"
	"github.com/nhle/todolist/internal/credential"
	"github.com/nhle/todolist/internal/localstore"
	"github.com/nhle/todolist/internal/session"
	"github.com/nhle/todolist/internal/state"
	appsync "github.com/nhle/todolist/internal/sync"
)

func newTUICmd(a *App) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal client",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				a.cfg.Client.BaseURL = serverURL
			}
			return runTUI(cmd.Context(), a)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "", "API base URL (overrides config)")
	return cmd
}

func runTUI(ctx context.Context, a *App) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := a.cfg.Client

	// The terminal belongs to the UI, so logs always go to a file.
	if a.cfg.Log.File == "" {
		a.cfg.Log.File = filepath.Join(filepath.Dir(cfg.StateFile), "todolist.log")
	}
	if err := a.useLogger(nil); err != nil {
		return err
	}
	logger := a.logger

	storage, err := localstore.NewFileStorage(cfg.StateFile)
	if err != nil {
		return err
	}

	var tokens client.TokenStore = credential.NewStorageTokens(storage)
	if cfg.UseKeyring {
		ring, err := credential.OpenKeyring()
		if err != nil {
			logger.Warn("keyring unavailable, keeping the token in the state file", "error", err)
		} else {
			tokens = ring
		}
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	// Health checks must not depend on the monitor they feed.
	pinger := client.New(cfg.BaseURL, client.Options{HTTPClient: httpClient, Logger: logger})
	monitor := appsync.New(pinger, time.Duration(cfg.PollIntervalSec)*time.Second)

	api := client.New(cfg.BaseURL, client.Options{
		HTTPClient:   httpClient,
		Tokens:       tokens,
		Storage:      storage,
		Connectivity: monitor,
		Logger:       logger,
	})

	store := state.New(storage, state.WithLogger(logger))
	sess := session.New(store, api, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := app.New(app.Options{
		Session: sess,
		Monitor: monitor,
		Queue:   api,
		Logger:  logger,
		Context: ctx,
	})
	defer model.Close()

	logger.Info("starting terminal client", "server", cfg.BaseURL, "state", cfg.StateFile)
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("running terminal client: %w", err)
	}

	// Let an in-flight reorder reach the server or the offline queue.
	sess.Wait()
	return nil
}
