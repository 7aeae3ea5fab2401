package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/todolist/internal/auth"
	"github.com/nhle/todolist/internal/model"
	"github.com/nhle/todolist/internal/server"
	"github.com/nhle/todolist/internal/store"
)

func newServeCmd(app *App) *cobra.Command {
	var (
		port   int
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				app.cfg.Server.Port = port
			}
			if dbPath != "" {
				app.cfg.Server.DBPath = dbPath
			}
			if err := app.useLogger(os.Stderr); err != nil {
				return err
			}
			return runServe(cmd.Context(), app)
		},
	}

	cmd.Flags().IntVar(&port, "port", 3000, "Port to listen on (overrides config and PORT)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database file (overrides config)")
	return cmd
}

func runServe(ctx context.Context, app *App) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := app.cfg.Server
	st, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	if cfg.JWTSecret == model.DefaultJWTSecret {
		app.logger.Warn("using the development JWT secret, set JWT_SECRET in production")
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	srv := server.New(st, auth.NewService(st, issuer), cfg, app.logger)

	app.logger.Info("starting todolist server", "db", cfg.DBPath, "version", Version)
	return srv.Run(ctx, cfg.Addr())
}
