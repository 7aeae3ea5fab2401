// Package cli wires configuration, logging and the todolist subcommands.
package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/todolist/internal/model"
)

// Version is set at build time.
var Version = "dev"

// App holds what every subcommand shares.
type App struct {
	ConfigPath string
	LogLevel   string

	cfg    *model.AppConfig
	logger *slog.Logger
	closer io.Closer
}

// NewRootCmd returns the todolist command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "todolist",
		Short:        "Account-scoped todo service with an offline-capable terminal client",
		Version:      Version,
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Run the API server
  todolist serve --port 3000

  # Open the terminal client against it
  todolist tui --server http://localhost:3000

  # Row counts across all accounts
  todolist admin stats
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand opens the terminal client.
			return runTUI(cmd.Context(), app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.load()
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.close()
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", model.DefaultConfigPath(), "Path to the YAML config file")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level (debug|info|warn|error), overrides the config")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newAdminCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func (a *App) load() error {
	cfg, err := model.LoadConfig(a.ConfigPath)
	if err != nil {
		return err
	}
	if a.LogLevel != "" {
		cfg.Log.Level = a.LogLevel
	}
	a.cfg = cfg
	return nil
}

// useLogger installs the process logger, writing to fallback when no log
// file is configured.
func (a *App) useLogger(fallback io.Writer) error {
	logger, closer, err := newLogger(a.cfg.Log, fallback)
	if err != nil {
		return err
	}
	a.logger, a.closer = logger, closer
	slog.SetDefault(logger)
	return nil
}

func (a *App) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}
