package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nhle/todolist/internal/store"
)

func newAdminCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Inspect the server database",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print row counts across all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.useLogger(os.Stderr); err != nil {
				return err
			}
			st, err := store.NewSQLiteStore(app.cfg.Server.DBPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer st.Close()

			s, err := st.Stats(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "database\t%s\n", app.cfg.Server.DBPath)
			fmt.Fprintf(w, "accounts\t%d\n", s.Accounts)
			fmt.Fprintf(w, "todos\t%d\n", s.Todos)
			fmt.Fprintf(w, "categories\t%d\n", s.Categories)
			return w.Flush()
		},
	}

	cmd.AddCommand(stats)
	return cmd
}
