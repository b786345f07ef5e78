package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"expensetracker/internal/config"
	"expensetracker/internal/storage"
)

// NewMigrateCommand groups the schema commands. They only apply to the
// SQLite backend.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQLite schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			path, err := sqlitePath()
			if err != nil {
				return err
			}
			out.VerboseLog("Migrating %s", path)
			if err := storage.RunMigrations(path); err != nil {
				return WrapExitError(ExitFailure, "migrate up", err)
			}
			return reportVersion(out, path)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := sqlitePath()
			if err != nil {
				return err
			}
			return reportVersion(newFormatter(rootOpts, cmd), path)
		},
	})

	return cmd
}

func sqlitePath() (string, error) {
	cfg := config.Load()
	if cfg.DataBackend != config.BackendSQLite {
		return "", NewExitError(ExitCommandError, fmt.Sprintf("migrations need DATA_BACKEND=%s, got %q", config.BackendSQLite, cfg.DataBackend))
	}
	if cfg.SQLiteDBPath == "" {
		return "", NewExitError(ExitCommandError, "SQLITE_DB_PATH is empty")
	}
	return cfg.SQLiteDBPath, nil
}

func reportVersion(out *OutputFormatter, path string) error {
	version, dirty, err := storage.MigrationVersion(path)
	if err != nil {
		return WrapExitError(ExitFailure, "read schema version", err)
	}
	text := fmt.Sprintf("schema version %d", version)
	if dirty {
		text += " (dirty)"
	}
	return out.Success(text, map[string]any{"version": version, "dirty": dirty})
}
