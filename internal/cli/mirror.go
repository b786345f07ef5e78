package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/sheets"
	"expensetracker/internal/sheets/google"
	"expensetracker/internal/worker"
)

// OpenGoogleMirror connects to the configured spreadsheet and makes sure
// the header row is in place.
func OpenGoogleMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (*google.Client, error) {
	client, err := google.New(ctx, google.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// openMirror is replaced in tests.
var openMirror = func(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.TransactionMirror, error) {
	if !cfg.SheetsEnabled() {
		return nil, NewExitError(ExitCommandError, "GOOGLE_SPREADSHEET_ID is not set")
	}
	return OpenGoogleMirror(ctx, cfg, logger)
}

// NewMirrorCommand operates the spreadsheet mirror by hand.
func NewMirrorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Operate the spreadsheet mirror",
	}

	var email string
	resync := &cobra.Command{
		Use:   "resync",
		Short: "Rewrite every transaction of a user into the spreadsheet",
		Long: `Upserts every stored transaction of one user into the mirror. Rows of
deleted transactions are not removed; the worker handles those from events.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			owner, err := a.ownerByEmail(ctx, email)
			if err != nil {
				return WrapExitError(ExitFailure, "resync", err)
			}
			mirror, err := openMirror(ctx, a.cfg, a.logger)
			if err != nil {
				if GetExitCode(err) == ExitCommandError {
					return err
				}
				return WrapExitError(ExitFailure, "open mirror", err)
			}

			n, err := worker.NewMirrorWorker(a.store, mirror, a.logger).Resync(ctx, owner)
			if err != nil {
				return WrapExitError(ExitFailure, "resync", err)
			}
			return newFormatter(rootOpts, cmd).Success(
				fmt.Sprintf("mirrored %d transactions", n),
				map[string]any{"mirrored": n},
			)
		},
	}
	resync.Flags().StringVar(&email, "email", "", "account e-mail")
	_ = resync.MarkFlagRequired("email")

	cmd.AddCommand(resync)
	return cmd
}
