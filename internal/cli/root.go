package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"expensetracker/internal/auth"
	"expensetracker/internal/backend"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/services"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	EnvFile string
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the trackerctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "trackerctl",
		Short: "Administer the expense tracker",
		Long: `Administrative commands for the expense tracker: schema migrations,
user accounts, session tokens, summaries and the spreadsheet mirror.

Configuration is read from the environment, optionally seeded from a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if err := LoadEnvFile(opts.EnvFile); err != nil {
				return WrapExitError(ExitCommandError, "environment", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file to load when present")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewUserCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewMirrorCommand(opts))

	return cmd
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// app is the wiring a command needs once configuration is loaded. Events
// are never published from the CLI.
type app struct {
	cfg          *config.Config
	logger       *log.Logger
	store        backend.Store
	auth         *auth.Service
	transactions *services.TransactionService
	close        backend.CleanupFunc
}

func openApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "configuration", err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, Format: cfg.LogFormat, Component: log.ComponentCLI, Output: os.Stderr})

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "backend", err)
	}
	bcfg.AMQPURL = ""

	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "open store", err)
	}

	authSvc := auth.NewService(res.Store, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), auth.Options{
		BcryptCost: cfg.BcryptCost,
		Logger:     logger,
	})
	return &app{
		cfg:          cfg,
		logger:       logger,
		store:        res.Store,
		auth:         authSvc,
		transactions: services.NewTransactionService(res.Store, nil, services.WithLogger(logger)),
		close:        res.Cleanup,
	}, nil
}

// ownerByEmail maps an account e-mail to the owner id used by the store.
func (a *app) ownerByEmail(ctx context.Context, email string) (string, error) {
	u, err := a.store.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", fmt.Errorf("user %s: %w", email, err)
	}
	return u.ID, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
