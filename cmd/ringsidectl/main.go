package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ringside/internal/platform/config"
	"ringside/internal/platform/logger"
	"ringside/internal/platform/postgres"
	"ringside/internal/settings"
	auditpg "ringside/pkg/platform/audit/store/postgres"
)

const programName = "ringsidectl"

type ctxKey struct{}

func configFrom(ctx context.Context) config.Server {
	cfg, _ := ctx.Value(ctxKey{}).(config.Server)
	return cfg
}

// openSettings connects to the configured database and migrates it. Audit
// entries go through the pgx pool into the outbox the server relays.
func openSettings(ctx context.Context, cfg config.Server) (*seedBackend, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, errors.New("RINGSIDE_DATABASE_URL is required")
	}
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if _, err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	backend := &seedBackend{
		settings: settings.NewPostgres(db),
		audit:    auditpg.New(pool),
	}
	return backend, func() {
		pool.Close()
		_ = db.Close()
	}, nil
}

func newRootCommand(open settingsOpener) *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:          programName,
		Short:        "Operator tooling for the ringside control plane",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&debug, "debug", "D", false, "enable debug logging")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.FromEnv()
		if err != nil {
			return err
		}
		if debug {
			cfg.LogLevel = "debug"
		}
		cmd.SetContext(context.WithValue(cmd.Context(), ctxKey{}, cfg))
		return nil
	}

	root.AddCommand(seedCommand(open))
	root.AddCommand(migrateCommand())
	root.AddCommand(tokenCommand())
	return root
}

func main() {
	if err := newRootCommand(openSettings).Execute(); err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}

func cmdLogger(cmd *cobra.Command) *slog.Logger {
	return logger.NewWithWriter(cmd.ErrOrStderr(), configFrom(cmd.Context()).LogLevel)
}
