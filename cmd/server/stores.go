package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	adminsvc "ringside/internal/admin/service"
	"ringside/internal/identity"
	matchsvc "ringside/internal/matchmaking/service"
	"ringside/internal/matchmaking/store"
	"ringside/internal/platform/config"
	"ringside/internal/platform/postgres"
	"ringside/internal/roster"
	"ringside/internal/settings"
	httptransport "ringside/internal/transport/http"
	audit "ringside/pkg/platform/audit"
	auditmemory "ringside/pkg/platform/audit/store/memory"
	auditpg "ringside/pkg/platform/audit/store/postgres"
)

type settingsStore interface {
	settings.Reader
	adminsvc.SettingsStore
}

// backends is the set of stores the services run on.
type backends struct {
	matchmaking store.Store
	roster      matchsvc.Roster
	identities  adminsvc.IdentityStore
	settings    settingsStore
	audit       audit.Store
	outbox      *auditpg.Store
	health      map[string]httptransport.HealthCheck
	close       func()
}

// openBackends connects to Postgres and applies migrations. Without a database
// URL outside production, every store is in memory and the outbox relay is off.
func openBackends(ctx context.Context, cfg config.Server, logger *slog.Logger) (*backends, error) {
	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			return nil, errors.New("RINGSIDE_DATABASE_URL is required in production")
		}
		logger.WarnContext(ctx, "no database configured; using in-memory stores")
		return &backends{
			matchmaking: store.NewInMemory(),
			roster:      roster.NewInMemory(),
			identities:  identity.NewInMemory(),
			settings:    settings.NewInMemory(),
			audit:       auditmemory.NewInMemoryStore(),
			health:      map[string]httptransport.HealthCheck{},
			close:       func() {},
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	applied, err := postgres.Migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if len(applied) > 0 {
		logger.InfoContext(ctx, "applied migrations", "versions", applied)
	}
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	auditStore := auditpg.New(pool)
	return &backends{
		matchmaking: store.NewPostgres(db),
		roster:      roster.NewPostgres(db),
		identities:  identity.NewPostgres(db),
		settings:    settings.NewPostgres(db),
		audit:       auditStore,
		outbox:      auditStore,
		health: map[string]httptransport.HealthCheck{
			"postgres": dbPing(db),
			"pgxpool":  poolPing(pool),
		},
		close: func() {
			pool.Close()
			_ = db.Close()
		},
	}, nil
}

func dbPing(db *sql.DB) httptransport.HealthCheck {
	return db.PingContext
}

func poolPing(pool *pgxpool.Pool) httptransport.HealthCheck {
	return pool.Ping
}
