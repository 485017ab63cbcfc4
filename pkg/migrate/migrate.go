package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/nimbusvr/trackshop-backend/pkg/config"
	"github.com/nimbusvr/trackshop-backend/pkg/logger"
)

const DefaultDir = "pkg/migrate/migrations"

// Run executes a goose command against the provided connection.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// sqlDB is the handle surface the runner needs from the db client.
type sqlDB interface {
	SQL() (*sql.DB, error)
}

// MaybeRunDev applies pending migrations automatically in development.
// Production deploys run cmd/migrate explicitly.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client sqlDB) error {
	if cfg == nil || !cfg.App.IsDev() {
		return nil
	}
	handle, err := client.SQL()
	if err != nil {
		return fmt.Errorf("getting sql handle: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "running dev migrations")
	}
	return Run(ctx, handle, DefaultDir, "up")
}
