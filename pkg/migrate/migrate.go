package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/config"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/db"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

func dialectFor(driver string) (string, error) {
	switch driver {
	case config.DBDriverSQLite:
		return "sqlite3", nil
	case config.DBDriverPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported migration driver %q", driver)
	}
}

// Up applies all pending migrations from the embedded set.
func Up(ctx context.Context, sqlDB *sql.DB, driver string) error {
	if sqlDB == nil {
		return fmt.Errorf("db is required")
	}
	dialect, err := dialectFor(driver)
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// MaybeAutoRun applies migrations at startup when the auto-migrate flag is
// on. A client install migrates its own sqlite file; shared rigs opt out and
// manage the schema themselves.
func MaybeAutoRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.DB.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})
	logg.Info(ctx, "running goose migrations")

	if err := Up(ctx, sqlDB, cfg.DB.Driver); err != nil {
		return err
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
