// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/YaganovValera/storefront-auth/common/backoff"
	"github.com/YaganovValera/storefront-auth/common/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Connect открывает пул соединений и ждёт доступности БД с back-off.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*pgxpool.Pool, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = log.Named("postgres")

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}

	ping := func(ctx context.Context) error { return pool.Ping(ctx) }
	if err := backoff.Execute(ctx, cfg.Backoff, log, ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	log.Info("postgres: connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
	)
	return pool, nil
}

// ApplyMigrations прогоняет встроенные goose-миграции.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("postgres: goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("postgres: migration version: %w", err)
	}
	log.Named("postgres").Info("postgres: migrations applied", zap.Int64("version", version))
	return nil
}
