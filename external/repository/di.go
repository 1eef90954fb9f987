package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
	"github.com/shafin2/skillsphere-backend/internal/config"
	"github.com/shafin2/skillsphere-backend/internal/repository"
)

const (
	startupTimeout    = 15 * time.Second
	maxConnIdleTime   = 5 * time.Minute
	healthCheckPeriod = time.Minute
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (repository.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()

		pool, err := openPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
		if err != nil {
			return nil, err
		}
		if err := RunMigration(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate schema: %w", err)
		}
		slog.Info("database ready", "max_conns", pool.Config().MaxConns)
		return NewPostgresRepository(pool), nil
	})
}

func openPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if maxConns > 0 {
		pc.MaxConns = maxConns
	}
	pc.MaxConnIdleTime = maxConnIdleTime
	pc.HealthCheckPeriod = healthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
