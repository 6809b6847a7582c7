// Package storage provides database connections, the response cache and
// repositories for the label search gateway.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Aghostraa/oli-frontend/internal/config"
)

const (
	postgresConnectTimeout = 10 * time.Second
	postgresAppName        = "oli-search-gateway"
)

// PostgresDB holds the pool backing the chain registry
type PostgresDB struct {
	pool *pgxpool.Pool
}

func postgresPoolConfig(cfg *config.PostgresConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("invalid postgres settings: %w", err)
	}

	// the registry is read at startup and by the migrate tool only
	maxConns := cfg.MaxConnections
	if maxConns < 1 {
		maxConns = 4
	}
	poolConfig.MaxConns = int32(maxConns) // #nosec G115 - small positive config value
	poolConfig.MinConns = 0
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.RuntimeParams["application_name"] = postgresAppName
	return poolConfig, nil
}

// NewPostgresDB opens the pool and verifies the connection
func NewPostgresDB(ctx context.Context, cfg *config.PostgresConfig) (*PostgresDB, error) {
	poolConfig, err := postgresPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, postgresConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres pool %s:%s: %w", cfg.Host, cfg.Port, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping %s:%s: %w", cfg.Host, cfg.Port, err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Close releases the pool; safe on a zero value
func (db *PostgresDB) Close() {
	if db.pool == nil {
		return
	}
	db.pool.Close()
}

// Pool exposes the pgx pool to repositories
func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping is used as the postgres health check
func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}
