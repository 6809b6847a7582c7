package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Aghostraa/oli-frontend/internal/config"
)

const (
	clickhouseDialTimeout = 5 * time.Second
	// analytics queries back an HTTP endpoint and must stay short
	clickhouseMaxExecutionSeconds = 10
)

// ClickHouseDB holds the connection used for search events
type ClickHouseDB struct {
	conn driver.Conn
}

func clickhouseOptions(cfg *config.ClickHouseConfig) *clickhouse.Options {
	opts := &clickhouse.Options{
		Addr: []string{net.JoinHostPort(cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": clickhouseMaxExecutionSeconds,
		},
		// event batches are repetitive text and compress well
		Compression: &clickhouse.Compression{Method: clickhouse.CompressionLZ4},
		DialTimeout: clickhouseDialTimeout,
		// one writer plus the occasional analytics read
		MaxOpenConns:    3,
		MaxIdleConns:    1,
		ConnMaxLifetime: 30 * time.Minute,
	}
	if cfg.Secure {
		opts.TLS = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewClickHouseDB connects to ClickHouse and verifies the connection
func NewClickHouseDB(ctx context.Context, cfg *config.ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(clickhouseOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("clickhouse open %s: %w", net.JoinHostPort(cfg.Host, cfg.Port), err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, clickhouseDialTimeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("clickhouse ping %s: %w", net.JoinHostPort(cfg.Host, cfg.Port), err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close releases the connection; safe on a zero value
func (db *ClickHouseDB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Conn exposes the driver connection for batch inserts and queries
func (db *ClickHouseDB) Conn() driver.Conn {
	return db.conn
}

// Ping is used as the clickhouse health check
func (db *ClickHouseDB) Ping(ctx context.Context) error {
	return db.conn.Ping(ctx)
}

// Exec runs a statement that returns no rows, such as a migration
func (db *ClickHouseDB) Exec(ctx context.Context, query string, args ...interface{}) error {
	return db.conn.Exec(ctx, query, args...)
}
