// Package db opens the Postgres connection pool and applies the schema.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/roshhellwett/TeleAcademicBot/internal/resilience/retry"
	envconfig "github.com/roshhellwett/TeleAcademicBot/pkg/config"
)

// ErrMissingDSN is returned when DATABASE_URL is not set.
var ErrMissingDSN = errors.New("DATABASE_URL not set")

// pingTimeout bounds a single ping attempt.
const pingTimeout = 5 * time.Second

// PoolConfig sizes the connection pool.
// The worker writes from one sequential loop plus the stats job, so it stays small.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns the pool sizing used when no DB_* variables are set.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// PoolConfigFromEnv overlays DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS,
// DB_CONN_MAX_LIFETIME and DB_CONN_MAX_IDLE_TIME on the defaults.
// Unparseable or non-positive values keep the default.
func PoolConfigFromEnv() PoolConfig {
	def := DefaultPoolConfig()
	return PoolConfig{
		MaxOpenConns:    positive(envconfig.GetEnvInt("DB_MAX_OPEN_CONNS", def.MaxOpenConns), def.MaxOpenConns),
		MaxIdleConns:    positive(envconfig.GetEnvInt("DB_MAX_IDLE_CONNS", def.MaxIdleConns), def.MaxIdleConns),
		ConnMaxLifetime: positive(envconfig.GetEnvDuration("DB_CONN_MAX_LIFETIME", def.ConnMaxLifetime), def.ConnMaxLifetime),
		ConnMaxIdleTime: positive(envconfig.GetEnvDuration("DB_CONN_MAX_IDLE_TIME", def.ConnMaxIdleTime), def.ConnMaxIdleTime),
	}
}

func positive[T int | time.Duration](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}

func (p PoolConfig) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.MaxOpenConns)
	db.SetMaxIdleConns(p.MaxIdleConns)
	db.SetConnMaxLifetime(p.ConnMaxLifetime)
	db.SetConnMaxIdleTime(p.ConnMaxIdleTime)
}

// Open creates the pgx-backed pool for DATABASE_URL and waits for Postgres to answer.
//
// The ping is retried on the retry.DBStartupConfig schedule. When every attempt
// fails the pool is closed and the error returned; callers treat that as fatal
// because without the dedup store every notice would be re-sent.
func Open(ctx context.Context) (*sql.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, ErrMissingDSN
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool := PoolConfigFromEnv()
	pool.apply(db)
	slog.Info("database pool configured",
		slog.Int("max_open_conns", pool.MaxOpenConns),
		slog.Int("max_idle_conns", pool.MaxIdleConns),
		slog.Duration("conn_max_lifetime", pool.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", pool.ConnMaxIdleTime))

	if err := Ping(ctx, db, retry.DBStartupConfig()); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Info("database reachable")
	return db, nil
}

// Ping verifies db on the given backoff schedule. Only transient network
// failures are retried; an authentication error returns at once.
func Ping(ctx context.Context, db *sql.DB, cfg retry.Config) error {
	err := retry.WithBackoff(ctx, cfg, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return db.PingContext(attemptCtx)
	})
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}
