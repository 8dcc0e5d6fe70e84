package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// PoolConfig sizes the database/sql pool in front of pgx.
type PoolConfig struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	// ConnectTimeout bounds how long Open keeps pinging a database that is
	// still starting up. Zero means a single ping.
	ConnectTimeout time.Duration
}

// DefaultPool suits one API process sharing Postgres with its workers.
func DefaultPool() PoolConfig {
	return PoolConfig{
		MaxOpen:        20,
		MaxIdle:        10,
		MaxLifetime:    30 * time.Minute,
		MaxIdleTime:    5 * time.Minute,
		ConnectTimeout: 30 * time.Second,
	}
}

const pingInterval = 500 * time.Millisecond

// Open connects to the presentation database through the pgx stdlib driver
// and waits for it to answer a ping.
func Open(ctx context.Context, databaseURL string, pool PoolConfig, logger *zap.Logger) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, errors.New("open presentation database: DATABASE_URL is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open presentation database: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)
	db.SetConnMaxIdleTime(pool.MaxIdleTime)

	if err := waitForDatabase(ctx, db, pool.ConnectTimeout, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func waitForDatabase(ctx context.Context, db *sql.DB, timeout time.Duration, logger *zap.Logger) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	for attempt := 1; ; attempt++ {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		if timeout <= 0 {
			return fmt.Errorf("ping presentation database: %w", err)
		}
		logger.Debug("database not ready", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping presentation database after %d attempts: %w", attempt, err)
		case <-time.After(pingInterval):
		}
	}
}
