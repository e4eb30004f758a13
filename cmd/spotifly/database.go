package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"

	"spotifly/internal/config"
)

// retryPolicy controls how long startup waits for the database to answer.
type retryPolicy struct {
	PingTimeout    time.Duration
	MaxWait        time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func policyFor(cfg config.DatabaseConfig) retryPolicy {
	return retryPolicy{
		PingTimeout:    cfg.PingTimeout,
		MaxWait:        cfg.ConnectTimeout,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     max(cfg.ConnectTimeout/6, time.Second),
	}
}

// openDatabase opens a pgx-backed pool sized from cfg and waits until it answers a ping.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := waitForDatabase(ctx, db.PingContext, policyFor(cfg)); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// waitForDatabase retries ping with exponential backoff until it succeeds,
// ctx is cancelled or p.MaxWait has passed.
func waitForDatabase(ctx context.Context, ping func(context.Context) error, p retryPolicy) error {
	deadline := time.Now().Add(p.MaxWait)
	backoff := p.InitialBackoff

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, p.PingTimeout)
		err := ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		if ctx.Err() != nil || time.Now().Add(backoff).After(deadline) {
			return fmt.Errorf("ping database after %d attempts: %w", attempt, err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", backoff).Msg("database not ready")

		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, p.MaxBackoff)
	}
}
