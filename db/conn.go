package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool sizing floors. Payment and payout writes are short conditional
// updates, so a modest pool goes a long way; the floor keeps a default
// config from starving the stress actors on small machines.
const (
	minConns        = 8
	maxConnIdleTime = 5 * time.Minute
)

// NewPool builds the pgxpool shared by every payflow store. DSN options
// still win when they ask for more than the floors.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, errors.New("db: empty connection string")
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("db: parse pool config: %w", err)
	}
	if cfg.MaxConns < minConns {
		cfg.MaxConns = minConns
	}
	cfg.MaxConnIdleTime = maxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}
	return pool, nil
}
