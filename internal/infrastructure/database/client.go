package database

import (
	"context"
	"strings"
	"time"

	"database/sql"

	_ "github.com/tursodatabase/go-libsql"
)

// New opens a libsql connection for the given Turso database URL and
// auth token and verifies it with a ping.
func New(databaseURL, authToken string) (*sql.DB, error) {
	return NewWithOptions(databaseURL, authToken, true)
}

// NewNoPing opens a connection without an initial ping. Useful on hot
// paths where latency matters and failures surface on first query.
func NewNoPing(databaseURL, authToken string) (*sql.DB, error) {
	return NewWithOptions(databaseURL, authToken, false)
}

func NewWithOptions(databaseURL, authToken string, ping bool) (*sql.DB, error) {
	connStr := databaseURL
	if authToken != "" {
		connStr += "?authToken=" + authToken
	}
	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, err
	}

	// Turso's Hrana protocol aggressively closes idle streams, causing
	// "stream not found" errors on stale connections. Keep the pool
	// small and never hold idle connections.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(0)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(0)

	if ping {
		if err := db.Ping(); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// IsStreamError checks if an error is a Turso "stream not found" error.
func IsStreamError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "stream not found")
}

// WithRetry executes fn, retrying up to maxRetries times on stream errors.
func WithRetry[T any](ctx context.Context, maxRetries int, fn func() (T, error)) (T, error) {
	var result T
	var err error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}
		if !IsStreamError(err) || attempt == maxRetries {
			return result, err
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return result, err
}
