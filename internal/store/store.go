// Package store is the sole source of truth for identity, session, API key,
// and request log state. It runs on embedded SQLite by default and on
// Postgres when given a postgres:// DSN, which is what production uses.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store persists users, sessions, API keys, and request logs.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database identified by databaseURL. A postgres:// or
// postgresql:// URL selects the pgx driver; anything else is treated as a
// SQLite path, with empty string meaning in-memory (used by tests).
func Open(databaseURL string) (*Store, error) {
	driver, dsn := resolveDSN(databaseURL)

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

func resolveDSN(databaseURL string) (driver, dsn string) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"):
		return "pgx", databaseURL
	case databaseURL == "":
		return "sqlite", ":memory:?_journal_mode=WAL"
	default:
		_ = os.MkdirAll(filepath.Dir(databaseURL), 0755)
		return "sqlite", databaseURL + "?_journal_mode=WAL&_busy_timeout=5000"
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection, used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver reports which SQL driver backs the store, "sqlite" or "pgx".
func (s *Store) Driver() string {
	return s.driver
}

// rebind converts ?-style placeholders to the connected driver's bindvar
// style (dollar placeholders on Postgres).
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}
