package store

import "fmt"

// Migrations are idempotent CREATE IF NOT EXISTS statements, one set per
// dialect. SQLite stores booleans as INTEGER and timestamps as DATETIME.
var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		slack_id TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		is_banned INTEGER NOT NULL DEFAULT 0,
		is_idv_verified INTEGER NOT NULL DEFAULT 0,
		skip_idv INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		token TEXT UNIQUE NOT NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		key TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		revoked_at DATETIME
	)`,

	`CREATE TABLE IF NOT EXISTS request_logs (
		id TEXT PRIMARY KEY,
		api_key_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		slack_id TEXT NOT NULL DEFAULT '',
		endpoint TEXT NOT NULL,
		request TEXT NOT NULL DEFAULT '{}',
		response TEXT NOT NULL DEFAULT '{}',
		headers TEXT NOT NULL DEFAULT '{}',
		ip TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_key ON api_keys(key)`,
	`CREATE INDEX IF NOT EXISTS idx_request_logs_user_id ON request_logs(user_id)`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		slack_id TEXT UNIQUE NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		is_banned BOOLEAN NOT NULL DEFAULT FALSE,
		is_idv_verified BOOLEAN NOT NULL DEFAULT FALSE,
		skip_idv BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		token TEXT UNIQUE NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		key TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		revoked_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS request_logs (
		id TEXT PRIMARY KEY,
		api_key_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		slack_id TEXT NOT NULL DEFAULT '',
		endpoint TEXT NOT NULL,
		request TEXT NOT NULL DEFAULT '{}',
		response TEXT NOT NULL DEFAULT '{}',
		headers TEXT NOT NULL DEFAULT '{}',
		ip TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_key ON api_keys(key)`,
	`CREATE INDEX IF NOT EXISTS idx_request_logs_user_id ON request_logs(user_id)`,
}

func (s *Store) migrate() error {
	migrations := sqliteMigrations
	if s.driver == "pgx" {
		migrations = postgresMigrations
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
