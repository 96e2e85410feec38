package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackclub/searchproxy/internal/model"
)

// CreateAPIKey inserts a new key record. The raw token must already be set by
// the caller; it is stored verbatim and acts as the lookup credential.
func (s *Store) CreateAPIKey(ctx context.Context, userID, token, name string) (*model.APIKey, error) {
	key := &model.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Key:       token,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	const q = `INSERT INTO api_keys (id, user_id, key, name, created_at, revoked_at)
		VALUES (:id, :user_id, :key, :name, :created_at, :revoked_at)`
	if _, err := s.db.NamedExecContext(ctx, q, key); err != nil {
		return nil, fmt.Errorf("insert api key: %w", err)
	}
	return key, nil
}

// keyWithUser flattens the api_keys/users join for sqlx scanning.
type keyWithUser struct {
	model.APIKey
	User model.User `db:"user"`
}

const keyUserColumns = `k.id, k.user_id, k.key, k.name, k.created_at, k.revoked_at,
	u.id "user.id", u.slack_id "user.slack_id", u.email "user.email", u.name "user.name",
	u.is_banned "user.is_banned", u.is_idv_verified "user.is_idv_verified",
	u.skip_idv "user.skip_idv", u.created_at "user.created_at", u.updated_at "user.updated_at"`

// GetActiveAPIKey resolves a raw bearer token to a non-revoked key and its
// owning user. Revoked and unknown tokens both return ErrNotFound, so callers
// cannot distinguish them.
func (s *Store) GetActiveAPIKey(ctx context.Context, token string) (*model.APIKey, *model.User, error) {
	q := `SELECT ` + keyUserColumns + ` FROM api_keys k
		INNER JOIN users u ON u.id = k.user_id
		WHERE k.key = ? AND k.revoked_at IS NULL`

	var row keyWithUser
	err := s.db.GetContext(ctx, &row, s.rebind(q), token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get active api key: %w", err)
	}
	return &row.APIKey, &row.User, nil
}

// GetAPIKeyByToken resolves a raw token to its key and owner regardless of
// revocation state. Used by the leaked-token revocation surface.
func (s *Store) GetAPIKeyByToken(ctx context.Context, token string) (*model.APIKey, *model.User, error) {
	q := `SELECT ` + keyUserColumns + ` FROM api_keys k
		INNER JOIN users u ON u.id = k.user_id
		WHERE k.key = ?`

	var row keyWithUser
	err := s.db.GetContext(ctx, &row, s.rebind(q), token)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get api key by token: %w", err)
	}
	return &row.APIKey, &row.User, nil
}

// ListActiveAPIKeys returns a user's non-revoked keys, newest first.
func (s *Store) ListActiveAPIKeys(ctx context.Context, userID string) ([]model.APIKey, error) {
	var keys []model.APIKey
	err := s.db.SelectContext(ctx, &keys, s.rebind(
		`SELECT * FROM api_keys WHERE user_id = ? AND revoked_at IS NULL ORDER BY created_at DESC`),
		userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// RevokeAPIKey sets revoked_at for a key owned by userID. Revoking an
// already-revoked key is a no-op success; an unknown or foreign key returns
// ErrNotFound. Keys are never physically deleted so audit rows keep their
// linkage.
func (s *Store) RevokeAPIKey(ctx context.Context, id, userID string) error {
	var key model.APIKey
	err := s.db.GetContext(ctx, &key, s.rebind(
		`SELECT * FROM api_keys WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("get api key: %w", err)
	}
	if key.RevokedAt != nil {
		return nil
	}

	_, err = s.db.ExecContext(ctx, s.rebind(
		`UPDATE api_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`),
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	return nil
}

// RevokeAPIKeyByID sets revoked_at without an ownership check (CLI and
// internal revocation surfaces).
func (s *Store) RevokeAPIKeyByID(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE api_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`),
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	return nil
}

// CountAPIKeys returns the total number of keys, used by telemetry.
func (s *Store) CountAPIKeys(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM api_keys"); err != nil {
		return 0, fmt.Errorf("count api keys: %w", err)
	}
	return count, nil
}
