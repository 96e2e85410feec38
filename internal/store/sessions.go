package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackclub/searchproxy/internal/model"
)

// CreateSession inserts a session for the user with the given token and
// absolute expiry. The ID and CreatedAt fields are populated on the way in.
func (s *Store) CreateSession(ctx context.Context, userID, token string, expiresAt time.Time) (*model.Session, error) {
	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}

	const q = `INSERT INTO sessions (id, user_id, token, expires_at, created_at)
		VALUES (:id, :user_id, :token, :expires_at, :created_at)`
	if _, err := s.db.NamedExecContext(ctx, q, session); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// GetSessionUser resolves a session token to its owning user, excluding
// expired sessions. Expired rows are simply never matched; deletion is a
// separate hygiene concern.
func (s *Store) GetSessionUser(ctx context.Context, token string) (*model.User, error) {
	const q = `SELECT u.* FROM sessions s
		INNER JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?`

	var user model.User
	err := s.db.GetContext(ctx, &user, s.rebind(q), token, time.Now().UTC())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session user: %w", err)
	}
	return &user, nil
}

// DeleteSessionByToken removes a session on logout. Deleting a token that no
// longer exists is not an error.
func (s *Store) DeleteSessionByToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM sessions WHERE token = ?"), token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions sweeps expired rows. Correctness never depends on
// this running; it only keeps the table small.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		s.rebind("DELETE FROM sessions WHERE expires_at <= ?"), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions rows affected: %w", err)
	}
	return n, nil
}
