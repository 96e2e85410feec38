package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackclub/searchproxy/internal/model"
)

// UserProfile is the identity-provider claim set applied on every login.
type UserProfile struct {
	SlackID       string
	Email         string
	Name          string
	IsIdvVerified bool
}

// UpsertUserBySlackID inserts a user for an unseen slack_id, or overwrites
// email, name, and the verification flag in place. The verification flag
// always reflects the provider's latest claim, so it can regress as well as
// improve between logins.
func (s *Store) UpsertUserBySlackID(ctx context.Context, profile UserProfile) (*model.User, error) {
	existing, err := s.GetUserBySlackID(ctx, profile.SlackID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()

	if existing == nil {
		user := &model.User{
			ID:            uuid.NewString(),
			SlackID:       profile.SlackID,
			Email:         profile.Email,
			Name:          profile.Name,
			IsIdvVerified: profile.IsIdvVerified,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		const q = `INSERT INTO users
			(id, slack_id, email, name, is_banned, is_idv_verified, skip_idv, created_at, updated_at)
			VALUES
			(:id, :slack_id, :email, :name, :is_banned, :is_idv_verified, :skip_idv, :created_at, :updated_at)`
		if _, err := s.db.NamedExecContext(ctx, q, user); err != nil {
			return nil, fmt.Errorf("insert user: %w", err)
		}
		return user, nil
	}

	existing.Email = profile.Email
	existing.Name = profile.Name
	existing.IsIdvVerified = profile.IsIdvVerified
	existing.UpdatedAt = now

	const q = `UPDATE users SET
		email = :email, name = :name, is_idv_verified = :is_idv_verified, updated_at = :updated_at
		WHERE id = :id`
	if _, err := s.db.NamedExecContext(ctx, q, existing); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return existing, nil
}

// GetUserBySlackID returns a user by the identity provider's chat identifier.
func (s *Store) GetUserBySlackID(ctx context.Context, slackID string) (*model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user, s.rebind("SELECT * FROM users WHERE slack_id = ?"), slackID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by slack id: %w", err)
	}
	return &user, nil
}

// SetUserBanned flips the ban flag for a user, keyed by slack_id (moderation
// happens from the CLI against provider identifiers).
func (s *Store) SetUserBanned(ctx context.Context, slackID string, banned bool) error {
	return s.setUserFlag(ctx, slackID, "is_banned", banned)
}

// SetUserSkipIdv flips the verification-enforcement exemption for a user.
func (s *Store) SetUserSkipIdv(ctx context.Context, slackID string, skip bool) error {
	return s.setUserFlag(ctx, slackID, "skip_idv", skip)
}

func (s *Store) setUserFlag(ctx context.Context, slackID, column string, value bool) error {
	q := s.rebind("UPDATE users SET " + column + " = ?, updated_at = ? WHERE slack_id = ?")
	result, err := s.db.ExecContext(ctx, q, value, time.Now().UTC(), slackID)
	if err != nil {
		return fmt.Errorf("update user %s: %w", column, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user %s rows affected: %w", column, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUsers returns the total number of users, used by telemetry.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}
