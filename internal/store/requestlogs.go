package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackclub/searchproxy/internal/model"
)

// InsertRequestLog appends one immutable audit row. Rows are write-once;
// there are no update or delete operations on this table.
func (s *Store) InsertRequestLog(ctx context.Context, entry *model.RequestLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO request_logs
		(id, api_key_id, user_id, slack_id, endpoint, request, response, headers, ip, duration_ms, created_at)
		VALUES
		(:id, :api_key_id, :user_id, :slack_id, :endpoint, :request, :response, :headers, :ip, :duration_ms, :created_at)`
	if _, err := s.db.NamedExecContext(ctx, q, entry); err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

// CountRequestsByUser is the per-user usage counter behind the stats
// endpoint.
func (s *Store) CountRequestsByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, s.rebind(
		"SELECT COUNT(*) FROM request_logs WHERE user_id = ?"), userID)
	if err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return count, nil
}

// ListRecentLogs returns the newest log summaries for a user, for the
// dashboard surface.
func (s *Store) ListRecentLogs(ctx context.Context, userID string, limit int) ([]model.RequestLogSummary, error) {
	var logs []model.RequestLogSummary
	err := s.db.SelectContext(ctx, &logs, s.rebind(
		`SELECT id, endpoint, ip, duration_ms, created_at FROM request_logs
		WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`),
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent logs: %w", err)
	}
	return logs, nil
}

// CountRequestLogs returns the total number of audit rows, used by telemetry.
func (s *Store) CountRequestLogs(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM request_logs"); err != nil {
		return 0, fmt.Errorf("count request logs: %w", err)
	}
	return count, nil
}
