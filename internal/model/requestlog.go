package model

import "time"

// RequestLog is one immutable audit row per forwarding attempt. Request,
// response, and header snapshots are stored as serialized JSON. The per-user
// usage counter is COUNT(*) over this table.
type RequestLog struct {
	ID         string    `json:"id" db:"id"`
	APIKeyID   string    `json:"apiKeyId" db:"api_key_id"`
	UserID     string    `json:"userId" db:"user_id"`
	SlackID    string    `json:"slackId" db:"slack_id"`
	Endpoint   string    `json:"endpoint" db:"endpoint"`
	Request    string    `json:"request" db:"request"`
	Response   string    `json:"response" db:"response"`
	Headers    string    `json:"headers" db:"headers"`
	IP         string    `json:"ip" db:"ip"`
	DurationMs int64     `json:"duration" db:"duration_ms"`
	CreatedAt  time.Time `json:"timestamp" db:"created_at"`
}

// RequestLogSummary is the slim projection served to the dashboard surface.
type RequestLogSummary struct {
	ID         string    `json:"id" db:"id"`
	Endpoint   string    `json:"endpoint" db:"endpoint"`
	IP         string    `json:"ip" db:"ip"`
	DurationMs int64     `json:"duration" db:"duration_ms"`
	CreatedAt  time.Time `json:"timestamp" db:"created_at"`
}
