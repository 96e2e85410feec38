package model

import "time"

// Session is a cookie-carried browser credential. Expiry is lazy: reads
// filter on expires_at, rows are only swept for storage hygiene.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	Token     string    `json:"-" db:"token"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
