package model

import "time"

// User is a local account created and updated only by the OAuth exchange.
// Users are never deleted; moderation happens through the ban flag.
type User struct {
	ID            string    `json:"id" db:"id"`
	SlackID       string    `json:"slackId" db:"slack_id"`
	Email         string    `json:"email" db:"email"`
	Name          string    `json:"name" db:"name"`
	IsBanned      bool      `json:"isBanned" db:"is_banned"`
	IsIdvVerified bool      `json:"isIdvVerified" db:"is_idv_verified"`
	SkipIdv       bool      `json:"skipIdv" db:"skip_idv"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}
