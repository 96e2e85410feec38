package model

import "time"

// APIKey is a long-lived bearer credential. The raw token is the lookup key
// and is returned to the owner exactly once at creation; list surfaces only
// ever show a truncated preview. Revocation is logical (revoked_at) so audit
// rows keep their key linkage.
type APIKey struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"userId" db:"user_id"`
	Key       string     `json:"-" db:"key"`
	Name      string     `json:"name" db:"name"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	RevokedAt *time.Time `json:"revokedAt,omitempty" db:"revoked_at"`
}

// PreviewLen is how many characters of the raw token are shown after creation.
const PreviewLen = 24

// Preview returns the truncated token shown on list surfaces.
func (k *APIKey) Preview() string {
	if len(k.Key) <= PreviewLen {
		return k.Key + "..."
	}
	return k.Key[:PreviewLen] + "..."
}
