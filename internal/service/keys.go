package service

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/hackclub/searchproxy/internal/apperr"
)

// KeyTokenPrefix marks proxy API keys so they are recognizable in logs and
// to secret scanners.
const KeyTokenPrefix = "hcs_"

// NewAPIKeyToken mints a prefixed 192-bit random token.
func NewAPIKeyToken() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", apperr.New(apperr.Internal, "Failed to generate key")
	}
	return KeyTokenPrefix + hex.EncodeToString(raw), nil
}
