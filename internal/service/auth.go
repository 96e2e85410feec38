// Package service holds the gateway's identity logic: resolving inbound
// credentials to users and running the OAuth login exchange.
package service

import (
	"context"
	"errors"

	"github.com/hackclub/searchproxy/internal/apperr"
	"github.com/hackclub/searchproxy/internal/config"
	"github.com/hackclub/searchproxy/internal/model"
	"github.com/hackclub/searchproxy/internal/store"
)

// Identity is the resolved caller: the user plus, on the API-key path, the
// specific key used. It is attached to the request context for one request
// and never cached across requests.
type Identity struct {
	User   *model.User
	APIKey *model.APIKey
}

// AuthService resolves session cookies and bearer tokens against the
// credential store. Resolution is a pure read with no side effects.
type AuthService struct {
	store      *store.Store
	enforceIDV bool
}

// NewAuthService creates an AuthService.
func NewAuthService(st *store.Store, cfg *config.Config) *AuthService {
	return &AuthService{
		store:      st,
		enforceIDV: cfg.EnforceIDV,
	}
}

// ResolveSession resolves a session token to its user. Unknown or expired
// tokens return Unauthorized; the caller decides whether anonymous access is
// acceptable. A banned user is Forbidden regardless of session validity.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*Identity, error) {
	user, err := s.store.GetSessionUser(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.Unauthorized, "Authentication required")
		}
		return nil, err
	}

	if user.IsBanned {
		return nil, apperr.New(apperr.Forbidden, "You are banned from using this service.")
	}

	return &Identity{User: user}, nil
}

// ResolveAPIKey resolves a raw bearer token to a non-revoked key and its
// owner. Unknown and revoked tokens are indistinguishable to the caller.
// When identity-verification enforcement is on, owners that are neither
// verified nor exempt are rejected with a pointer to the verification flow.
func (s *AuthService) ResolveAPIKey(ctx context.Context, token string) (*Identity, error) {
	key, user, err := s.store.GetActiveAPIKey(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.Unauthorized, "Authentication failed")
		}
		return nil, err
	}

	if user.IsBanned {
		return nil, apperr.New(apperr.Forbidden, "You are banned from using this service.")
	}

	if s.enforceIDV && !user.SkipIdv && !user.IsIdvVerified {
		return nil, apperr.New(apperr.Forbidden,
			"Identity verification required. Please verify at https://identity.hackclub.com")
	}

	return &Identity{User: user, APIKey: key}, nil
}
