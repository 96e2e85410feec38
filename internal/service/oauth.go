package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/hackclub/searchproxy/internal/apperr"
	"github.com/hackclub/searchproxy/internal/config"
	"github.com/hackclub/searchproxy/internal/model"
	"github.com/hackclub/searchproxy/internal/store"
)

// DefaultProviderBaseURL is the Hack Club identity provider.
const DefaultProviderBaseURL = "https://auth.hackclub.com"

// SessionTTL is the absolute lifetime of a browser session.
const SessionTTL = 30 * 24 * time.Hour

// providerTimeout bounds the code exchange and profile fetch.
const providerTimeout = 30 * time.Second

// OAuthService runs the login exchange: authorization code to provider
// token, provider token to identity profile, profile to local user upsert,
// and finally session issuance. Each invocation is single-shot; the caller
// re-initiates the whole flow on failure.
type OAuthService struct {
	store      *store.Store
	oauth      *oauth2.Config
	profileURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOAuthService creates an OAuthService against the default provider.
func NewOAuthService(st *store.Store, cfg *config.Config, logger *slog.Logger) *OAuthService {
	return NewOAuthServiceWithProvider(st, cfg, DefaultProviderBaseURL, logger)
}

// NewOAuthServiceWithProvider creates an OAuthService against a specific
// provider base URL. Tests point this at a stub provider.
func NewOAuthServiceWithProvider(st *store.Store, cfg *config.Config, providerBaseURL string, logger *slog.Logger) *OAuthService {
	providerBaseURL = strings.TrimRight(providerBaseURL, "/")

	return &OAuthService{
		store: st,
		oauth: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.BaseURL + "/auth/callback",
			Scopes:       []string{"email", "name", "slack_id", "verification_status"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  providerBaseURL + "/oauth/authorize",
				TokenURL: providerBaseURL + "/oauth/token",
			},
		},
		profileURL: providerBaseURL + "/api/v1/me",
		httpClient: &http.Client{Timeout: providerTimeout},
		logger:     logger,
	}
}

// AuthCodeURL returns the provider authorization URL the browser is
// redirected to at the start of the flow.
func (s *OAuthService) AuthCodeURL() string {
	return s.oauth.AuthCodeURL("")
}

// providerIdentity is the provider's profile response shape.
type providerIdentity struct {
	Identity struct {
		ID                 string `json:"id"`
		SlackID            string `json:"slack_id"`
		PrimaryEmail       string `json:"primary_email"`
		FirstName          string `json:"first_name"`
		LastName           string `json:"last_name"`
		VerificationStatus string `json:"verification_status"`
		YswsEligible       bool   `json:"ysws_eligible"`
	} `json:"identity"`
}

// HandleCallback runs steps 2-4 of the exchange for an authorization code:
// token exchange, profile fetch, user upsert, session issuance. The returned
// session carries the cookie token.
func (s *OAuthService) HandleCallback(ctx context.Context, code string) (*model.User, *model.Session, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("oauth code exchange failed", "error", err)
		return nil, nil, apperr.New(apperr.BadRequest, "Failed to exchange code for token")
	}

	identity, err := s.fetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, err
	}

	if identity.Identity.SlackID == "" {
		return nil, nil, apperr.New(apperr.BadRequest, "User does not have a linked Slack account")
	}

	name := strings.TrimSpace(identity.Identity.FirstName + " " + identity.Identity.LastName)
	user, err := s.store.UpsertUserBySlackID(ctx, store.UserProfile{
		SlackID:       identity.Identity.SlackID,
		Email:         identity.Identity.PrimaryEmail,
		Name:          name,
		IsIdvVerified: identity.Identity.YswsEligible,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("upsert user: %w", err)
	}

	session, err := s.store.CreateSession(ctx, user.ID, uuid.NewString(), time.Now().Add(SessionTTL))
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	return user, session, nil
}

func (s *OAuthService) fetchProfile(ctx context.Context, accessToken string) (*providerIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("oauth profile fetch failed", "error", err)
		return nil, apperr.New(apperr.Unauthorized, "Failed to fetch user identity")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Warn("oauth profile fetch rejected", "status", resp.StatusCode, "body", string(body))
		return nil, apperr.New(apperr.Unauthorized, "Failed to fetch user identity")
	}

	var identity providerIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, apperr.New(apperr.Unauthorized, "Failed to fetch user identity")
	}
	return &identity, nil
}

// Logout deletes the session behind the given token, if any.
func (s *OAuthService) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSessionByToken(ctx, token)
}
