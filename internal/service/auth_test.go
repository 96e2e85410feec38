package service

import (
	"context"
	"testing"
	"time"

	"github.com/hackclub/searchproxy/internal/apperr"
	"github.com/hackclub/searchproxy/internal/config"
	"github.com/hackclub/searchproxy/internal/model"
	"github.com/hackclub/searchproxy/internal/store"
)

func newAuthFixture(t *testing.T, enforceIDV bool) (*AuthService, *store.Store) {
	t.Helper()
	st, err := store.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewAuthService(st, &config.Config{EnforceIDV: enforceIDV}), st
}

func seedIdentity(t *testing.T, st *store.Store, slackID string, verified bool) *model.User {
	t.Helper()
	user, err := st.UpsertUserBySlackID(context.Background(), store.UserProfile{
		SlackID:       slackID,
		Email:         slackID + "@example.com",
		Name:          "Someone",
		IsIdvVerified: verified,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := apperr.From(err).Kind; got != kind {
		t.Fatalf("expected kind %v, got %v (%v)", kind, got, err)
	}
}

func TestResolveSession(t *testing.T) {
	svc, st := newAuthFixture(t, false)
	ctx := context.Background()
	user := seedIdentity(t, st, "U1SESS", false)

	if _, err := st.CreateSession(ctx, user.ID, "sess-ok", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create session: %v", err)
	}

	identity, err := svc.ResolveSession(ctx, "sess-ok")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.User.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, identity.User.ID)
	}
	if identity.APIKey != nil {
		t.Error("session path must not carry an API key")
	}

	_, err = svc.ResolveSession(ctx, "sess-unknown")
	wantKind(t, err, apperr.Unauthorized)
}

func TestResolveSessionBannedUser(t *testing.T) {
	svc, st := newAuthFixture(t, false)
	ctx := context.Background()
	user := seedIdentity(t, st, "U1BAN", false)
	st.CreateSession(ctx, user.ID, "sess-ban", time.Now().Add(time.Hour))
	st.SetUserBanned(ctx, "U1BAN", true)

	_, err := svc.ResolveSession(ctx, "sess-ban")
	wantKind(t, err, apperr.Forbidden)
}

func TestResolveAPIKey(t *testing.T) {
	svc, st := newAuthFixture(t, false)
	ctx := context.Background()
	user := seedIdentity(t, st, "U1KEY", false)
	st.CreateAPIKey(ctx, user.ID, "hcs_resolve", "k")

	identity, err := svc.ResolveAPIKey(ctx, "hcs_resolve")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if identity.User.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, identity.User.ID)
	}
	if identity.APIKey == nil || identity.APIKey.Key != "hcs_resolve" {
		t.Error("expected the key on the identity")
	}

	_, err = svc.ResolveAPIKey(ctx, "hcs_unknown")
	wantKind(t, err, apperr.Unauthorized)
}

func TestResolveAPIKeyIDVMatrix(t *testing.T) {
	cases := []struct {
		name     string
		enforce  bool
		verified bool
		skip     bool
		wantErr  bool
	}{
		{"enforcement off", false, false, false, false},
		{"unverified blocked", true, false, false, true},
		{"verified allowed", true, true, false, false},
		{"exempt allowed", true, false, true, false},
		{"verified and exempt", true, true, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, st := newAuthFixture(t, tc.enforce)
			ctx := context.Background()
			seedIdentity(t, st, "U1IDV", tc.verified)
			if tc.skip {
				st.SetUserSkipIdv(ctx, "U1IDV", true)
			}
			user, _ := st.GetUserBySlackID(ctx, "U1IDV")
			st.CreateAPIKey(ctx, user.ID, "hcs_idv", "k")

			_, err := svc.ResolveAPIKey(ctx, "hcs_idv")
			if tc.wantErr {
				wantKind(t, err, apperr.Forbidden)
			} else if err != nil {
				t.Fatalf("expected success, got %v", err)
			}
		})
	}
}
