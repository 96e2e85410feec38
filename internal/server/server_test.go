package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hackclub/searchproxy/internal/audit"
	"github.com/hackclub/searchproxy/internal/config"
	"github.com/hackclub/searchproxy/internal/model"
	"github.com/hackclub/searchproxy/internal/proxy"
	"github.com/hackclub/searchproxy/internal/server/middleware"
	"github.com/hackclub/searchproxy/internal/service"
	"github.com/hackclub/searchproxy/internal/store"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// testEnv holds the shared state for integration tests: a fully wired Server
// over an in-memory store, with a stub upstream.
type testEnv struct {
	server   *Server
	store    *store.Store
	auditor  *audit.Logger
	upstream *httptest.Server

	upstreamStatus int
	upstreamBody   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		upstreamStatus: http.StatusOK,
		upstreamBody:   `{"results":["ok"]}`,
	}

	env.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(env.upstreamStatus)
		w.Write([]byte(env.upstreamBody))
	}))
	t.Cleanup(env.upstream.Close)

	st, err := store.Open("")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	env.store = st

	cfg := &config.Config{
		Host:            "127.0.0.1",
		Port:            0,
		BaseURL:         "http://localhost:3000",
		Env:             config.EnvDevelopment,
		UpstreamBaseURL: env.upstream.URL,
		SearchToken:     "BSA-test",
		ProxyLimit:      200,
		ProxyWindow:     30 * time.Minute,
		LoginLimit:      30,
		LoginWindow:     10 * time.Minute,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc := service.NewAuthService(st, cfg)
	oauthSvc := service.NewOAuthService(st, cfg, logger)
	forwarder := proxy.NewForwarder(cfg)
	env.auditor = audit.New(st, logger, audit.DefaultQueueSize)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		env.auditor.Close(ctx)
	})

	env.server = New(cfg, st, authSvc, oauthSvc, forwarder, env.auditor, logger)
	return env
}

// seedSession creates a user with a live session cookie and an API key.
func (env *testEnv) seedSession(t *testing.T, slackID string) (*model.User, *http.Cookie, string) {
	t.Helper()
	ctx := context.Background()

	user, err := env.store.UpsertUserBySlackID(ctx, store.UserProfile{
		SlackID: slackID,
		Email:   slackID + "@example.com",
		Name:    "Test User",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	token := "sess-" + slackID
	if _, err := env.store.CreateSession(ctx, user.ID, token, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	keyToken := "hcs_" + slackID
	if _, err := env.store.CreateAPIKey(ctx, user.ID, keyToken, "seeded"); err != nil {
		t.Fatalf("seed key: %v", err)
	}

	cookie := &http.Cookie{Name: middleware.SessionCookieName, Value: token}
	return user, cookie, keyToken
}

func (env *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	env.server.ServeHTTP(rr, req)
	return rr
}

// drainAudit flushes queued audit entries so log assertions see them.
func (env *testEnv) drainAudit(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := env.store.CountRequestLogs(context.Background())
		if err == nil && n > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest("GET", "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest("GET", "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Auth flow
// ---------------------------------------------------------------------------

func TestLoginRedirectsToProvider(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest("GET", "/auth/login", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	loc := rr.Header().Get("Location")
	if !strings.Contains(loc, "/oauth/authorize") {
		t.Errorf("expected provider authorize redirect, got %q", loc)
	}
}

func TestCallbackWithoutCodeRedirectsHome(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest("GET", "/auth/callback", nil))
	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect home, got %q", loc)
	}

	count, _ := env.store.CountUsers(context.Background())
	if count != 0 {
		t.Errorf("abandoned flow must not create rows, got %d users", count)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	env := newTestEnv(t)
	_, cookie, _ := env.seedSession(t, "U5OUT")

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req.AddCookie(cookie)
	rr := env.do(t, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rr.Code)
	}

	// The session no longer authenticates.
	req = httptest.NewRequest("GET", "/api/me", nil)
	req.AddCookie(cookie)
	if rr := env.do(t, req); rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Dashboard API
// ---------------------------------------------------------------------------

func TestDashboardRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/me", "/api/stats", "/api/logs", "/api/keys"} {
		rr := env.do(t, httptest.NewRequest("GET", path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 without session, got %d", path, rr.Code)
		}
	}
}

func TestRootSessionProbe(t *testing.T) {
	env := newTestEnv(t)
	_, cookie, _ := env.seedSession(t, "U5ROOT")

	rr := env.do(t, httptest.NewRequest("GET", "/", nil))
	var anon struct {
		Authenticated bool `json:"authenticated"`
	}
	json.Unmarshal(rr.Body.Bytes(), &anon)
	if anon.Authenticated {
		t.Error("expected unauthenticated probe without cookie")
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)
	rr = env.do(t, req)
	json.Unmarshal(rr.Body.Bytes(), &anon)
	if !anon.Authenticated {
		t.Error("expected authenticated probe with cookie")
	}
}

func TestKeyLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, cookie, _ := env.seedSession(t, "U5KEYS")

	// Create
	body := bytes.NewBufferString(`{"name":"CI key"}`)
	req := httptest.NewRequest("POST", "/api/keys", body)
	req.AddCookie(cookie)
	rr := env.do(t, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var created struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("create response: %v", err)
	}
	if !strings.HasPrefix(created.Key, "hcs_") {
		t.Errorf("expected hcs_ prefix, got %q", created.Key)
	}

	// List shows previews, never the full token.
	req = httptest.NewRequest("GET", "/api/keys", nil)
	req.AddCookie(cookie)
	rr = env.do(t, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), created.Key) {
		t.Error("full token leaked in list response")
	}
	if !strings.Contains(rr.Body.String(), created.Key[:model.PreviewLen]) {
		t.Error("expected preview in list response")
	}

	// Revoke, twice: both succeed.
	for i := 0; i < 2; i++ {
		req = httptest.NewRequest("DELETE", "/api/keys/"+created.ID, nil)
		req.AddCookie(cookie)
		rr = env.do(t, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("revoke %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	// The revoked key no longer authenticates.
	req = httptest.NewRequest("GET", "/res/v1/web/search?q=test", nil)
	req.Header.Set("Authorization", "Bearer "+created.Key)
	rr = env.do(t, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with revoked key, got %d", rr.Code)
	}
}

func TestInternalRevokeByToken(t *testing.T) {
	env := newTestEnv(t)
	user, _, keyToken := env.seedSession(t, "U5SCAN")

	body := bytes.NewBufferString(`{"token":"` + keyToken + `"}`)
	rr := env.do(t, httptest.NewRequest("POST", "/internal/revoke", body))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Success    bool   `json:"success"`
		OwnerEmail string `json:"owner_email"`
		KeyName    string `json:"key_name"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response: %v", err)
	}
	if !resp.Success || resp.OwnerEmail != user.Email || resp.KeyName != "seeded" {
		t.Errorf("unexpected response %+v", resp)
	}

	// Repeating the revocation reports failure and discloses nothing about
	// the owner; the token is dead.
	body = bytes.NewBufferString(`{"token":"` + keyToken + `"}`)
	rr = env.do(t, httptest.NewRequest("POST", "/internal/revoke", body))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for repeat revoke, got %d", rr.Code)
	}
	assertRevokeFailure(t, rr.Body.Bytes())

	// Unknown tokens get the same answer as dead ones.
	body = bytes.NewBufferString(`{"token":"hcs_nope"}`)
	rr = env.do(t, httptest.NewRequest("POST", "/internal/revoke", body))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown token, got %d", rr.Code)
	}
	assertRevokeFailure(t, rr.Body.Bytes())
}

// assertRevokeFailure checks a {"success": false} revocation response with
// no owner fields.
func assertRevokeFailure(t *testing.T, body []byte) {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("response: %v", err)
	}
	if success, _ := resp["success"].(bool); success {
		t.Errorf("expected success=false, got %v", resp)
	}
	if _, ok := resp["owner_email"]; ok {
		t.Errorf("owner details leaked for a non-revocable token: %v", resp)
	}
}

// ---------------------------------------------------------------------------
// Proxy surface
// ---------------------------------------------------------------------------

func TestProxyEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	user, cookie, keyToken := env.seedSession(t, "U5E2E")

	req := httptest.NewRequest("GET", "/res/v1/web/search?q=dinosaurs", nil)
	req.Header.Set("Authorization", "Bearer "+keyToken)
	rr := env.do(t, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != `{"results":["ok"]}` {
		t.Errorf("upstream body not relayed: %q", rr.Body.String())
	}

	// Exactly one audit row lands, attributed to the user and endpoint.
	env.drainAudit(t)
	count, err := env.store.CountRequestsByUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 log row, got %d", count)
	}

	logs, err := env.store.ListRecentLogs(context.Background(), user.ID, 10)
	if err != nil || len(logs) != 1 {
		t.Fatalf("list logs: %v (%d)", err, len(logs))
	}
	if logs[0].Endpoint != "web" {
		t.Errorf("expected endpoint web, got %q", logs[0].Endpoint)
	}
	if logs[0].DurationMs < 0 {
		t.Errorf("negative duration %d", logs[0].DurationMs)
	}

	// Stats reflect the forwarded request on both surfaces.
	sreq := httptest.NewRequest("GET", "/api/stats", nil)
	sreq.AddCookie(cookie)
	srr := env.do(t, sreq)
	if !strings.Contains(srr.Body.String(), `"totalRequests":1`) {
		t.Errorf("dashboard stats: %s", srr.Body.String())
	}

	kreq := httptest.NewRequest("GET", "/res/v1/stats", nil)
	kreq.Header.Set("Authorization", "Bearer "+keyToken)
	krr := env.do(t, kreq)
	if !strings.Contains(krr.Body.String(), `"totalRequests":1`) {
		t.Errorf("proxy stats: %s", krr.Body.String())
	}
}

func TestProxyValidationFailureIsAudited(t *testing.T) {
	env := newTestEnv(t)
	user, _, keyToken := env.seedSession(t, "U5VAL")

	req := httptest.NewRequest("GET", "/res/v1/web/search", nil)
	req.Header.Set("Authorization", "Bearer "+keyToken)
	rr := env.do(t, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	env.drainAudit(t)
	count, _ := env.store.CountRequestsByUser(context.Background(), user.ID)
	if count != 1 {
		t.Errorf("failed attempts must be audited, got %d rows", count)
	}
}

func TestProxyRelaysUpstreamErrors(t *testing.T) {
	env := newTestEnv(t)
	_, _, keyToken := env.seedSession(t, "U5RELAY")

	env.upstreamStatus = http.StatusTooManyRequests
	env.upstreamBody = `{"type":"ErrResponse","detail":"plan limit"}`

	req := httptest.NewRequest("GET", "/res/v1/news/search?q=test", nil)
	req.Header.Set("Authorization", "Bearer "+keyToken)
	rr := env.do(t, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected upstream 429 relayed, got %d", rr.Code)
	}
	if rr.Body.String() != env.upstreamBody {
		t.Errorf("expected upstream body relayed, got %q", rr.Body.String())
	}
}

func TestProxyRequiresBearer(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, httptest.NewRequest("GET", "/res/v1/web/search?q=test", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without bearer, got %d", rr.Code)
	}
}

func TestProxyRateLimitHeaders(t *testing.T) {
	env := newTestEnv(t)
	_, _, keyToken := env.seedSession(t, "U5RATE")

	req := httptest.NewRequest("GET", "/res/v1/web/search?q=test", nil)
	req.Header.Set("Authorization", "Bearer "+keyToken)
	rr := env.do(t, req)

	if rr.Header().Get("X-RateLimit-Limit") == "" {
		t.Error("expected X-RateLimit-Limit header on proxy responses")
	}
	if rr.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("expected X-RateLimit-Remaining header")
	}
}
