package handler

import (
	"net/http"
	"time"

	"github.com/hackclub/searchproxy/internal/audit"
	"github.com/hackclub/searchproxy/internal/model"
	"github.com/hackclub/searchproxy/internal/proxy"
	"github.com/hackclub/searchproxy/internal/server/middleware"
	"github.com/hackclub/searchproxy/internal/store"
)

// ProxyHandler relays authenticated search requests upstream and records an
// audit entry for every attempt, successful or not.
type ProxyHandler struct {
	forwarder *proxy.Forwarder
	store     *store.Store
	auditor   *audit.Logger
}

// NewProxyHandler creates a new ProxyHandler.
func NewProxyHandler(forwarder *proxy.Forwarder, st *store.Store, auditor *audit.Logger) *ProxyHandler {
	return &ProxyHandler{
		forwarder: forwarder,
		store:     st,
		auditor:   auditor,
	}
}

// Search returns the handler for one endpoint category. The upstream's
// status and body are relayed verbatim; only taxonomy errors (validation,
// timeout, transport failure) produce the gateway's own envelope.
// GET /res/v1/{category}/search
func (h *ProxyHandler) Search(endpoint proxy.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := middleware.GetIdentity(r.Context())
		params := r.URL.Query()
		start := time.Now()

		result, err := h.forwarder.Forward(r.Context(), endpoint, params)

		entry := &model.RequestLog{
			UserID:     identity.User.ID,
			SlackID:    identity.User.SlackID,
			Endpoint:   string(endpoint),
			Request:    audit.MarshalParams(params),
			Headers:    audit.MarshalHeaders(r.Header),
			IP:         middleware.GetClientIP(r.Context()),
			DurationMs: time.Since(start).Milliseconds(),
		}
		if identity.APIKey != nil {
			entry.APIKeyID = identity.APIKey.ID
		}

		if err != nil {
			entry.Response = audit.ErrorPayload(err)
			h.auditor.Record(entry)
			writeError(w, err)
			return
		}

		entry.Response = string(result.Body)
		h.auditor.Record(entry)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(result.Status)
		w.Write(result.Body)
	}
}

// Stats returns the caller's lifetime request count, for clients that only
// hold an API key and never see the dashboard.
// GET /res/v1/stats
func (h *ProxyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	total, err := h.store.CountRequestsByUser(r.Context(), identity.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"totalRequests": total})
}
