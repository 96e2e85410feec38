package handler

import (
	"net/http"

	"github.com/hackclub/searchproxy/internal/server/middleware"
	"github.com/hackclub/searchproxy/internal/store"
)

// recentLogLimit caps the dashboard's activity feed.
const recentLogLimit = 50

// DashboardHandler serves the logged-in user's profile, usage stats, and
// recent request activity.
type DashboardHandler struct {
	store *store.Store
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(st *store.Store) *DashboardHandler {
	return &DashboardHandler{store: st}
}

// Root reports whether the caller holds a live session. The HTML layer in
// front of the gateway decides what to render with that.
// GET /
func (h *DashboardHandler) Root(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          identity.User,
	})
}

// Me returns the session user's profile.
// GET /api/me
func (h *DashboardHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	writeJSON(w, http.StatusOK, identity.User)
}

// Stats returns the session user's lifetime request count.
// GET /api/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	total, err := h.store.CountRequestsByUser(r.Context(), identity.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"totalRequests": total})
}

// Logs returns the session user's most recent forwarded requests, newest
// first. Bodies and headers are not included; this is the activity feed,
// not an export.
// GET /api/logs
func (h *DashboardHandler) Logs(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	logs, err := h.store.ListRecentLogs(r.Context(), identity.User.ID, recentLogLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}
