package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hackclub/searchproxy/internal/apperr"
	"github.com/hackclub/searchproxy/internal/server/middleware"
	"github.com/hackclub/searchproxy/internal/service"
	"github.com/hackclub/searchproxy/internal/store"
)

// KeysHandler manages the API-key lifecycle for the logged-in user, plus the
// out-of-band revocation endpoint used by secret-scanning partners.
type KeysHandler struct {
	store *store.Store
}

// NewKeysHandler creates a new KeysHandler.
func NewKeysHandler(st *store.Store) *KeysHandler {
	return &KeysHandler{store: st}
}

// createKeyRequest is the expected payload for Create.
type createKeyRequest struct {
	Name string `json:"name"`
}

// createKeyResponse carries the raw key. This is the only place the full
// token is ever returned.
type createKeyResponse struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// keySummary is the list representation: a truncated preview, never the
// full token.
type keySummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	KeyPreview string    `json:"keyPreview"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Create mints a new API key for the session user.
// POST /api/keys
func (h *KeysHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	var req createKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, apperr.New(apperr.BadRequest, "Invalid request body"))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "API Key"
	}

	token, err := service.NewAPIKeyToken()
	if err != nil {
		writeError(w, err)
		return
	}

	key, err := h.store.CreateAPIKey(r.Context(), identity.User.ID, token, name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createKeyResponse{
		ID:        key.ID,
		Key:       key.Key,
		Name:      key.Name,
		CreatedAt: key.CreatedAt,
	})
}

// List returns the session user's active keys, previews only.
// GET /api/keys
func (h *KeysHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())

	keys, err := h.store.ListActiveAPIKeys(r.Context(), identity.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]keySummary, len(keys))
	for i, k := range keys {
		out[i] = keySummary{
			ID:         k.ID,
			Name:       k.Name,
			KeyPreview: k.Preview(),
			CreatedAt:  k.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"keys": out})
}

// Revoke disables one of the session user's keys. Revoking an
// already-revoked key succeeds; revoking a key that does not exist or
// belongs to someone else is a 404 either way, so ownership cannot be
// probed.
// DELETE /api/keys/{keyID}
func (h *KeysHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	keyID := chi.URLParam(r, "keyID")

	err := h.store.RevokeAPIKey(r.Context(), keyID, identity.User.ID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, apperr.New(apperr.BadRequest, "Key not found"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// revokeByTokenRequest is the expected payload for RevokeByToken.
type revokeByTokenRequest struct {
	Token string `json:"token"`
}

// RevokeByToken disables a key given its raw token. Secret-scanning
// partners call this when a key leaks publicly; the response names the
// owner so they can be notified. Unknown and already-revoked tokens both
// answer {"success": false} with no owner details, so a dead token cannot
// be used to look anything up.
// POST /internal/revoke
func (h *KeysHandler) RevokeByToken(w http.ResponseWriter, r *http.Request) {
	var req revokeByTokenRequest
	if err := readJSON(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		writeError(w, apperr.New(apperr.BadRequest, "Token is required"))
		return
	}

	key, user, err := h.store.GetAPIKeyByToken(r.Context(), req.Token)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if key.RevokedAt != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false})
		return
	}

	if err := h.store.RevokeAPIKeyByID(r.Context(), key.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"owner_email": user.Email,
		"key_name":    key.Name,
	})
}
