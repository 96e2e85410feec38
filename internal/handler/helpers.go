package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hackclub/searchproxy/internal/apperr"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes err using the standard error envelope. Errors outside
// the known taxonomy collapse to a generic 500 so internal details never
// reach a caller.
func writeError(w http.ResponseWriter, err error) {
	apperr.Write(w, err)
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
