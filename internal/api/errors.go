// Package api implements the Control API (C10): the HTTP surface for
// listing, inspecting, retrying, and deleting MediaFile rows, and for
// reading/writing the config subsystem. Grounded on the original's FastAPI
// routers, adapted to go-chi, and on internal/api/middleware's canonical
// ingress stack.
package api

import (
	"encoding/json"
	"net/http"
)

// decodeJSON reads and decodes r's body into v, rejecting unknown fields so
// typos in a batch request surface as a 400 instead of being silently
// ignored.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// errorBody is the §4.10/§6 wire shape for every non-2xx response.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeBadRequest(w http.ResponseWriter, detail string)          { writeError(w, http.StatusBadRequest, detail) }
func writeNotFound(w http.ResponseWriter, detail string)            { writeError(w, http.StatusNotFound, detail) }
func writeUnprocessable(w http.ResponseWriter, detail string)       { writeError(w, http.StatusUnprocessableEntity, detail) }
func writeInternalError(w http.ResponseWriter, detail string)       { writeError(w, http.StatusInternalServerError, detail) }
