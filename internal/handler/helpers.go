package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// defaultHousehold scopes requests that omit an explicit household id.
// Single-household deployments never need to pass one.
const defaultHousehold = "default"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func householdParam(r *http.Request) string {
	if v := r.URL.Query().Get("household_id"); v != "" {
		return v
	}
	return defaultHousehold
}

// parseDateParam reads a query parameter as either a plain date or a full
// RFC 3339 timestamp.
func parseDateParam(r *http.Request, name string) (time.Time, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, true
	}
	return time.Time{}, false
}
