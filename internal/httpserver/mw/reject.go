package mw

import (
	"net/http"
)

// reject writes a small JSON body so API clients can tell a policy refusal
// from a domain error.
func reject(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + reason + `","message":"` + http.StatusText(status) + `"}` + "\n"))
}
