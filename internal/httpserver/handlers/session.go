package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

// Session returns the current authentication state
func Session(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Session())
	}
}

// Logout revokes the profile's session. Every process sharing the profile
// converges through the push event, the token file signal or the next poll.
func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Logout(r.Context()); err != nil {
			writeError(w, r, d, err)
			return
		}
		d.Logger.Info("logout requested via endpoint", logger.String("remote_ip", r.RemoteAddr))
		w.WriteHeader(http.StatusNoContent)
	}
}

// Refresh requests a background refresh of the collection
func Refresh(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Session().OwnerID() == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated", Message: "no active session"})
			return
		}
		d.Refresh()
		d.Logger.Info("manual refresh triggered via endpoint", logger.String("remote_ip", r.RemoteAddr))
		w.WriteHeader(http.StatusAccepted)
	}
}
