package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/handlers"
)

func init() { Register(registerSession) }

func registerSession(r chi.Router, d deps.Deps) {
	r = r.With(access(d)...)
	r.Get("/api/session", handlers.Session(d))
	r.Post("/api/logout", handlers.Logout(d))
	r.Post("/api/refresh", handlers.Refresh(d))
}
