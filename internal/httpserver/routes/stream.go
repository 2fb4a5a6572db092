package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/handlers"
)

func init() { RegisterStream(registerStream) }

func registerStream(r chi.Router, d deps.Deps) {
	r.With(access(d)...).Get("/api/ws", handlers.Stream(d))
}
