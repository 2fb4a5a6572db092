package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/mw"
)

func init() { Register(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.With(access(d)...).Get("/api/categories", handlers.Categories(d))

	r.Route("/api/bookmarks", func(r chi.Router) {
		r.Use(access(d)...)

		r.Get("/", handlers.ListBookmarks(d))

		r.Group(func(w chi.Router) {
			w.Use(mw.RateLimit(mw.RateLimitConfig{
				Burst:        d.WriteBurst,
				RefillPerMin: d.WriteRefillPerMin,
				MaxEntries:   1024,
				Key:          writerKey(d),
			}, d.Logger))

			w.Post("/", handlers.CreateBookmark(d))
			w.Patch("/{id}", handlers.UpdateBookmark(d))
			w.Delete("/{id}", handlers.DeleteBookmark(d))
			w.Post("/{id}/favorite", handlers.ToggleFavorite(d))
		})

		r.Post("/{id}/edit", handlers.BeginEdit(d))
		r.Delete("/{id}/edit", handlers.CancelEdit(d))
	})
}

// writerKey buckets writes by signed-in user, so every tab and process of
// one user shares a budget. Anonymous callers fall back to their address.
func writerKey(d deps.Deps) mw.KeyFunc {
	byAddr := mw.ClientKey(d.TrustProxy)
	return func(r *http.Request) string {
		if owner := d.Session().OwnerID(); owner != "" {
			return "owner:" + owner
		}
		return byAddr(r)
	}
}
