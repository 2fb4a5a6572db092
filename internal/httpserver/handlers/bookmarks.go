package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
)

type listResponse struct {
	Bookmarks []*domain.Bookmark `json:"bookmarks"`
	Count     int                `json:"count"`
	Total     int                `json:"total"`
	Version   uint64             `json:"version"`
	EditingID string             `json:"editing_id,omitempty"`
}

type createRequest struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

type favoriteRequest struct {
	Current *bool `json:"current,omitempty"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

// ListBookmarks returns the projected view: ?q= search, ?category= filter, ?sort= date|title|favorites
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Session().OwnerID() == "" {
			writeError(w, r, d, domain.ErrUnauthenticated)
			return
		}

		q := r.URL.Query()
		category := q.Get("category")
		if category == "" {
			category = domain.CategoryAll
		}

		all := d.Collection.All()
		view := domain.Project(all, q.Get("q"), category, domain.ParseSortKey(q.Get("sort")))

		writeJSON(w, http.StatusOK, listResponse{
			Bookmarks: view,
			Count:     len(view),
			Total:     len(all),
			Version:   d.Collection.Version(),
			EditingID: d.Gateway.EditingID(),
		})
	}
}

func Categories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Session().OwnerID() == "" {
			writeError(w, r, d, domain.ErrUnauthenticated)
			return
		}

		writeJSON(w, http.StatusOK, categoriesResponse{Categories: domain.Categories(d.Collection.All())})
	}
}

func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d, err)
			return
		}

		created, err := d.Gateway.Create(r.Context(), req.URL, req.Title, req.Category)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch domain.Patch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, r, d, err)
			return
		}

		updated, err := d.Gateway.Update(r.Context(), chi.URLParam(r, "id"), patch)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Gateway.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, d, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ToggleFavorite flips the flag. The body may carry the value the client saw;
// without it the mirrored row decides.
func ToggleFavorite(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req favoriteRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, d, err)
				return
			}
		}

		current := false
		if req.Current != nil {
			current = *req.Current
		} else if b, ok := d.Collection.Get(id); ok {
			current = b.IsFavorite
		}

		updated, err := d.Gateway.ToggleFavorite(r.Context(), id, current)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func BeginEdit(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := d.Collection.Get(id); !ok {
			writeError(w, r, d, domain.ErrNotFoundOrForbidden)
			return
		}
		d.Gateway.BeginEdit(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// CancelEdit ends the edit of {id}; ending an edit that is not in progress is a no-op.
func CancelEdit(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Gateway.EditingID() == chi.URLParam(r, "id") {
			d.Gateway.CancelEdit()
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
