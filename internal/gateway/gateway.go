// Package gateway performs every user-initiated write against the backing
// store and refreshes the collection after each acknowledged write.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

// Backend is the subset of the backing store the gateway writes to.
type Backend interface {
	FindByURL(ctx context.Context, ownerID, url string) (*domain.Bookmark, error)
	InsertBookmark(ctx context.Context, bookmark *domain.Bookmark) (*domain.Bookmark, error)
	UpdateBookmark(ctx context.Context, ownerID, id string, patch domain.Patch) (*domain.Bookmark, error)
	DeleteBookmark(ctx context.Context, ownerID, id string) error
}

// Refresher is the reconciliation store's single refresh entry point.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// SessionFunc returns the current session.
type SessionFunc func() domain.Session

type Gateway struct {
	backend   Backend
	refresher Refresher
	session   SessionFunc
	logger    logger.Logger

	mu        sync.Mutex
	editingID string
	editOwner string
}

func New(backend Backend, refresher Refresher, session SessionFunc, log logger.Logger) *Gateway {
	return &Gateway{
		backend:   backend,
		refresher: refresher,
		session:   session,
		logger:    log,
	}
}

func (g *Gateway) ownerID() (string, error) {
	owner := g.session().OwnerID()
	if owner == "" {
		return "", domain.ErrUnauthenticated
	}
	return owner, nil
}

// Create adds a bookmark for the signed-in user.
// A blank title falls back to the URL and a blank category to "general".
func (g *Gateway) Create(ctx context.Context, url, title, category string) (*domain.Bookmark, error) {
	owner, err := g.ownerID()
	if err != nil {
		return nil, err
	}

	url = strings.TrimSpace(url)
	if err := domain.ValidateURL(url); err != nil {
		return nil, err
	}

	existing, err := g.backend.FindByURL(ctx, owner, url)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%s: %w", url, domain.ErrDuplicate)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = url
	}

	created, err := g.backend.InsertBookmark(ctx, &domain.Bookmark{
		OwnerID:    owner,
		URL:        url,
		Title:      title,
		Category:   domain.NormalizeCategory(category),
		IsFavorite: false,
	})
	if err != nil {
		// The store's uniqueness key catches the race the pre-check cannot
		return nil, err
	}

	g.logger.Info("bookmark created",
		logger.String("owner_id", owner),
		logger.String("id", created.ID))

	g.refresh(ctx, "create")
	return created, nil
}

// Update patches a bookmark owned by the signed-in user and ends any edit in progress.
func (g *Gateway) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Bookmark, error) {
	owner, err := g.ownerID()
	if err != nil {
		return nil, err
	}

	if patch.URL != nil {
		trimmed := strings.TrimSpace(*patch.URL)
		if err := domain.ValidateURL(trimmed); err != nil {
			return nil, err
		}
		patch.URL = &trimmed
	}

	updated, err := g.backend.UpdateBookmark(ctx, owner, id, patch)
	if err != nil {
		return nil, err
	}

	g.CancelEdit()

	g.logger.Info("bookmark updated",
		logger.String("owner_id", owner),
		logger.String("id", id))

	g.refresh(ctx, "update")
	return updated, nil
}

// Delete removes a bookmark owned by the signed-in user
func (g *Gateway) Delete(ctx context.Context, id string) error {
	owner, err := g.ownerID()
	if err != nil {
		return err
	}

	if err := g.backend.DeleteBookmark(ctx, owner, id); err != nil {
		return err
	}

	g.mu.Lock()
	if g.editingID == id {
		g.editingID, g.editOwner = "", ""
	}
	g.mu.Unlock()

	g.logger.Info("bookmark deleted",
		logger.String("owner_id", owner),
		logger.String("id", id))

	g.refresh(ctx, "delete")
	return nil
}

// ToggleFavorite flips the favorite flag from the value the caller last saw
func (g *Gateway) ToggleFavorite(ctx context.Context, id string, current bool) (*domain.Bookmark, error) {
	next := !current
	return g.Update(ctx, id, domain.Patch{IsFavorite: &next})
}

// BeginEdit marks a bookmark as being edited. Only one edit is open at a
// time, and it belongs to the user who opened it.
func (g *Gateway) BeginEdit(id string) {
	owner := g.session().OwnerID()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.editingID = id
	g.editOwner = owner
}

// EditingID returns the bookmark being edited, or "" when there is none or
// the session changed hands since it was opened.
func (g *Gateway) EditingID() string {
	owner := g.session().OwnerID()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.editOwner != owner {
		g.editingID, g.editOwner = "", ""
	}
	return g.editingID
}

func (g *Gateway) CancelEdit() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.editingID, g.editOwner = "", ""
}

// refresh gives the caller read-your-writes. The write is already
// acknowledged, so a failure here is only logged.
func (g *Gateway) refresh(ctx context.Context, op string) {
	if err := g.refresher.Refresh(ctx); err != nil {
		g.logger.Warn("refresh after write failed",
			logger.String("op", op),
			logger.Error(err))
	}
}
