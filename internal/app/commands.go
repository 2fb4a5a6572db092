package app

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/sources/homepage"
)

// Login mints a session for userID and stores its token in the profile.
// Running processes of the profile pick it up through the token file signal.
func (a *App) Login(ctx context.Context, userID, label string) (*domain.Identity, error) {
	token, identity, err := a.provider.SignIn(ctx, userID, label)
	if err != nil {
		return nil, err
	}
	if err := a.tokens.Write(token); err != nil {
		// Do not leave a session nobody holds a token for
		_ = a.provider.SignOut(ctx, token)
		return nil, err
	}
	return identity, nil
}

// Logout revokes the profile's session and clears its token
func (a *App) Logout(ctx context.Context) error {
	token, err := a.tokens.Read()
	if err != nil {
		return err
	}
	if token != "" {
		if err := a.provider.SignOut(ctx, token); err != nil {
			return err
		}
	}
	return a.tokens.Clear()
}

// requireSession starts the session and fails unless it is authenticated
func (a *App) requireSession(ctx context.Context) (domain.Session, error) {
	s, err := a.StartSession(ctx)
	if err != nil {
		return s, err
	}
	switch s.Status {
	case domain.StatusAuthenticated:
		return s, nil
	case domain.StatusUnauthenticated:
		return s, fmt.Errorf("%w: run `marksync login` first", domain.ErrUnauthenticated)
	default:
		return s, fmt.Errorf("%w: session could not be verified", domain.ErrTransient)
	}
}

// List returns the projected view of the signed-in user's collection
func (a *App) List(ctx context.Context, search, category string, sortKey domain.SortKey) ([]*domain.Bookmark, error) {
	if _, err := a.requireSession(ctx); err != nil {
		return nil, err
	}
	return domain.Project(a.collection.All(), search, category, sortKey), nil
}

// Add creates one bookmark for the signed-in user
func (a *App) Add(ctx context.Context, url, title, category string) (*domain.Bookmark, error) {
	if _, err := a.requireSession(ctx); err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, a.requestTimeout())
	defer cancel()
	return a.gateway.Create(opCtx, url, title, category)
}

// Import creates the bookmarks of a Homepage bookmarks.yaml
func (a *App) Import(ctx context.Context, path string) (homepage.Result, error) {
	config, err := homepage.NewLoader(path).Load()
	if err != nil {
		return homepage.Result{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if _, err := a.requireSession(ctx); err != nil {
		return homepage.Result{}, err
	}
	return homepage.NewImporter(a.gateway, a.logger).Import(ctx, homepage.Entries(config))
}
