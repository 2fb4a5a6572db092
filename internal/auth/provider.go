package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	storeredis "github.com/MrSnakeDoc/marksync/internal/store/redis"
)

// SessionStore is the server-side session registry.
type SessionStore interface {
	SaveSession(ctx context.Context, record storeredis.SessionRecord) error
	GetSession(ctx context.Context, sessionID string) (*storeredis.SessionRecord, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)
	PublishAuthEvent(ctx context.Context, event domain.AuthEvent) error
}

// Provider is the identity provider: it mints, validates and revokes session tokens.
type Provider struct {
	store SessionStore
	cfg   TokenConfig
	log   logger.Logger
}

func NewProvider(store SessionStore, cfg TokenConfig, log logger.Logger) *Provider {
	return &Provider{store: store, cfg: cfg, log: log}
}

// SignIn creates a session for userID and announces it to every process.
func (p *Provider) SignIn(ctx context.Context, userID, label string) (string, *domain.Identity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = userID
	}

	token, claims, err := CreateToken(userID, label, p.cfg)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create token: %w", err)
	}

	record := storeredis.SessionRecord{
		ID:        claims.ID,
		UserID:    userID,
		Label:     label,
		CreatedAt: claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := p.store.SaveSession(ctx, record); err != nil {
		return "", nil, err
	}

	event := domain.AuthEvent{
		Type:      domain.AuthSignedIn,
		SessionID: claims.ID,
		UserID:    userID,
		Label:     label,
		At:        time.Now().UTC(),
	}
	if err := p.store.PublishAuthEvent(ctx, event); err != nil {
		// Other processes still pick the session up on their next poll
		p.log.Warn("failed to publish sign-in", logger.String("user_id", userID), logger.Error(err))
	}

	p.log.Info("signed in", logger.String("user_id", userID), logger.String("session_id", claims.ID))

	return token, &domain.Identity{ID: userID, Label: label, SessionID: claims.ID}, nil
}

// CurrentUser resolves a token to its identity.
//
// (nil, nil) means there is definitively no session: empty, malformed,
// expired or revoked token. A non-nil error means the answer is unknown.
func (p *Provider) CurrentUser(ctx context.Context, token string) (*domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}

	claims, err := VerifyToken(token, p.cfg)
	if err != nil {
		p.log.Debug("rejected session token", logger.Error(err))
		return nil, nil
	}

	record, err := p.store.GetSession(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if record == nil || record.UserID != claims.UserID {
		return nil, nil
	}

	return &domain.Identity{ID: record.UserID, Label: record.Label, SessionID: record.ID}, nil
}

// SignOut revokes the token's session and announces it. Signing out an
// invalid or already revoked token is not an error.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	claims, err := VerifyToken(strings.TrimSpace(token), p.cfg)
	if err != nil {
		return nil
	}

	removed, err := p.store.DeleteSession(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	event := domain.AuthEvent{
		Type:      domain.AuthSignedOut,
		SessionID: claims.ID,
		UserID:    claims.UserID,
		At:        time.Now().UTC(),
	}
	if err := p.store.PublishAuthEvent(ctx, event); err != nil {
		p.log.Warn("failed to publish sign-out", logger.String("user_id", claims.UserID), logger.Error(err))
	}

	p.log.Info("signed out", logger.String("user_id", claims.UserID), logger.String("session_id", claims.ID))
	return nil
}
