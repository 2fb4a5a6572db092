package app

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/hub"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/session"
)

// identity reads the profile's token and asks the provider who it belongs to
func (a *App) identity(ctx context.Context) (*domain.Identity, error) {
	token, err := a.tokens.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identity: %w: %w", domain.ErrTransient, err)
	}
	if token == "" {
		return nil, nil
	}
	return a.provider.CurrentUser(ctx, token)
}

func (a *App) authEvents(ctx context.Context) (<-chan domain.AuthEvent, func(), error) {
	sub, err := a.store.SubscribeAuthEvents(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sub.Events(), func() { _ = sub.Close() }, nil
}

func (a *App) storageSignal(ctx context.Context) (<-chan struct{}, func(), error) {
	return a.tokens.Watch(ctx, a.logger)
}

func (a *App) newMonitor(withSignals bool) *session.Monitor {
	opts := session.Options{
		Identity:     a.identity,
		PollInterval: a.cfg.PollInterval,
		Collection:   a.reconciler,
		Feed:         a.feed,
		Logger:       a.logger,
	}
	if withSignals {
		opts.AuthEvents = a.authEvents
		opts.Storage = a.storageSignal
	}
	return session.NewMonitor(opts)
}

// StartSession validates the stored session once and keeps watching it in
// the background. It returns the state after the first validation.
func (a *App) StartSession(ctx context.Context) (domain.Session, error) {
	m := a.newMonitor(true)
	a.setMonitor(m)
	if err := m.Start(ctx); err != nil {
		return domain.Session{}, err
	}
	return m.Current(), nil
}

func (a *App) setMonitor(m *session.Monitor) {
	a.monMu.Lock()
	prev := a.monitor
	a.monitor = m
	a.monMu.Unlock()

	if prev != nil {
		prev.Stop()
	}
}

func (a *App) stopMonitor() {
	a.monMu.Lock()
	m := a.monitor
	a.monMu.Unlock()

	if m != nil {
		m.Stop()
	}
}

// superviseSessions runs one monitor per sign-in. A monitor that reached
// Unauthenticated is done; the next one starts once a session shows up again.
func (a *App) superviseSessions(ctx context.Context) {
	for {
		m := a.newMonitor(true)
		a.setMonitor(m)
		if err := m.Start(ctx); err != nil {
			a.logger.Error("failed to start session monitor", logger.Error(err))
			return
		}
		go a.forwardSession(m)

		select {
		case <-ctx.Done():
			m.Stop()
			return
		case <-m.Done():
		}

		if ctx.Err() != nil {
			return
		}
		if !a.waitForSignIn(ctx) {
			return
		}
		a.logger.Info("new session detected, restarting monitor")
	}
}

// forwardSession pushes every state of m to the websocket hub
func (a *App) forwardSession(m *session.Monitor) {
	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	for {
		select {
		case s := <-ch:
			a.hub.Publish(hub.TopicSession, hub.SessionMessage(s))
		case <-m.Done():
			select {
			case s := <-ch:
				a.hub.Publish(hub.TopicSession, hub.SessionMessage(s))
			default:
			}
			return
		}
	}
}

// waitForSignIn blocks until the identity provider reports a session
// again. It watches the token file and polls as a fallback.
func (a *App) waitForSignIn(ctx context.Context) bool {
	signals, cancel, err := a.storageSignal(ctx)
	if err != nil {
		a.logger.Warn("storage signal unavailable, polling for sign-in", logger.Error(err))
		signals, cancel = nil, func() {}
	}
	defer cancel()

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-signals:
		case <-ticker.C:
		}

		identity, err := a.identity(ctx)
		if err != nil {
			a.logger.Debug("sign-in check failed", logger.Error(err))
			continue
		}
		if identity != nil {
			return true
		}
	}
}
