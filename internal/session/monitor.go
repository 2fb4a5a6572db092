// Package session tracks whether the current actor is signed in, and drives
// the collection and change feed lifecycles from that state.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

// DefaultPollInterval is how often the identity is re-validated
const DefaultPollInterval = 2 * time.Second

// IdentityFunc asks the identity provider who is signed in.
// It returns (nil, nil) when there is definitively no session and a non-nil
// error when the answer is unknown.
type IdentityFunc func(ctx context.Context) (*domain.Identity, error)

// AuthEventsFunc opens the push channel of sign-in / sign-out events.
type AuthEventsFunc func(ctx context.Context) (<-chan domain.AuthEvent, func(), error)

// StorageFunc opens the cross-process storage signal.
type StorageFunc func(ctx context.Context) (<-chan struct{}, func(), error)

// Collection is the reconciliation store as seen by the monitor.
type Collection interface {
	Activate(ctx context.Context, ownerID string) error
	Clear()
}

// Feed is the change feed subscriber as seen by the monitor.
type Feed interface {
	Activate(ctx context.Context, ownerID string) error
	Deactivate()
}

type Options struct {
	Identity     IdentityFunc
	AuthEvents   AuthEventsFunc // optional
	Storage      StorageFunc    // optional
	PollInterval time.Duration
	Collection   Collection
	Feed         Feed
	Logger       logger.Logger
}

// Monitor owns the session state. Its transitions are monotonic: once
// Unauthenticated it never becomes Authenticated again, a new sign-in needs
// a new Monitor.
type Monitor struct {
	opts Options
	log  logger.Logger

	mu          sync.RWMutex
	current     domain.Session
	subscribers map[int]chan domain.Session
	nextSub     int

	// owned by the run loop
	feedActive      bool
	collectionReady bool

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
}

// NewMonitor creates a monitor in the Unknown state
func NewMonitor(opts Options) *Monitor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	return &Monitor{
		opts:        opts,
		log:         opts.Logger,
		current:     domain.Session{Status: domain.StatusUnknown},
		subscribers: make(map[int]chan domain.Session),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Current returns the latest session state
func (m *Monitor) Current() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current
}

// Subscribe streams state changes. The channel holds only the latest state:
// a slow reader skips intermediate states but always sees the last one.
func (m *Monitor) Subscribe() (<-chan domain.Session, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan domain.Session, 1)
	ch <- m.current
	m.subscribers[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Done is closed once the monitor has stopped, either through Stop or
// because the session ended.
func (m *Monitor) Done() <-chan struct{} {
	return m.doneCh
}

// Start opens the signal sources, validates the session once and then keeps
// watching in the background. Start returns after the first validation.
func (m *Monitor) Start(ctx context.Context) error {
	if m.opts.Identity == nil {
		return errors.New("session monitor: identity source is required")
	}

	err := errors.New("session monitor: already started")
	m.startOnce.Do(func() {
		err = nil
		m.start(ctx)
	})
	return err
}

func (m *Monitor) start(ctx context.Context) {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()

	var authCh <-chan domain.AuthEvent
	cancelAuth := func() {}
	if m.opts.AuthEvents != nil {
		ch, cancel, err := m.opts.AuthEvents(ctx)
		if err != nil {
			m.log.Warn("auth event stream unavailable, relying on polling", logger.Error(err))
		} else {
			authCh, cancelAuth = ch, cancel
		}
	}

	var storageCh <-chan struct{}
	cancelStorage := func() {}
	if m.opts.Storage != nil {
		ch, cancel, err := m.opts.Storage(ctx)
		if err != nil {
			m.log.Warn("storage signal unavailable, relying on polling", logger.Error(err))
		} else {
			storageCh, cancelStorage = ch, cancel
		}
	}

	ticker := time.NewTicker(m.opts.PollInterval)

	cleanup := func() {
		ticker.Stop()
		cancelAuth()
		cancelStorage()
		if m.feedActive {
			m.opts.Feed.Deactivate()
			m.feedActive = false
		}
		close(m.doneCh)
	}

	if terminal := m.revalidate(ctx, "initial"); terminal {
		cleanup()
		return
	}

	go func() {
		defer cleanup()

		for {
			var terminal bool
			select {
			case ev, ok := <-authCh:
				if !ok {
					m.log.Warn("auth event stream closed, relying on polling")
					authCh = nil
					continue
				}
				terminal = m.handleAuthEvent(ctx, ev)

			case _, ok := <-storageCh:
				if !ok {
					storageCh = nil
					continue
				}
				terminal = m.revalidate(ctx, "storage")

			case <-ticker.C:
				terminal = m.revalidate(ctx, "poll")

			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}

			if terminal {
				return
			}
		}
	}()
}

// Stop releases every signal subscription and the poll ticker. Safe to call
// more than once, and before Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})

	m.mu.RLock()
	started := m.started
	m.mu.RUnlock()

	if started {
		<-m.doneCh
	}
}

func (m *Monitor) handleAuthEvent(ctx context.Context, ev domain.AuthEvent) bool {
	switch ev.Type {
	case domain.AuthSignedOut:
		cur := m.Current()
		if cur.Status != domain.StatusAuthenticated || cur.Identity == nil ||
			(ev.SessionID != "" && ev.SessionID != cur.Identity.SessionID) {
			// Not provably ours: only the provider may end the session
			m.log.Debug("sign-out of another session, revalidating", logger.String("session_id", ev.SessionID))
			return m.revalidate(ctx, "push")
		}
		m.log.Info("signed out by push event", logger.String("session_id", ev.SessionID))
		m.signOut()
		return true

	case domain.AuthSignedIn:
		// A sign-in anywhere may concern this profile: ask the provider
		return m.revalidate(ctx, "push")

	default:
		m.log.Debug("ignoring unknown auth event", logger.String("type", string(ev.Type)))
		return false
	}
}

// revalidate asks the identity provider and applies the answer. It reports
// whether the monitor reached its terminal state.
func (m *Monitor) revalidate(ctx context.Context, reason string) bool {
	identity, err := m.opts.Identity(ctx)
	if err != nil {
		// Unknown is not "signed out": keep the current state
		m.log.Warn("session check failed",
			logger.String("reason", reason),
			logger.Error(err))
		return false
	}

	if identity == nil {
		m.log.Info("no active session", logger.String("reason", reason))
		m.signOut()
		return true
	}

	cur := m.Current()
	if cur.Status == domain.StatusAuthenticated && cur.Identity != nil && cur.Identity.ID == identity.ID {
		m.retryActivation(ctx, identity.ID)
		return false
	}

	m.signIn(ctx, identity, reason)
	return false
}

func (m *Monitor) signIn(ctx context.Context, identity *domain.Identity, reason string) {
	id := *identity
	m.setState(domain.Session{Status: domain.StatusAuthenticated, Identity: &id})

	m.log.Info("session authenticated",
		logger.String("user_id", id.ID),
		logger.String("reason", reason))

	m.collectionReady = false
	m.feedActive = false
	m.retryActivation(ctx, id.ID)
}

// retryActivation activates whatever did not come up for ownerID yet
func (m *Monitor) retryActivation(ctx context.Context, ownerID string) {
	if !m.collectionReady && m.opts.Collection != nil {
		if err := m.opts.Collection.Activate(ctx, ownerID); err != nil {
			m.log.Warn("initial collection fetch failed", logger.String("owner_id", ownerID), logger.Error(err))
		} else {
			m.collectionReady = true
		}
	}

	if !m.feedActive && m.opts.Feed != nil {
		if err := m.opts.Feed.Activate(ctx, ownerID); err != nil {
			m.log.Warn("change feed subscription failed", logger.String("owner_id", ownerID), logger.Error(err))
		} else {
			m.feedActive = true
		}
	}
}

func (m *Monitor) signOut() {
	if m.Current().Status == domain.StatusUnauthenticated {
		return
	}

	if m.opts.Feed != nil {
		m.opts.Feed.Deactivate()
	}
	m.feedActive = false
	if m.opts.Collection != nil {
		m.opts.Collection.Clear()
	}
	m.collectionReady = false

	m.setState(domain.Session{Status: domain.StatusUnauthenticated})
}

func (m *Monitor) setState(s domain.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = s
	for _, ch := range m.subscribers {
		// Latest state wins
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
