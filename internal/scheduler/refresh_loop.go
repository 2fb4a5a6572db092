package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

// Refresher is the single refresh entry point of the reconciliation store
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshLoop runs refreshes requested by background signals (change feed,
// manual API trigger) on its own goroutine. Requests are coalesced: while one
// is pending, further triggers are dropped since the pending refresh will
// observe the newer state anyway.
type RefreshLoop struct {
	refresher Refresher
	logger    logger.Logger
	trigger   chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	started   atomic.Bool
}

// NewRefreshLoop creates a new refresh loop
func NewRefreshLoop(refresher Refresher, log logger.Logger) *RefreshLoop {
	return &RefreshLoop{
		refresher: refresher,
		logger:    log,
		trigger:   make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins serving triggers. Only the first call has an effect.
func (rl *RefreshLoop) Start(ctx context.Context) {
	if !rl.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(rl.doneCh)
		for {
			select {
			case <-rl.trigger:
				rl.run(ctx)
			case <-rl.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Trigger requests a refresh without blocking
func (rl *RefreshLoop) Trigger() {
	select {
	case rl.trigger <- struct{}{}:
	default:
		rl.logger.Debug("refresh already pending, trigger coalesced")
	}
}

// Stop stops the loop and waits for an in-flight refresh to return.
// Safe before Start.
func (rl *RefreshLoop) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
	if rl.started.Load() {
		<-rl.doneCh
	}
}

func (rl *RefreshLoop) run(ctx context.Context) {
	err := rl.refresher.Refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnauthenticated):
		rl.logger.Debug("refresh skipped, no active session")
	default:
		// The store already kept the previous collection; the next trigger retries
		rl.logger.Warn("background refresh failed", logger.Error(err))
	}
}
