package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/logger"
	storeredis "github.com/MrSnakeDoc/marksync/internal/store/redis"
)

// DefaultGCInterval is how often the active owner's indexes are swept
const DefaultGCInterval = 10 * time.Minute

// Sweeper removes index entries that no longer match a row
type Sweeper interface {
	Sweep(ctx context.Context, ownerID string) (storeredis.SweepResult, error)
}

// GarbageCollector periodically sweeps the indexes of the active owner.
// Rows are never touched: deletes are always explicit.
type GarbageCollector struct {
	sweeper  Sweeper
	owner    func() string
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(sweeper Sweeper, owner func() string, log logger.Logger, interval time.Duration) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}

	return &GarbageCollector{
		sweeper:  sweeper,
		owner:    owner,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection. The first sweep runs after one interval.
func (gc *GarbageCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := gc.Collect(ctx); err != nil {
					gc.logger.Warn("garbage collection failed", logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	gc.stopOnce.Do(func() {
		close(gc.stopCh)
	})
}

// Collect sweeps the active owner's indexes once. Without an owner it does nothing.
func (gc *GarbageCollector) Collect(ctx context.Context) (storeredis.SweepResult, error) {
	owner := gc.owner()
	if owner == "" {
		gc.logger.Debug("garbage collection skipped, no active owner")
		return storeredis.SweepResult{}, nil
	}

	res, err := gc.sweeper.Sweep(ctx, owner)
	if err != nil {
		return res, err
	}

	if res.Total() > 0 {
		gc.logger.Info("garbage collection completed",
			logger.String("owner_id", owner),
			logger.Int("index_entries", res.IndexEntries),
			logger.Int("url_keys", res.URLKeys))
	} else {
		gc.logger.Debug("no index entries to garbage collect", logger.String("owner_id", owner))
	}
	return res, nil
}
