package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marksync/internal/auth"
	"github.com/MrSnakeDoc/marksync/internal/config"
	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/feed"
	"github.com/MrSnakeDoc/marksync/internal/gateway"
	"github.com/MrSnakeDoc/marksync/internal/hub"
	"github.com/MrSnakeDoc/marksync/internal/index"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/reconcile"
	"github.com/MrSnakeDoc/marksync/internal/redis"
	"github.com/MrSnakeDoc/marksync/internal/scheduler"
	"github.com/MrSnakeDoc/marksync/internal/session"
	storeredis "github.com/MrSnakeDoc/marksync/internal/store/redis"
	"github.com/MrSnakeDoc/marksync/internal/tokenfile"
	"github.com/MrSnakeDoc/marksync/internal/utils"
)

// App owns every process-scoped component. Nothing here is global: each
// command builds its own App and closes it.
type App struct {
	cfg    *config.Config
	logger logger.Logger

	redisClient *goredis.Client
	store       *storeredis.Store
	provider    *auth.Provider
	tokens      *tokenfile.File

	collection *index.Collection
	reconciler *reconcile.Store
	refresh    *scheduler.RefreshLoop
	feed       *feed.Subscriber
	gateway    *gateway.Gateway
	hub        *hub.Hub

	monMu   sync.RWMutex
	monitor *session.Monitor

	stopCollectionHook func()
}

// New connects to Redis and wires the components. It does not start any
// background work; see StartSession and Serve.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	redisClient, err := redis.Connect(ctx, redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	store := storeredis.NewStore(redisClient)
	collection := index.NewCollection()
	reconciler := reconcile.New(store, collection, loggerClient)
	refresh := scheduler.NewRefreshLoop(reconciler, loggerClient)

	a := &App{
		cfg:         cfg,
		logger:      loggerClient,
		redisClient: redisClient,
		store:       store,
		provider: auth.NewProvider(store, auth.TokenConfig{
			Secret: cfg.JWTSecret,
			Expiry: cfg.TokenExpiry,
			Issuer: cfg.TokenIssuer,
		}, loggerClient),
		tokens:     tokenfile.New(cfg.TokenFile),
		collection: collection,
		reconciler: reconciler,
		refresh:    refresh,
		feed:       feed.New(feed.FromStore(store), refresh.Trigger, loggerClient),
		hub:        hub.New(),
	}
	a.gateway = gateway.New(store, reconciler, a.Session, loggerClient)

	a.stopCollectionHook = collection.OnChange(func(version uint64, ownerID string) {
		if !a.hub.Publish(hub.TopicCollection, hub.CollectionMessage(version)) {
			a.logger.Debug("collection notification dropped, queue full", logger.Uint64("version", version))
		}
	})

	return a, nil
}

// Session returns the state of the current monitor, Unknown before the first one starts.
func (a *App) Session() domain.Session {
	a.monMu.RLock()
	m := a.monitor
	a.monMu.RUnlock()

	if m == nil {
		return domain.Session{Status: domain.StatusUnknown}
	}
	return m.Current()
}

// Collection is the mirrored collection of the active owner
func (a *App) Collection() *index.Collection {
	return a.collection
}

func (a *App) Gateway() *gateway.Gateway {
	return a.gateway
}

// Close stops the session and releases Redis. Safe to call once after New.
func (a *App) Close() {
	a.stopMonitor()
	a.refresh.Stop()
	a.feed.Deactivate()
	a.stopCollectionHook()
	a.hub.CloseAll()
	utils.MustClose(a.redisClient, "redis", a.logger)
}

func (a *App) requestTimeout() time.Duration {
	if a.cfg.RequestTimeout > 0 {
		return a.cfg.RequestTimeout
	}
	return 10 * time.Second
}
