package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/gateway"
	"github.com/MrSnakeDoc/marksync/internal/hub"
	"github.com/MrSnakeDoc/marksync/internal/index"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

type Deps struct {
	Logger            logger.Logger
	StartTime         time.Time
	Version           string
	Commit            string
	BuildDate         string
	GoVersion         string
	TimeNow           func() time.Time // for testing, defaults to time.Now
	AllowedHosts      []string         // Host headers allowed to access the server
	AllowedCIDRS      []string         // client IPs allowed to access the server
	TrustProxy        bool             // true if running behind a trusted reverse proxy
	WriteBurst        int              // rate limit burst for write routes
	WriteRefillPerMin int              // rate limit refill for write routes

	RedisClient *redis.Client          // Redis client connection
	Collection  *index.Collection      // mirrored bookmarks of the active owner
	Gateway     *gateway.Gateway       // user-initiated writes
	Hub         *hub.Hub               // websocket fan-out
	Session     func() domain.Session  // current session state
	Refresh     func()                 // request a background refresh (coalesced)
	Logout      func(ctx context.Context) error
}
