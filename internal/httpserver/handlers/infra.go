package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marksync/internal/hub"
)

type componentStatus struct {
	OK          bool    `json:"ok"`
	Status      string  `json:"status,omitempty"`
	OwnerID     string  `json:"owner_id,omitempty"`
	Count       *int    `json:"count,omitempty"`
	Version     *uint64 `json:"version,omitempty"`
	LastRefresh string  `json:"last_refresh,omitempty"`
	Clients     *int    `json:"clients,omitempty"`
	Error       string  `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := d.Session()

		count := d.Collection.Count()
		version := d.Collection.Version()
		lastRefresh := d.Collection.LastRefresh()
		lastRefreshStr := "never"
		if !lastRefresh.IsZero() {
			lastRefreshStr = lastRefresh.Format("2006-01-02 15:04:05")
		}

		clients := d.Hub.Count(hub.TopicCollection)

		components := map[string]componentStatus{
			"redis": checkRedis(r.Context(), d),
			"session": {
				OK:      session.Status == domain.StatusAuthenticated,
				Status:  session.Status.String(),
				OwnerID: session.OwnerID(),
			},
			"collection": {
				OK:          !lastRefresh.IsZero(),
				OwnerID:     d.Collection.OwnerID(),
				Count:       &count,
				Version:     &version,
				LastRefresh: lastRefreshStr,
			},
			"websocket": {
				OK:      true,
				Clients: &clients,
			},
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "degraded" // serving the last known collection
	}
	if session, exists := components["session"]; exists && !session.OK {
		return "signed-out"
	}
	return "live"
}

func checkRedis(parent context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{OK: false, Error: "client not initialized"}
	}

	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{OK: false, Error: "unreachable"}
	}
	return componentStatus{OK: true}
}
