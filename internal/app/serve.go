package app

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/httpserver"
	"github.com/MrSnakeDoc/marksync/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/scheduler"
	"github.com/MrSnakeDoc/marksync/internal/version"
)

// Serve runs the session supervisor, the refresh loop and the local API
// until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.ListenAddr, err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	a.logger.Info("🚀 Starting marksync",
		logger.String("version", version.Version),
		logger.String("addr", ln.Addr().String()))
	a.logger.Infof("%s", version.String())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hub.Run(ctx)
	a.refresh.Start(ctx)

	gc := scheduler.NewGarbageCollector(a.store, a.reconciler.OwnerID, a.logger, a.cfg.GCInterval)
	gc.Start(ctx)

	supervised := make(chan struct{})
	go func() {
		defer close(supervised)
		a.superviseSessions(ctx)
	}()

	server := httpserver.New(a.cfg, a.logger, a.deps())

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer stop()
	if err := server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}
	a.hub.CloseAll()

	<-supervised
	a.stopMonitor()
	a.refresh.Stop()
	gc.Stop()

	a.logger.Info("✅ marksync stopped cleanly")
	return runErr
}

func (a *App) deps() deps.Deps {
	return deps.Deps{
		Logger:            a.logger,
		StartTime:         time.Now(),
		Version:           version.Version,
		Commit:            version.Commit,
		BuildDate:         version.BuildDate,
		GoVersion:         version.GoVersion,
		TimeNow:           time.Now,
		AllowedHosts:      a.cfg.AllowedHosts,
		AllowedCIDRS:      a.cfg.AllowedCIDRS,
		TrustProxy:        a.cfg.TrustProxy,
		WriteBurst:        a.cfg.WriteBurst,
		WriteRefillPerMin: a.cfg.WriteRefillPerMin,
		RedisClient:       a.redisClient,
		Collection:        a.collection,
		Gateway:           a.gateway,
		Hub:               a.hub,
		Session:           a.Session,
		Refresh:           a.refresh.Trigger,
		Logout:            a.Logout,
	}
}
