// Package dashboard serves the admin console HTTP API: session and
// request JSON endpoints plus a server-sent-events stream of live
// chat activity.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yonetim/opsdesk/internal/chat"
	"github.com/yonetim/opsdesk/internal/feed"
	"github.com/yonetim/opsdesk/internal/store"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Gateway  *store.Gateway
	Agg      *chat.Aggregator
	Claims   *chat.ClaimTracker
	Listener *chat.Listener
	Broker   *feed.Broker // set when the change feed runs in-process
	Port     int
	Out      io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Gateway == nil {
		return fmt.Errorf("dashboard: gateway is required")
	}
	if opts.Agg == nil {
		return fmt.Errorf("dashboard: aggregator is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, opts)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Console API running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
