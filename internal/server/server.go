// Package server exposes the access-log and inquiry endpoints the web client
// calls, plus a few read-only admin routes.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/marquee/internal/accesslog"
	"github.com/zulandar/marquee/internal/inquiry"
	"github.com/zulandar/marquee/internal/telegram"
	"gorm.io/gorm"
)

// StartOpts holds configuration for the HTTP server.
type StartOpts struct {
	DB             *gorm.DB
	Sender         telegram.Sender
	Port           int
	AllowedOrigins []string
	AdminToken     string
	AttemptTimeout time.Duration
	Out            io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := newRouter(opts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "marquee listening on http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// newRouter validates opts and builds the gin engine with every route.
func newRouter(opts StartOpts) (*gin.Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("server: db is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("server: sender is required")
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	inquiries := inquiry.NewStore(opts.DB)
	dispatcher, err := inquiry.NewDispatcher(inquiry.DispatcherOpts{
		Store:   inquiries,
		Sender:  opts.Sender,
		Timeout: opts.AttemptTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors(opts.AllowedOrigins))

	registerRoutes(router, routeDeps{
		db:         opts.DB,
		logs:       accesslog.NewStore(opts.DB),
		inquiries:  inquiries,
		dispatcher: dispatcher,
		adminToken: opts.AdminToken,
	})
	return router, nil
}
