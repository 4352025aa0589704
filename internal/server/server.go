// Package server exposes the price store, feed control, dashboard, blog
// and consent storage to the site over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/donia1222/remix-crypto-sub000/internal/auth"
	"github.com/donia1222/remix-crypto-sub000/internal/connection"
	"github.com/donia1222/remix-crypto-sub000/internal/dashboard"
	"github.com/donia1222/remix-crypto-sub000/internal/model"
	"github.com/donia1222/remix-crypto-sub000/internal/pricestore"
	"github.com/donia1222/remix-crypto-sub000/internal/router"
	"github.com/donia1222/remix-crypto-sub000/internal/storage"
)

// FeedControl is the part of the feed the views can see and poke.
type FeedControl interface {
	State() connection.State
	Stats() connection.FeedStats
	Reconnect() error
}

// Dashboard serves the cached account snapshot.
type Dashboard interface {
	View() dashboard.View
	Refresh(ctx context.Context) (dashboard.View, error)
}

// BlogSource serves the last fetched blog posts.
type BlogSource interface {
	Posts() ([]model.BlogPost, time.Time)
}

// Compile-time checks
var (
	_ FeedControl = (*connection.Feed)(nil)
	_ Dashboard   = (*dashboard.Service)(nil)
)

// Config holds HTTP server settings.
type Config struct {
	Port           int
	InstanceID     string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Deps are the components the handlers read from. Quotes and Feed are
// required; a nil Gate or Dashboard disables the dashboard routes and a nil
// Blog serves an empty list.
type Deps struct {
	Quotes      *pricestore.Store
	Feed        FeedControl
	RouterStats func() router.RouterStats
	Gate        *auth.Gate
	Dashboard   Dashboard
	Blog        BlogSource
	KV          storage.Store
}

// Server is the HTTP API.
type Server struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	engine *gin.Engine
	http   *http.Server

	// Lifecycle of WebSocket streams
	ctx     context.Context
	cancel  context.CancelFunc
	streams sync.WaitGroup
}

// New creates a new Server and registers its routes.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With("component", "server"),
		ctx:    ctx,
		cancel: cancel,
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.engine.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	s.engine.Use(deviceCookie())

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	api.GET("/markets", s.handleMarkets)
	api.GET("/markets/stream", s.handleStream)
	api.POST("/feed/reconnect", s.handleReconnect)

	dash := api.Group("/dashboard", s.requireDashboard())
	dash.POST("/login", s.handleLogin)
	dash.POST("/logout", s.handleLogout)
	dash.GET("", s.requireAuth(), s.handleDashboard)
	dash.POST("/refresh", s.requireAuth(), s.handleRefresh)

	api.GET("/blog", s.handleBlog)

	api.GET("/consent", s.handleGetConsent)
	api.PUT("/consent", s.handlePutConsent)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "err", err)
		}
	}()

	s.logger.Info("http server started", "addr", s.http.Addr)
	return nil
}

// Stop shuts down the HTTP server and closes open streams.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()

	var err error
	if s.http != nil {
		if err = s.http.Shutdown(ctx); err != nil {
			err = fmt.Errorf("shutdown http server: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.streams.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("http server stopped")
	case <-ctx.Done():
		s.logger.Warn("stream shutdown timed out")
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// corsConfig allows the site origins with credentials so the device cookie
// travels. No origins or "*" allows any origin without credentials.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Upgrade", "Connection"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// requestLogger logs each request through slog.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
