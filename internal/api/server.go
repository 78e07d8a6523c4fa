// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api wires the HTTP routes of the gateway onto a gin engine.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelgateway/internal/api/handlers/management"
	"github.com/traylinx/modelgateway/internal/api/handlers/models"
	"github.com/traylinx/modelgateway/internal/buildinfo"
	"github.com/traylinx/modelgateway/internal/config"
	"github.com/traylinx/modelgateway/internal/logging"
)

// ServerOption customises a Server at construction time.
type ServerOption func(*Server)

// WithMiddleware appends middleware that runs after request logging and recovery.
func WithMiddleware(mw ...gin.HandlerFunc) ServerOption {
	return func(s *Server) {
		s.extra = append(s.extra, mw...)
	}
}

// Server is the HTTP front of the gateway.
type Server struct {
	engine *gin.Engine
	server *http.Server

	mu      sync.Mutex
	cfg     *config.Config
	stopped bool

	models     *models.Handler
	management *management.Handler
	extra      []gin.HandlerFunc
}

// NewServer builds the engine and registers every route.
func NewServer(cfg *config.Config, lister models.Lister, store management.CacheAdmin, opts ...ServerOption) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		cfg:        cfg,
		models:     models.NewHandler(lister, models.DefaultsFromConfig(cfg)),
		management: management.NewHandler(cfg, store),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(logging.GinMiddleware(), gin.Recovery())
	engine.Use(s.extra...)
	s.engine = engine
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/models", s.models.ListModels)
	s.engine.GET("/api/models", s.models.ListModels)
	s.engine.GET("/healthz", s.health)

	mgmt := s.engine.Group("/v0/management")
	mgmt.Use(s.management.Middleware())
	{
		mgmt.GET("/cache/metrics", s.management.HandleCacheMetrics)
		mgmt.POST("/cache/clear", s.management.HandleCacheClear)
		mgmt.GET("/schemas/*id", s.management.GetSchema)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}

// Engine exposes the gin engine, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the listen address derived from the current config.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Start listens and serves until Stop is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	addr := s.Addr()
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	log.Infof("API server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the listener down. A later Start returns immediately.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	log.Debug("Stopping API server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

// UpdateConfig applies a reloaded configuration. Listen address changes need a restart.
func (s *Server) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	s.mu.Unlock()

	if old != nil && (old.Host != cfg.Host || old.Port != cfg.Port) {
		log.Warn("Listen address changed; restart the server to apply it")
	}
	s.models.SetDefaults(models.DefaultsFromConfig(cfg))
	s.management.SetConfig(cfg)
	logging.SetDebug(cfg.Debug)
	log.Info("Configuration reloaded")
}
