// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package management exposes the cache administration endpoints under /v0/management.
package management

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	gojson "github.com/goccy/go-json"
	"github.com/traylinx/modelgateway/internal/config"
	"github.com/traylinx/modelgateway/internal/constant"
	"github.com/traylinx/modelgateway/internal/discovery"
	"github.com/traylinx/modelgateway/internal/logging"
	"github.com/traylinx/modelgateway/internal/util"
	"golang.org/x/crypto/bcrypt"
)

// CacheAdmin is the cache surface the management API operates on.
type CacheAdmin interface {
	Stats() discovery.CacheStats
	Clear()
	GetSchema(modelID string) (json.RawMessage, bool)
}

// Handler serves the management endpoints.
type Handler struct {
	mu    sync.RWMutex
	cfg   *config.Config
	store CacheAdmin
}

// NewHandler creates a management handler.
func NewHandler(cfg *config.Config, store CacheAdmin) *Handler {
	return &Handler{cfg: cfg, store: store}
}

// SetConfig swaps the configuration after a reload.
func (h *Handler) SetConfig(cfg *config.Config) {
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
}

func (h *Handler) management() config.RemoteManagement {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cfg == nil {
		return config.RemoteManagement{}
	}
	return h.cfg.RemoteManagement
}

// Middleware guards the management group.
// Remote clients need allow-remote and a configured secret. When a secret is
// configured every client, local or not, must present it.
func (h *Handler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rm := h.management()
		local := util.IsLocalhostDirect(c)

		if !util.ClientAllowed(c, rm.AllowRemote) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "remote management disabled"})
			return
		}
		if rm.SecretKey == "" {
			if !local {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "remote management key not set"})
				return
			}
			c.Next()
			return
		}

		provided := managementKey(c)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing management key"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(rm.SecretKey), []byte(provided)); err != nil {
			logging.Entry(c).Warn("Rejected management request with invalid key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid management key"})
			return
		}
		c.Next()
	}
}

func managementKey(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetHeader(constant.HeaderManagementKey)); v != "" {
		return v
	}
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// CacheMetricsResponse is the body of GET /v0/management/cache/metrics.
type CacheMetricsResponse struct {
	Enabled bool                  `json:"enabled"`
	Metrics *discovery.CacheStats `json:"metrics,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// HandleCacheMetrics returns cache counters.
// GET /v0/management/cache/metrics
func (h *Handler) HandleCacheMetrics(c *gin.Context) {
	resp := CacheMetricsResponse{}
	if h.store == nil {
		resp.Error = "cache store not available"
	} else {
		stats := h.store.Stats()
		resp.Enabled = true
		resp.Metrics = &stats
	}
	writeJSON(c, http.StatusOK, resp)
}

// HandleCacheClear drops every cached catalog and schema.
// POST /v0/management/cache/clear
func (h *Handler) HandleCacheClear(c *gin.Context) {
	if h.store == nil {
		writeJSON(c, http.StatusBadRequest, gin.H{"success": false, "error": "cache store not available"})
		return
	}
	h.store.Clear()
	logging.Entry(c).Info("Catalog cache cleared")
	writeJSON(c, http.StatusOK, gin.H{"success": true, "message": "Cache cleared successfully"})
}

// GetSchema returns the raw parameter schema recorded for a model.
// GET /v0/management/schemas/*id
func (h *Handler) GetSchema(c *gin.Context) {
	id := strings.TrimPrefix(c.Param("id"), "/")
	if id == "" {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": "model id required"})
		return
	}
	if h.store == nil {
		writeJSON(c, http.StatusNotFound, gin.H{"error": "schema not found"})
		return
	}
	schema, ok := h.store.GetSchema(id)
	if !ok {
		writeJSON(c, http.StatusNotFound, gin.H{"error": "schema not found", "id": id})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", schema)
}

func writeJSON(c *gin.Context, status int, v any) {
	data, err := gojson.Marshal(v)
	if err != nil {
		logging.Entry(c).WithError(err).Error("Failed to encode management response")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(status, "application/json; charset=utf-8", data)
}
