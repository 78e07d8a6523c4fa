// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package models serves the aggregated model catalog.
package models

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/modelgateway/internal/config"
	"github.com/traylinx/modelgateway/internal/constant"
	"github.com/traylinx/modelgateway/internal/discovery"
	"github.com/traylinx/modelgateway/internal/logging"
	"github.com/traylinx/modelgateway/internal/registry"
	"github.com/traylinx/modelgateway/internal/util"
)

// Lister is the part of the gateway the handler needs.
type Lister interface {
	ListModels(ctx context.Context, req discovery.Request) (*discovery.Response, error)
}

// credentialHeaders maps each provider to the header that overrides its default credential.
var credentialHeaders = map[string]string{
	constant.Gemini:    constant.HeaderGeminiKey,
	constant.Replicate: constant.HeaderReplicateKey,
	constant.Fal:       constant.HeaderFalKey,
	constant.Kie:       constant.HeaderKieKey,
	constant.WaveSpeed: constant.HeaderWaveSpeedKey,
	constant.XAI:       constant.HeaderXAIKey,
	constant.BFL:       constant.HeaderBFLKey,
	constant.ComfyUI:   constant.HeaderComfyUIServer,
}

// ErrorResponse is the body of every failed listing.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handler serves GET /models.
type Handler struct {
	gateway Lister

	mu       sync.RWMutex
	defaults map[string]discovery.Credential
}

// NewHandler creates a handler backed by gateway with the given default credentials.
func NewHandler(gateway Lister, defaults map[string]discovery.Credential) *Handler {
	h := &Handler{gateway: gateway}
	h.SetDefaults(defaults)
	return h
}

// SetDefaults replaces the server-side credentials used when a request has no header.
func (h *Handler) SetDefaults(defaults map[string]discovery.Credential) {
	copied := make(map[string]discovery.Credential, len(defaults))
	for k, v := range defaults {
		copied[k] = v
	}
	h.mu.Lock()
	h.defaults = copied
	h.mu.Unlock()
}

// DefaultsFromConfig extracts the per-provider default credentials.
func DefaultsFromConfig(cfg *config.Config) map[string]discovery.Credential {
	out := make(map[string]discovery.Credential)
	if cfg == nil {
		return out
	}
	for id, pc := range cfg.Providers {
		cred := discovery.Credential{APIKey: pc.APIKey, ServerURL: pc.ServerURL}
		if cred.Present() {
			out[id] = cred
		}
	}
	return out
}

// ListModels handles GET /models?provider=&search=&refresh=&capabilities=.
func (h *Handler) ListModels(c *gin.Context) {
	caps, err := parseCapabilities(c.Query("capabilities"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	req := discovery.Request{
		Provider:     strings.TrimSpace(c.Query("provider")),
		Search:       strings.TrimSpace(c.Query("search")),
		Refresh:      isTrue(c.Query("refresh")),
		Capabilities: caps,
		Credentials:  h.credentials(c),
	}

	entry := logging.Entry(c)
	for id, cred := range req.Credentials {
		if cred.APIKey != "" {
			entry = entry.WithField(id, util.HideAPIKey(cred.APIKey))
		}
	}
	entry.Debug("Resolved provider credentials")

	resp, err := h.gateway.ListModels(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		var coded interface{ StatusCode() int }
		if errors.As(err, &coded) {
			status = coded.StatusCode()
		}
		logging.Entry(c).WithError(err).WithField("status", status).Debug("Model listing failed")
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// credentials resolves each provider's credential: header first, then server default.
func (h *Handler) credentials(c *gin.Context) map[string]discovery.Credential {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]discovery.Credential, len(credentialHeaders))
	for id, header := range credentialHeaders {
		cred := h.defaults[id]
		if v := strings.TrimSpace(c.GetHeader(header)); v != "" {
			if id == constant.ComfyUI {
				cred = discovery.Credential{ServerURL: v}
			} else {
				cred = discovery.Credential{APIKey: v}
			}
		}
		if cred.Present() {
			out[id] = cred
		}
	}
	return out
}

func parseCapabilities(raw string) ([]registry.Capability, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []registry.Capability
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, ok := registry.ParseCapability(part)
		if !ok {
			return nil, fmt.Errorf("Unknown capability %q", part)
		}
		out = append(out, c)
	}
	return out, nil
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
