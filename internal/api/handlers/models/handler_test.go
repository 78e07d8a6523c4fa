// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package models

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/traylinx/modelgateway/internal/config"
	"github.com/traylinx/modelgateway/internal/constant"
	"github.com/traylinx/modelgateway/internal/discovery"
	"github.com/traylinx/modelgateway/internal/discovery/providers"
	"github.com/traylinx/modelgateway/internal/registry"
)

type failingAdapter struct{ provider string }

func (f failingAdapter) Provider() string           { return f.provider }
func (f failingAdapter) SupportsServerSearch() bool { return false }
func (f failingAdapter) Fetch(context.Context, discovery.Credential, string) ([]*registry.ProviderModel, error) {
	return nil, errors.New("connection refused")
}

type recordingLister struct{ last discovery.Request }

func (r *recordingLister) ListModels(_ context.Context, req discovery.Request) (*discovery.Response, error) {
	r.last = req
	return &discovery.Response{Success: true, Models: []*registry.ProviderModel{}}, nil
}

func newTestRouter(t *testing.T, defaults map[string]discovery.Credential) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gemini, err := providers.LoadCatalog(constant.Gemini)
	require.NoError(t, err)
	kie, err := providers.LoadCatalog(constant.Kie)
	require.NoError(t, err)

	gw := discovery.NewGateway(
		discovery.NewMemoryStore(time.Hour, 16),
		discovery.DefaultOptions(),
		gemini, kie,
		failingAdapter{provider: constant.Fal},
		failingAdapter{provider: constant.WaveSpeed},
	)
	r := gin.New()
	r.GET("/models", NewHandler(gw, defaults).ListModels)
	return r
}

func get(r http.Handler, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListModels_GeminiOnly(t *testing.T) {
	r := newTestRouter(t, nil)
	w := get(r, "/models", map[string]string{constant.HeaderGeminiKey: "g-key"})

	require.Equal(t, http.StatusOK, w.Code)
	body := gjson.Parse(w.Body.String())
	assert.True(t, body.Get("success").Bool())
	assert.True(t, body.Get("cached").Bool())
	assert.Equal(t, int64(2), body.Get("models.#").Int())
	assert.Equal(t, "gemini", body.Get("models.0.provider").String())
	assert.Equal(t, int64(2), body.Get("providers.gemini.count").Int())
	assert.False(t, body.Get("providers.kie").Exists())
	assert.False(t, body.Get("errors").Exists())
}

func TestListModels_CapabilityFilter(t *testing.T) {
	r := newTestRouter(t, nil)
	w := get(r, "/models?capabilities=text-to-video", map[string]string{
		constant.HeaderGeminiKey: "g-key",
		constant.HeaderKieKey:    "k-key",
	})

	require.Equal(t, http.StatusOK, w.Code)
	models := gjson.Get(w.Body.String(), "models").Array()
	require.NotEmpty(t, models)
	for _, m := range models {
		assert.Equal(t, "kie", m.Get("provider").String())
		assert.Contains(t, m.Get("capabilities").String(), "text-to-video")
	}
	assert.Equal(t, int64(5), gjson.Get(w.Body.String(), "providers.kie.count").Int())
}

func TestListModels_UnknownCapability(t *testing.T) {
	r := newTestRouter(t, nil)
	w := get(r, "/models?capabilities=text-to-image,telepathy", map[string]string{constant.HeaderGeminiKey: "g"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, gjson.Get(w.Body.String(), "success").Bool())
	assert.Contains(t, gjson.Get(w.Body.String(), "error").String(), "telepathy")
}

func TestListModels_Preconditions(t *testing.T) {
	r := newTestRouter(t, nil)

	w := get(r, "/models?provider=wavespeed", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t,
		"WaveSpeed API key required. Provide X-WaveSpeed-Key header or set WAVESPEED_API_KEY",
		gjson.Get(w.Body.String(), "error").String())

	w = get(r, "/models", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, gjson.Get(w.Body.String(), "error").String(), "No providers available")
}

func TestListModels_AllProvidersFailed(t *testing.T) {
	r := newTestRouter(t, nil)
	w := get(r, "/models?provider=fal", map[string]string{constant.HeaderFalKey: "f-key"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := gjson.Parse(w.Body.String())
	assert.False(t, body.Get("success").Bool())
	assert.Contains(t, body.Get("error").String(), "connection refused")
}

func TestListModels_PartialFailure(t *testing.T) {
	r := newTestRouter(t, nil)
	w := get(r, "/models", map[string]string{
		constant.HeaderGeminiKey: "g-key",
		constant.HeaderFalKey:    "f-key",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := gjson.Parse(w.Body.String())
	assert.True(t, body.Get("success").Bool())
	assert.False(t, body.Get("providers.fal.success").Bool())
	assert.Equal(t, int64(1), body.Get("errors.#").Int())
	assert.Equal(t, int64(2), body.Get("models.#").Int())
}

func TestListModels_DefaultCredentials(t *testing.T) {
	r := newTestRouter(t, map[string]discovery.Credential{constant.Kie: {APIKey: "server-side"}})
	w := get(r, "/models", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), gjson.Get(w.Body.String(), "models.#").Int())
}

func TestListModels_RequestMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lister := &recordingLister{}
	h := NewHandler(lister, map[string]discovery.Credential{
		constant.Replicate: {APIKey: "default-r8"},
		constant.Gemini:    {APIKey: "default-g"},
	})
	r := gin.New()
	r.GET("/models", h.ListModels)

	w := get(r, "/models?provider=replicate&search=%20flux%20&refresh=1&capabilities=text-to-image,%20image-to-video", map[string]string{
		constant.HeaderReplicateKey:  "header-r8",
		constant.HeaderComfyUIServer: "http://127.0.0.1:8188",
	})
	require.Equal(t, http.StatusOK, w.Code)

	req := lister.last
	assert.Equal(t, "replicate", req.Provider)
	assert.Equal(t, "flux", req.Search)
	assert.True(t, req.Refresh)
	assert.Equal(t, []registry.Capability{registry.TextToImage, registry.ImageToVideo}, req.Capabilities)
	assert.Equal(t, "header-r8", req.Credentials[constant.Replicate].APIKey)
	assert.Equal(t, "default-g", req.Credentials[constant.Gemini].APIKey)
	assert.Equal(t, "http://127.0.0.1:8188", req.Credentials[constant.ComfyUI].ServerURL)
	assert.NotContains(t, req.Credentials, constant.Fal)

	h.SetDefaults(nil)
	get(r, "/models?refresh=no", nil)
	assert.False(t, lister.last.Refresh)
	assert.Empty(t, lister.last.Credentials)
}

func TestDefaultsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Providers = map[string]config.ProviderConfig{
		constant.Fal:     {APIKey: "fal-key"},
		constant.ComfyUI: {ServerURL: "http://gpu:8188"},
		constant.BFL:     {BaseURL: "https://example.invalid"},
	}
	defaults := DefaultsFromConfig(cfg)
	assert.Len(t, defaults, 2)
	assert.Equal(t, "fal-key", defaults[constant.Fal].APIKey)
	assert.Equal(t, "http://gpu:8188", defaults[constant.ComfyUI].ServerURL)
	assert.Empty(t, DefaultsFromConfig(nil))
}
