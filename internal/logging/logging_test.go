// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/modelgateway/internal/constant"
)

func TestLogFormatter_Format(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "Model listing failed for provider\n",
		Data:    log.Fields{"provider": "fal", RequestIDKey: "abcd1234", "count": 3},
		Caller:  &runtime.Frame{File: "/src/internal/discovery/gateway.go", Line: 179},
	}

	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t,
		"[2026-03-04 05:06:07] [abcd1234] [warn ] [gateway.go:179] Model listing failed for provider | count=3, provider=fal\n",
		string(out))
}

func TestLogFormatter_NoRequestID(t *testing.T) {
	entry := &log.Entry{Time: time.Now(), Level: log.InfoLevel, Message: "ready", Data: log.Fields{}}
	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), "[--------] [info ] ready\n")
	assert.NotContains(t, string(out), "|")
}

func TestGinMiddleware_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = RequestID(c)
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Len(t, seen, 8)
	assert.Equal(t, seen, w.Header().Get(constant.HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(constant.HeaderRequestID, "upstream-42")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "upstream-42", seen)
	assert.Equal(t, "upstream-42", w.Header().Get(constant.HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(constant.HeaderRequestID, strings.Repeat("x", 200))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Len(t, seen, 8)
}

func TestConfigureLogOutput_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ConfigureLogOutput(true, dir))
	defer func() { _ = ConfigureLogOutput(false, "") }()

	log.Info("written to file")
	data, err := os.ReadFile(filepath.Join(dir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
