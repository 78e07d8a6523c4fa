// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/modelgateway/internal/constant"
	"golang.org/x/crypto/bcrypt"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, names := range providerEnv {
		for _, name := range names {
			t.Setenv(name, "")
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearProviderEnv(t)
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, time.Hour, cfg.CacheTTL())
	assert.Equal(t, 256, cfg.Cache.MaxEntries)
	assert.Equal(t, constant.DefaultMaxPages, cfg.Discovery.MaxPages)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.True(t, cfg.Discovery.Parallel)
	assert.Equal(t, 4, cfg.Discovery.Concurrency)
	assert.Empty(t, cfg.Providers)
}

func TestLoadConfig_File(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, `
host: 127.0.0.1
port: 9000
proxy-url: socks5://localhost:1080
cache:
  ttl-seconds: 0
  max-entries: 10
discovery:
  max-pages: 3
  parallel: false
providers:
  Replicate:
    api-key: " r8_file "
    base-url: https://replicate.internal/
  fal:
    keyless: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "socks5://localhost:1080", cfg.ProxyURL)
	assert.Equal(t, time.Duration(0), cfg.CacheTTL())
	assert.Equal(t, 10, cfg.Cache.MaxEntries)
	assert.Equal(t, 3, cfg.Discovery.MaxPages)
	assert.False(t, cfg.Discovery.Parallel)
	assert.Equal(t, 30, cfg.Discovery.RequestTimeoutSeconds)

	replicate := cfg.Provider(constant.Replicate)
	assert.Equal(t, "r8_file", replicate.APIKey)
	assert.Equal(t, "https://replicate.internal", replicate.BaseURL)
	assert.Equal(t, map[string]bool{constant.Fal: true}, cfg.Keyless())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("REPLICATE_API_KEY", "from-alias")
	t.Setenv(constant.EnvWaveSpeedKey, "ws-env")
	t.Setenv(constant.EnvComfyUIServer, "localhost:8188")

	cfg, err := LoadConfig(writeConfig(t, "providers:\n  wavespeed:\n    api-key: ws-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-alias", cfg.Provider(constant.Replicate).APIKey)
	assert.Equal(t, "ws-env", cfg.Provider(constant.WaveSpeed).APIKey)
	assert.Equal(t, "localhost:8188", cfg.Provider(constant.ComfyUI).ServerURL)
	assert.Empty(t, cfg.Provider(constant.ComfyUI).APIKey)
}

func TestApplyEnv_PrimaryNameWins(t *testing.T) {
	cfg := Default()
	env := map[string]string{constant.EnvFalKey: "primary", "FAL_API_KEY": "alias"}
	cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, "primary", cfg.Provider(constant.Fal).APIKey)
}

func TestLoadConfigOptional_Missing(t *testing.T) {
	clearProviderEnv(t)
	cfg, err := LoadConfigOptional(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "port: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_HashesManagementSecret(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, "# management\nremote-management:\n  secret-key: hunter2\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.True(t, looksLikeBcrypt(cfg.RemoteManagement.SecretKey))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(cfg.RemoteManagement.SecretKey), []byte("hunter2")))

	persisted, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(persisted), "hunter2")
	assert.True(t, strings.HasPrefix(string(persisted), "# management"))

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.RemoteManagement.SecretKey, again.RemoteManagement.SecretKey)
}

func TestSanitize_ClampsValues(t *testing.T) {
	cfg := &Config{
		Port:      -1,
		Cache:     CacheConfig{TTLSeconds: -5},
		Discovery: DiscoveryConfig{MaxPages: 0, RequestTimeoutSeconds: -1, Concurrency: -2},
		Providers: map[string]ProviderConfig{" ": {APIKey: "x"}},
	}
	cfg.Sanitize()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 0, cfg.Cache.TTLSeconds)
	assert.Equal(t, 256, cfg.Cache.MaxEntries)
	assert.Equal(t, constant.DefaultMaxPages, cfg.Discovery.MaxPages)
	assert.Equal(t, 0, cfg.Discovery.RequestTimeoutSeconds)
	assert.Equal(t, 0, cfg.Discovery.Concurrency)
	assert.Empty(t, cfg.Providers)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, "port: 9001\n")

	changed := make(chan *Config, 4)
	w := NewWatcher(path, func(cfg *Config) { changed <- cfg })
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("port: 9002\n"), 0o600))

	select {
	case cfg := <-changed:
		assert.Equal(t, 9002, cfg.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not observed")
	}

	w.Stop()
	w.Stop()
}
