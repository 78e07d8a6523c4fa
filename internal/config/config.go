// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the modelgateway server.
// It handles loading and parsing YAML configuration files, applies environment
// overrides for provider credentials, and provides structured access to the
// server, cache, discovery and provider settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/traylinx/modelgateway/internal/constant"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// DefaultPort is the port used when the config does not set one.
const DefaultPort = 8317

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface on which the API server will bind.
	// Default is empty ("") to bind all interfaces. Use "127.0.0.1" for local-only access.
	Host string `yaml:"host" json:"-"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port" json:"-"`

	// Debug enables debug-level logging and gin debug mode.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile controls whether application logs are written to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// ProxyURL is an optional http(s) or socks5 proxy for upstream catalog requests.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// RemoteManagement nests management-related options under 'remote-management'.
	RemoteManagement RemoteManagement `yaml:"remote-management" json:"-"`

	// Cache configures the catalog cache store.
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Discovery tunes how providers are queried.
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Providers holds per-provider defaults keyed by provider id.
	Providers map[string]ProviderConfig `yaml:"providers" json:"-"`
}

// RemoteManagement holds management API configuration under 'remote-management'.
type RemoteManagement struct {
	// AllowRemote toggles remote (non-localhost) access to management API.
	AllowRemote bool `yaml:"allow-remote"`
	// SecretKey is the management key (plaintext or bcrypt hashed). YAML key intentionally 'secret-key'.
	SecretKey string `yaml:"secret-key"`
}

// CacheConfig configures the in-memory catalog cache.
type CacheConfig struct {
	// TTLSeconds is how long a fetched catalog is reused. 0 disables expiry.
	TTLSeconds int `yaml:"ttl-seconds" json:"ttl-seconds"`
	// MaxEntries bounds the number of cached catalogs.
	MaxEntries int `yaml:"max-entries" json:"max-entries"`
}

// DiscoveryConfig tunes adapter invocation.
type DiscoveryConfig struct {
	// MaxPages caps pagination per adapter call.
	MaxPages int `yaml:"max-pages" json:"max-pages"`
	// RequestTimeoutSeconds bounds a single provider fetch.
	RequestTimeoutSeconds int `yaml:"request-timeout-seconds" json:"request-timeout-seconds"`
	// Parallel fetches network providers concurrently.
	Parallel bool `yaml:"parallel" json:"parallel"`
	// Concurrency limits parallel fetches.
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// ProviderConfig holds the server-side defaults for one provider.
type ProviderConfig struct {
	// APIKey is used when the request carries no key header.
	APIKey string `yaml:"api-key" json:"-"`
	// ServerURL is the default ComfyUI server.
	ServerURL string `yaml:"server-url" json:"server-url,omitempty"`
	// BaseURL overrides the provider's public API root.
	BaseURL string `yaml:"base-url" json:"base-url,omitempty"`
	// Keyless includes the provider in unfiltered listings even without a credential.
	Keyless bool `yaml:"keyless" json:"keyless,omitempty"`
}

// providerEnv lists the environment variables consulted per provider, in precedence order.
var providerEnv = map[string][]string{
	constant.Gemini:    {constant.EnvGeminiKey},
	constant.Replicate: {constant.EnvReplicateKey, "REPLICATE_API_KEY"},
	constant.Fal:       {constant.EnvFalKey, "FAL_API_KEY"},
	constant.Kie:       {constant.EnvKieKey},
	constant.WaveSpeed: {constant.EnvWaveSpeedKey},
	constant.XAI:       {constant.EnvXAIKey},
	constant.BFL:       {constant.EnvBFLKey},
	constant.ComfyUI:   {constant.EnvComfyUIServer},
}

// LoadConfig reads YAML from configFile. The file must exist.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile.
// If optional is true and the file is missing or empty, defaults are returned.
// Environment overrides are applied in every case.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configFile)
	if err != nil {
		if !optional || !(os.IsNotExist(err) || errors.Is(err, syscall.EISDIR)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		data = nil
	}

	if len(bytes.TrimSpace(data)) > 0 {
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Hash remote management key if plaintext is detected.
	if cfg.RemoteManagement.SecretKey != "" && !looksLikeBcrypt(cfg.RemoteManagement.SecretKey) {
		hashed, errHash := hashSecret(cfg.RemoteManagement.SecretKey)
		if errHash != nil {
			return nil, fmt.Errorf("failed to hash remote management key: %w", errHash)
		}
		cfg.RemoteManagement.SecretKey = hashed

		// Persist the hashed value so the plaintext does not stay on disk.
		if len(data) > 0 {
			_ = SaveConfigPreserveCommentsUpdateNestedScalar(configFile, []string{"remote-management", "secret-key"}, hashed)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	cfg.Sanitize()
	return cfg, nil
}

// Default returns the configuration used for absent keys.
func Default() *Config {
	return &Config{
		Port: DefaultPort,
		Cache: CacheConfig{
			TTLSeconds: int(time.Hour / time.Second),
			MaxEntries: 256,
		},
		Discovery: DiscoveryConfig{
			MaxPages:              constant.DefaultMaxPages,
			RequestTimeoutSeconds: 30,
			Parallel:              true,
			Concurrency:           4,
		},
		Providers: make(map[string]ProviderConfig),
	}
}

// ApplyEnv overrides provider credentials from the environment. A set, non-empty
// variable wins over the file value.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	for provider, names := range providerEnv {
		for _, name := range names {
			value, ok := lookup(name)
			value = strings.TrimSpace(value)
			if !ok || value == "" {
				continue
			}
			pc := cfg.Providers[provider]
			if provider == constant.ComfyUI {
				pc.ServerURL = value
			} else {
				pc.APIKey = value
			}
			cfg.Providers[provider] = pc
			break
		}
	}
}

// Sanitize normalizes provider keys and clamps numeric settings.
func (cfg *Config) Sanitize() {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.ProxyURL = strings.TrimSpace(cfg.ProxyURL)
	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = DefaultPort
	}
	if cfg.Cache.TTLSeconds < 0 {
		cfg.Cache.TTLSeconds = 0
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = 256
	}
	if cfg.Discovery.MaxPages <= 0 {
		cfg.Discovery.MaxPages = constant.DefaultMaxPages
	}
	if cfg.Discovery.RequestTimeoutSeconds < 0 {
		cfg.Discovery.RequestTimeoutSeconds = 0
	}
	if cfg.Discovery.Concurrency < 0 {
		cfg.Discovery.Concurrency = 0
	}

	clean := make(map[string]ProviderConfig, len(cfg.Providers))
	for id, pc := range cfg.Providers {
		key := strings.ToLower(strings.TrimSpace(id))
		if key == "" {
			continue
		}
		pc.APIKey = strings.TrimSpace(pc.APIKey)
		pc.ServerURL = strings.TrimSpace(pc.ServerURL)
		pc.BaseURL = strings.TrimRight(strings.TrimSpace(pc.BaseURL), "/")
		clean[key] = pc
	}
	cfg.Providers = clean
}

// Provider returns the defaults for provider id.
func (cfg *Config) Provider(id string) ProviderConfig {
	if cfg == nil {
		return ProviderConfig{}
	}
	return cfg.Providers[id]
}

// Keyless returns the providers flagged keyless.
func (cfg *Config) Keyless() map[string]bool {
	out := make(map[string]bool)
	for id, pc := range cfg.Providers {
		if pc.Keyless {
			out[id] = true
		}
	}
	return out
}

// CacheTTL returns the cache TTL as a duration.
func (cfg *Config) CacheTTL() time.Duration {
	return time.Duration(cfg.Cache.TTLSeconds) * time.Second
}

// RequestTimeout returns the per-provider fetch timeout.
func (cfg *Config) RequestTimeout() time.Duration {
	return time.Duration(cfg.Discovery.RequestTimeoutSeconds) * time.Second
}

// looksLikeBcrypt returns true if the provided string appears to be a bcrypt hash.
func looksLikeBcrypt(s string) bool {
	return len(s) > 4 && (s[:4] == "$2a$" || s[:4] == "$2b$" || s[:4] == "$2y$")
}

// hashSecret hashes the given secret using bcrypt.
func hashSecret(secret string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// SaveConfigPreserveCommentsUpdateNestedScalar updates a nested scalar key path like ["a","b"]
// while preserving comments and positions.
func SaveConfigPreserveCommentsUpdateNestedScalar(configFile string, path []string, value string) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	var root yaml.Node
	if err = yaml.Unmarshal(data, &root); err != nil {
		return err
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("invalid yaml document structure")
	}
	node := root.Content[0]
	for i, key := range path {
		if i == len(path)-1 {
			v := getOrCreateMapValue(node, key)
			v.Kind = yaml.ScalarNode
			v.Tag = "!!str"
			v.Value = value
		} else {
			next := getOrCreateMapValue(node, key)
			if next.Kind != yaml.MappingNode {
				next.Kind = yaml.MappingNode
				next.Tag = "!!map"
			}
			node = next
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err = enc.Encode(&root); err != nil {
		_ = enc.Close()
		return err
	}
	if err = enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(configFile, NormalizeCommentIndentation(buf.Bytes()), 0o600)
}

// NormalizeCommentIndentation removes indentation from standalone YAML comment lines to keep them left aligned.
func NormalizeCommentIndentation(data []byte) []byte {
	lines := bytes.Split(data, []byte("\n"))
	changed := false
	for i, line := range lines {
		trimmed := bytes.TrimLeft(line, " \t")
		if len(trimmed) == 0 || trimmed[0] != '#' || len(trimmed) == len(line) {
			continue
		}
		lines[i] = append([]byte(nil), trimmed...)
		changed = true
	}
	if !changed {
		return data
	}
	return bytes.Join(lines, []byte("\n"))
}

// getOrCreateMapValue finds the value node for a given key in a mapping node.
// If not found, it appends a new key/value pair and returns the new value node.
func getOrCreateMapValue(mapNode *yaml.Node, key string) *yaml.Node {
	if mapNode.Kind != yaml.MappingNode {
		mapNode.Kind = yaml.MappingNode
		mapNode.Tag = "!!map"
		mapNode.Content = nil
	}
	for i := 0; i+1 < len(mapNode.Content); i += 2 {
		if mapNode.Content[i].Value == key {
			return mapNode.Content[i+1]
		}
	}
	mapNode.Content = append(mapNode.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key})
	val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: ""}
	mapNode.Content = append(mapNode.Content, val)
	return val
}
