// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cmd assembles the gateway service from configuration and runs it.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/traylinx/modelgateway/internal/api"
	"github.com/traylinx/modelgateway/internal/config"
	"github.com/traylinx/modelgateway/internal/constant"
	"github.com/traylinx/modelgateway/internal/discovery"
	"github.com/traylinx/modelgateway/internal/discovery/fetcher"
	"github.com/traylinx/modelgateway/internal/discovery/providers"
	"github.com/traylinx/modelgateway/internal/registry"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 5 * time.Second

// Service is the assembled gateway: cache store, adapters, gateway and HTTP server.
type Service struct {
	cfg        *config.Config
	configPath string

	Store   *discovery.MemoryStore
	Gateway *discovery.Gateway
	Server  *api.Server

	watcher *config.Watcher
}

// BuildService wires every component from cfg. configPath may be empty, in which
// case the config file is not watched.
func BuildService(cfg *config.Config, configPath string) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	f, err := fetcher.NewHTTPFetcherWithOptions(fetcher.Options{
		Timeout:  cfg.RequestTimeout(),
		ProxyURL: cfg.ProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream fetcher: %w", err)
	}

	store := discovery.NewMemoryStore(cfg.CacheTTL(), cfg.Cache.MaxEntries)

	perProvider := make(map[string]providers.Options)
	for id, pc := range cfg.Providers {
		if pc.BaseURL != "" {
			perProvider[id] = providers.Options{BaseURL: pc.BaseURL}
		}
	}
	adapters, err := providers.NewAdapters(f, store, providers.SetOptions{
		PerProvider:    perProvider,
		MaxPages:       cfg.Discovery.MaxPages,
		ComfyUITimeout: constant.ComfyUITimeoutSeconds * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build provider adapters: %w", err)
	}

	gw := discovery.NewGateway(store, gatewayOptions(cfg), adapters...)

	s := &Service{
		cfg:        cfg,
		configPath: configPath,
		Store:      store,
		Gateway:    gw,
		Server:     api.NewServer(cfg, gw, store),
	}
	for _, id := range gw.Providers() {
		if pc := cfg.Provider(id); pc.APIKey != "" || pc.ServerURL != "" {
			log.Infof("Default credential configured for %s", registry.ProviderNames[id])
		}
	}
	return s, nil
}

func gatewayOptions(cfg *config.Config) discovery.Options {
	return discovery.Options{
		RequestTimeout: cfg.RequestTimeout(),
		Parallel:       cfg.Discovery.Parallel,
		Concurrency:    cfg.Discovery.Concurrency,
		Keyless:        cfg.Keyless(),
	}
}

// Reload applies a changed configuration to the running service. Settings baked
// into the cache store, fetcher or adapters are reported and keep their old value.
func (s *Service) Reload(cfg *config.Config) {
	if cfg == nil {
		return
	}
	for _, key := range restartRequired(s.cfg, cfg) {
		log.WithField("key", key).Warn("Setting changed; restart the server to apply it")
	}
	s.Gateway.UpdateOptions(gatewayOptions(cfg))
	s.Server.UpdateConfig(cfg)
}

// restartRequired lists the keys that differ between old and updated and cannot be hot-applied.
func restartRequired(old, updated *config.Config) []string {
	var keys []string
	if old.Cache.TTLSeconds != updated.Cache.TTLSeconds {
		keys = append(keys, "cache.ttl-seconds")
	}
	if old.Cache.MaxEntries != updated.Cache.MaxEntries {
		keys = append(keys, "cache.max-entries")
	}
	if old.Discovery.MaxPages != updated.Discovery.MaxPages {
		keys = append(keys, "discovery.max-pages")
	}
	if old.ProxyURL != updated.ProxyURL {
		keys = append(keys, "proxy-url")
	}
	for _, id := range registry.AllProviders {
		if old.Provider(id).BaseURL != updated.Provider(id).BaseURL {
			keys = append(keys, "providers."+id+".base-url")
		}
	}
	return keys
}

// URL returns the address of the catalog endpoint.
func (s *Service) URL() string {
	host := s.cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d/models", host, s.cfg.Port)
}

// Run serves until ctx is cancelled or the listener fails.
func (s *Service) Run(ctx context.Context) error {
	if s.configPath != "" {
		s.watcher = config.NewWatcher(s.configPath, s.Reload)
		if err := s.watcher.Start(); err != nil {
			log.Warnf("Config hot reload disabled: %v", err)
			s.watcher = nil
		}
	}
	defer func() {
		if s.watcher != nil {
			s.watcher.Stop()
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Server.Stop(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil {
		return err
	}
	return ctx.Err()
}

// StartService builds the service, optionally opens the catalog in a browser and
// blocks until SIGINT or SIGTERM.
func StartService(cfg *config.Config, configPath string, openBrowser bool) {
	service, err := BuildService(cfg, configPath)
	if err != nil {
		log.Errorf("failed to build gateway service: %v", err)
		return
	}

	ctxSignal, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if openBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			if errOpen := open.Run(service.URL()); errOpen != nil {
				log.Warnf("Failed to open browser: %v", errOpen)
			}
		}()
	}

	err = service.Run(ctxSignal)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("gateway service exited with error: %v", err)
	}
}
