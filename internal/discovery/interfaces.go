// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package discovery aggregates model catalogs from the configured providers.
// It defines the adapter, fetcher and cache store contracts and implements the
// Gateway that resolves providers, consults the cache, merges adapter output and
// reports per-provider diagnostics.
package discovery

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/traylinx/modelgateway/internal/registry"
)

// Credential is what a caller supplied (or the configuration defaulted) for one provider.
type Credential struct {
	APIKey    string
	ServerURL string
}

// Present reports whether any credential value is set.
func (c Credential) Present() bool {
	return strings.TrimSpace(c.APIKey) != "" || strings.TrimSpace(c.ServerURL) != ""
}

// Adapter is the interface that every provider integration must implement.
type Adapter interface {
	// Provider returns the provider identifier this adapter serves.
	Provider() string

	// Fetch returns the provider's full catalog. When the adapter supports server-side
	// search, search is forwarded upstream; otherwise it is ignored.
	Fetch(ctx context.Context, cred Credential, search string) ([]*registry.ProviderModel, error)

	// SupportsServerSearch reports whether search narrows the upstream query.
	SupportsServerSearch() bool
}

// CatalogAdapter is implemented by providers backed by a hand-maintained catalog.
// The gateway never caches them and always reports them as cached.
type CatalogAdapter interface {
	Adapter
	Models() []*registry.ProviderModel
}

// Fetcher is the interface for retrieving raw content from a remote source (URL).
type Fetcher interface {
	// Fetch retrieves the content from the given URL.
	Fetch(ctx context.Context, url string) ([]byte, error)

	// FetchWithHeaders retrieves the content with additional request headers.
	FetchWithHeaders(ctx context.Context, url string, headers map[string]string) ([]byte, error)
}

// Store is the cache store contract used by the gateway and the adapters.
// Implementations must tolerate concurrent writers; last writer wins.
type Store interface {
	// Get returns the cached, unfiltered model list for key.
	Get(key string) ([]*registry.ProviderModel, bool)

	// Set replaces the model list stored under key.
	Set(key string, models []*registry.ProviderModel)

	// MakeKey builds the cache key for provider and an optional search string.
	MakeKey(provider, search string) string

	// BulkSetSchemas stores raw parameter schemas keyed by provider-native model id.
	BulkSetSchemas(schemas map[string]json.RawMessage)

	// GetSchema returns the raw parameter schema for a model id.
	GetSchema(modelID string) (json.RawMessage, bool)
}

// SchemaSink receives parameter schemas discovered while fetching a catalog.
type SchemaSink interface {
	BulkSetSchemas(schemas map[string]json.RawMessage)
}
