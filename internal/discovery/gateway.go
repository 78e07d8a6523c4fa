// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelgateway/internal/constant"
	"github.com/traylinx/modelgateway/internal/registry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// unexpectedAdapterError replaces the message of a panicking adapter.
const unexpectedAdapterError = "unexpected error while fetching models"

// Options tunes how the gateway drives adapters.
type Options struct {
	// RequestTimeout bounds one adapter call, on top of the caller's context. Zero disables it.
	RequestTimeout time.Duration
	// Parallel fetches network providers concurrently. Results are merged in resolution order either way.
	Parallel bool
	// Concurrency limits parallel fetches. Values <= 0 mean one goroutine per provider.
	Concurrency int
	// Keyless lists providers included without any credential when no provider filter is given.
	Keyless map[string]bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		RequestTimeout: 30 * time.Second,
		Parallel:       true,
		Concurrency:    4,
	}
}

// Request is one catalog listing request.
type Request struct {
	// Provider restricts the listing to a single provider when set.
	Provider string
	// Search is a free-text filter.
	Search string
	// Refresh bypasses cache reads; results are still written back.
	Refresh bool
	// Capabilities keeps models carrying any of these tags.
	Capabilities []registry.Capability
	// Credentials holds the resolved credential per provider.
	Credentials map[string]Credential
}

// Response is the merged listing.
type Response struct {
	Success   bool                               `json:"success"`
	Models    []*registry.ProviderModel          `json:"models"`
	Cached    bool                               `json:"cached"`
	Providers map[string]registry.ProviderResult `json:"providers"`
	Errors    []string                           `json:"errors,omitempty"`
}

// requirement describes what a provider needs before it can be queried.
type requirement struct {
	serverURL bool
	// strict providers fail the whole request when explicitly requested without a credential.
	strict bool
	header string
	env    string
}

var requirements = map[string]requirement{
	constant.Gemini:    {header: constant.HeaderGeminiKey, env: constant.EnvGeminiKey},
	constant.Replicate: {header: constant.HeaderReplicateKey, env: constant.EnvReplicateKey},
	constant.Fal:       {header: constant.HeaderFalKey, env: constant.EnvFalKey},
	constant.Kie:       {header: constant.HeaderKieKey, env: constant.EnvKieKey},
	constant.WaveSpeed: {strict: true, header: constant.HeaderWaveSpeedKey, env: constant.EnvWaveSpeedKey},
	constant.XAI:       {header: constant.HeaderXAIKey, env: constant.EnvXAIKey},
	constant.BFL:       {header: constant.HeaderBFLKey, env: constant.EnvBFLKey},
	constant.ComfyUI:   {serverURL: true, strict: true, header: constant.HeaderComfyUIServer, env: constant.EnvComfyUIServer},
}

// Gateway orchestrates adapters, the cache store and response assembly.
type Gateway struct {
	adapters map[string]Adapter
	order    []string
	store    Store
	group    singleflight.Group

	mu   sync.RWMutex
	opts Options
}

// NewGateway creates a gateway over the given adapters. Adapters are resolved in
// registry.AllProviders order; unknown providers follow in registration order.
func NewGateway(store Store, opts Options, adapters ...Adapter) *Gateway {
	g := &Gateway{
		adapters: make(map[string]Adapter, len(adapters)),
		store:    store,
		opts:     opts,
	}
	for _, a := range adapters {
		g.adapters[a.Provider()] = a
	}
	for _, id := range registry.AllProviders {
		if _, ok := g.adapters[id]; ok {
			g.order = append(g.order, id)
		}
	}
	for _, a := range adapters {
		if !registry.IsKnownProvider(a.Provider()) {
			g.order = append(g.order, a.Provider())
		}
	}
	return g
}

// UpdateOptions replaces the options used by requests that start afterwards.
func (g *Gateway) UpdateOptions(opts Options) {
	g.mu.Lock()
	g.opts = opts
	g.mu.Unlock()
}

func (g *Gateway) options() Options {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.opts
}

// Providers returns the registered provider ids in resolution order.
func (g *Gateway) Providers() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// fetchOutcome is the result of one network provider within a request.
type fetchOutcome struct {
	provider string
	models   []*registry.ProviderModel
	cached   bool
	err      error
}

// ListModels resolves providers, gathers their catalogs and builds the response.
// It returns a *PreconditionError or *AggregateFailureError when the request fails as a whole.
func (g *Gateway) ListModels(ctx context.Context, req Request) (*Response, error) {
	opts := g.options()
	providers, err := g.resolve(req, opts)
	if err != nil {
		return nil, err
	}

	log.WithField("providers", strings.Join(providers, ",")).
		WithField("refresh", req.Refresh).
		Debug("Listing models")

	resp := &Response{
		Success:   true,
		Models:    make([]*registry.ProviderModel, 0),
		Providers: make(map[string]registry.ProviderResult, len(providers)),
	}

	var dynamic []Adapter
	for _, id := range providers {
		adapter := g.adapters[id]
		catalog, isCatalog := adapter.(CatalogAdapter)
		if !isCatalog {
			dynamic = append(dynamic, adapter)
			continue
		}
		models := registry.FilterSearch(catalog.Models(), req.Search)
		resp.Models = append(resp.Models, models...)
		resp.Providers[id] = registry.Succeeded(len(models), true)
	}

	outcomes := g.fetchAll(ctx, dynamic, req, opts)
	failed := 0
	for _, out := range outcomes {
		if out.err != nil {
			failed++
			msg := out.err.Error()
			resp.Providers[out.provider] = registry.Failed(msg)
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %s", out.provider, msg))
			continue
		}
		resp.Models = append(resp.Models, out.models...)
		resp.Providers[out.provider] = registry.Succeeded(len(out.models), out.cached)
	}

	if len(resp.Models) == 0 && len(dynamic) > 0 && failed == len(dynamic) {
		return nil, &AggregateFailureError{Errors: resp.Errors}
	}

	resp.Models = registry.FilterCapabilities(resp.Models, req.Capabilities)
	registry.SortModels(resp.Models)

	contributing, cached := 0, 0
	for _, result := range resp.Providers {
		if !result.Success {
			continue
		}
		contributing++
		if result.IsCached() {
			cached++
		}
	}
	resp.Cached = contributing > 0 && cached == contributing

	return resp, nil
}

// resolve computes the provider set for req.
func (g *Gateway) resolve(req Request, opts Options) ([]string, error) {
	filter := strings.ToLower(strings.TrimSpace(req.Provider))
	if filter != "" {
		if _, ok := g.adapters[filter]; !ok {
			return nil, &PreconditionError{Message: fmt.Sprintf("Unknown provider %q", req.Provider)}
		}
		reqs := requirements[filter]
		cred := req.Credentials[filter]
		if reqs.strict && !credentialSatisfies(reqs, cred) {
			return nil, &PreconditionError{Message: missingMessage(filter, reqs)}
		}
		return []string{filter}, nil
	}

	var providers []string
	for _, id := range g.order {
		if opts.Keyless[id] || credentialSatisfies(requirements[id], req.Credentials[id]) {
			providers = append(providers, id)
		}
	}
	if len(providers) == 0 {
		headers := make([]string, 0, len(g.order))
		for _, id := range g.order {
			if h := requirements[id].header; h != "" {
				headers = append(headers, h)
			}
		}
		return nil, &PreconditionError{
			Message: "No providers available. Provide at least one of: " + strings.Join(headers, ", "),
		}
	}
	return providers, nil
}

func credentialSatisfies(r requirement, cred Credential) bool {
	if r.serverURL {
		return strings.TrimSpace(cred.ServerURL) != ""
	}
	return strings.TrimSpace(cred.APIKey) != ""
}

func missingMessage(provider string, r requirement) string {
	name := registry.ProviderNames[provider]
	if r.serverURL {
		return fmt.Sprintf("%s server URL required. Provide %s header or set %s", name, r.header, r.env)
	}
	return fmt.Sprintf("%s API key required. Provide %s header or set %s", name, r.header, r.env)
}

// fetchAll gathers every network provider. Outcomes keep the order of adapters.
func (g *Gateway) fetchAll(ctx context.Context, adapters []Adapter, req Request, opts Options) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(adapters))
	if !opts.Parallel || len(adapters) < 2 {
		for i, a := range adapters {
			outcomes[i] = g.fetchOne(ctx, a, req, opts.RequestTimeout)
		}
		return outcomes
	}

	var eg errgroup.Group
	if opts.Concurrency > 0 {
		eg.SetLimit(opts.Concurrency)
	}
	for i, a := range adapters {
		eg.Go(func() error {
			outcomes[i] = g.fetchOne(ctx, a, req, opts.RequestTimeout)
			return nil
		})
	}
	_ = eg.Wait()
	return outcomes
}

// fetchOne serves one network provider from cache or upstream.
func (g *Gateway) fetchOne(ctx context.Context, a Adapter, req Request, timeout time.Duration) fetchOutcome {
	id := a.Provider()
	search := ""
	if a.SupportsServerSearch() {
		search = req.Search
	}
	key := g.store.MakeKey(id, search)

	display := func(models []*registry.ProviderModel) []*registry.ProviderModel {
		if a.SupportsServerSearch() {
			return models
		}
		return registry.FilterSearch(models, req.Search)
	}

	if !req.Refresh {
		if models, ok := g.store.Get(key); ok {
			log.WithField("provider", id).WithField("key", key).Debug("Using cached model list")
			return fetchOutcome{provider: id, models: display(models), cached: true}
		}
	}

	cred := req.Credentials[id]
	flight := g.group.DoChan(key+"\x00"+credentialDigest(cred), func() (interface{}, error) {
		// Shared by every waiting request, so no single caller may cancel it.
		models, errFetch := g.invoke(context.WithoutCancel(ctx), a, cred, search, timeout)
		if errFetch != nil {
			log.WithError(errFetch).WithField("provider", id).Warn("Model listing failed for provider")
			return nil, errFetch
		}
		g.store.Set(key, models)
		log.WithField("provider", id).WithField("count", len(models)).Info("Fetched model list")
		return models, nil
	})

	select {
	case <-ctx.Done():
		return fetchOutcome{provider: id, err: NewAdapterError(id, ctx.Err())}
	case res := <-flight:
		if res.Err != nil {
			return fetchOutcome{provider: id, err: res.Err}
		}
		models := res.Val.([]*registry.ProviderModel)
		return fetchOutcome{provider: id, models: display(models)}
	}
}

// credentialDigest identifies a credential without keeping it in the flight key.
func credentialDigest(cred Credential) string {
	sum := sha256.Sum256([]byte(cred.APIKey + "\x00" + cred.ServerURL))
	return hex.EncodeToString(sum[:8])
}

// invoke calls the adapter, converting errors and panics into *AdapterError.
// A positive timeout bounds the call.
func (g *Gateway) invoke(ctx context.Context, a Adapter, cred Credential, search string, timeout time.Duration) (models []*registry.ProviderModel, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("provider", a.Provider()).Errorf("Adapter panic: %v", r)
			models = nil
			err = &AdapterError{Provider: a.Provider(), Message: unexpectedAdapterError}
		}
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	models, err = a.Fetch(ctx, cred, search)
	if err != nil {
		return nil, NewAdapterError(a.Provider(), err)
	}
	if models == nil {
		models = make([]*registry.ProviderModel, 0)
	}
	return models, nil
}
