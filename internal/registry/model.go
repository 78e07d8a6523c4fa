// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry defines the normalized model records shared by every provider
// adapter, the cache store and the gateway. Upstream catalogs differ in shape; once
// an adapter has produced a ProviderModel the rest of the system never looks at the
// provider-native payload again.
package registry

import (
	"sort"
	"strings"

	"github.com/traylinx/modelgateway/internal/constant"
)

// Capability describes the input/output modality pairing a model supports.
type Capability string

const (
	TextToImage  Capability = "text-to-image"
	ImageToImage Capability = "image-to-image"
	TextToVideo  Capability = "text-to-video"
	ImageToVideo Capability = "image-to-video"
	TextTo3D     Capability = "text-to-3d"
	ImageTo3D    Capability = "image-to-3d"
)

// AllCapabilities lists the closed capability set in display order.
var AllCapabilities = []Capability{TextToImage, ImageToImage, TextToVideo, ImageToVideo, TextTo3D, ImageTo3D}

// ParseCapability validates a capability tag. Matching is case-insensitive.
func ParseCapability(raw string) (Capability, bool) {
	value := Capability(strings.ToLower(strings.TrimSpace(raw)))
	for _, c := range AllCapabilities {
		if c == value {
			return c, true
		}
	}
	return "", false
}

// PricingType distinguishes flat per-call pricing from duration-based pricing.
type PricingType string

const (
	PerRun    PricingType = "per-run"
	PerSecond PricingType = "per-second"
)

// Pricing is the advertised cost of one generation.
type Pricing struct {
	Type     PricingType `json:"type" yaml:"type"`
	Amount   float64     `json:"amount" yaml:"amount"`
	Currency string      `json:"currency" yaml:"currency"`
}

// ProviderModel is the normalized unit of output returned to callers.
type ProviderModel struct {
	// ID is unique within a provider only; formats differ per provider.
	ID string `json:"id"`
	// Name is the human-readable model name.
	Name string `json:"name"`
	// Description is serialized as null when the upstream did not provide one.
	Description *string `json:"description"`
	// Provider is one of the constant provider identifiers.
	Provider string `json:"provider"`
	// Capabilities never contains duplicates.
	Capabilities []Capability `json:"capabilities"`
	// CoverImage is an optional thumbnail URL.
	CoverImage string `json:"coverImage,omitempty"`
	// Pricing is optional.
	Pricing *Pricing `json:"pricing,omitempty"`
	// PageURL is only set for statically cataloged providers.
	PageURL string `json:"pageUrl,omitempty"`
}

// DescriptionText returns the description or an empty string.
func (m *ProviderModel) DescriptionText() string {
	if m == nil || m.Description == nil {
		return ""
	}
	return *m.Description
}

// HasAnyCapability reports whether the model carries at least one of the given tags.
// An empty filter matches every model.
func (m *ProviderModel) HasAnyCapability(filter []Capability) bool {
	if len(filter) == 0 {
		return true
	}
	for _, have := range m.Capabilities {
		for _, want := range filter {
			if have == want {
				return true
			}
		}
	}
	return false
}

// MatchesSearch performs the client-side substring search used for providers that
// cannot search server-side. It matches name, description or id, case-insensitively.
func (m *ProviderModel) MatchesSearch(search string) bool {
	query := strings.ToLower(strings.TrimSpace(search))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(m.Name), query) ||
		strings.Contains(strings.ToLower(m.DescriptionText()), query) ||
		strings.Contains(strings.ToLower(m.ID), query)
}

// Description returns a pointer suitable for ProviderModel.Description, or nil when
// the trimmed text is empty.
func Description(text string) *string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return &text
}

// FilterSearch returns the models matching search. The input slice is not modified.
func FilterSearch(models []*ProviderModel, search string) []*ProviderModel {
	if strings.TrimSpace(search) == "" {
		return models
	}
	out := make([]*ProviderModel, 0, len(models))
	for _, m := range models {
		if m.MatchesSearch(search) {
			out = append(out, m)
		}
	}
	return out
}

// FilterCapabilities keeps models whose capabilities intersect filter.
func FilterCapabilities(models []*ProviderModel, filter []Capability) []*ProviderModel {
	if len(filter) == 0 {
		return models
	}
	out := make([]*ProviderModel, 0, len(models))
	for _, m := range models {
		if m.HasAnyCapability(filter) {
			out = append(out, m)
		}
	}
	return out
}

// SortModels orders models by provider, then by name. The sort is stable so models
// sharing both keys keep their upstream order.
func SortModels(models []*ProviderModel) {
	sort.SliceStable(models, func(i, j int) bool {
		if models[i].Provider != models[j].Provider {
			return models[i].Provider < models[j].Provider
		}
		return models[i].Name < models[j].Name
	})
}

// ProviderResult is the per-provider outcome of one request.
// Use Succeeded and Failed to build one; they keep the success/error invariant.
type ProviderResult struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Cached  *bool  `json:"cached,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(count int, cached bool) ProviderResult {
	return ProviderResult{Success: true, Count: count, Cached: &cached}
}

// Failed builds a failed result. An empty message is replaced so Error is always set.
func Failed(message string) ProviderResult {
	if strings.TrimSpace(message) == "" {
		message = "unknown error"
	}
	return ProviderResult{Success: false, Error: message}
}

// IsCached reports whether the result was served from cache.
func (r ProviderResult) IsCached() bool {
	return r.Cached != nil && *r.Cached
}

// ProviderNames maps provider ids to display names used in messages.
var ProviderNames = map[string]string{
	constant.Gemini:    "Gemini",
	constant.Replicate: "Replicate",
	constant.Fal:       "fal.ai",
	constant.Kie:       "Kie.ai",
	constant.WaveSpeed: "WaveSpeed",
	constant.XAI:       "xAI",
	constant.BFL:       "BFL",
	constant.ComfyUI:   "ComfyUI",
}

// AllProviders lists every provider id in resolution order.
var AllProviders = []string{
	constant.Gemini,
	constant.Replicate,
	constant.Fal,
	constant.Kie,
	constant.WaveSpeed,
	constant.XAI,
	constant.BFL,
	constant.ComfyUI,
}

// IsKnownProvider reports whether id is one of the supported providers.
func IsKnownProvider(id string) bool {
	_, ok := ProviderNames[id]
	return ok
}
