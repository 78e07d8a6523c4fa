// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package providers

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/traylinx/modelgateway/internal/capability"
	"github.com/traylinx/modelgateway/internal/constant"
	"github.com/traylinx/modelgateway/internal/discovery"
	"github.com/traylinx/modelgateway/internal/registry"
)

//go:embed catalogs/*.yaml
var catalogFS embed.FS

// StaticProviders are the providers without a discovery API.
var StaticProviders = []string{constant.Gemini, constant.Kie, constant.XAI, constant.BFL}

type catalogFile struct {
	Provider string         `yaml:"provider"`
	Models   []catalogEntry `yaml:"models"`
}

type catalogEntry struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	Capabilities []string          `yaml:"capabilities"`
	CoverImage   string            `yaml:"coverImage"`
	PageURL      string            `yaml:"pageUrl"`
	Pricing      *registry.Pricing `yaml:"pricing"`
}

// Catalog serves a hand-maintained model list. It never touches the network.
type Catalog struct {
	provider string
	models   []*registry.ProviderModel
}

// NewCatalog builds a catalog for provider from the given models.
func NewCatalog(provider string, models []*registry.ProviderModel) *Catalog {
	return &Catalog{provider: provider, models: models}
}

// LoadCatalog parses the embedded catalog of provider.
func LoadCatalog(provider string) (*Catalog, error) {
	data, err := catalogFS.ReadFile("catalogs/" + provider + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no static catalog for %s: %w", provider, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog document. Entries without capabilities get inferred ones.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	provider := strings.ToLower(strings.TrimSpace(file.Provider))
	if provider == "" {
		return nil, fmt.Errorf("catalog has no provider")
	}

	models := make([]*registry.ProviderModel, 0, len(file.Models))
	for i, e := range file.Models {
		if strings.TrimSpace(e.ID) == "" {
			return nil, fmt.Errorf("%s catalog entry %d has no id", provider, i)
		}
		name := e.Name
		if name == "" {
			name = e.ID
		}
		tags := make([]registry.Capability, 0, len(e.Capabilities))
		for _, raw := range e.Capabilities {
			c, ok := registry.ParseCapability(raw)
			if !ok {
				return nil, fmt.Errorf("%s catalog entry %s: unknown capability %q", provider, e.ID, raw)
			}
			tags = append(tags, c)
		}
		tags = capability.Normalize(tags)
		if len(tags) == 0 {
			tags = capability.InferFrom(capability.Hints{}, e.ID, name, e.Description)
		}
		models = append(models, &registry.ProviderModel{
			ID:           e.ID,
			Name:         name,
			Description:  registry.Description(e.Description),
			Provider:     provider,
			Capabilities: tags,
			CoverImage:   e.CoverImage,
			Pricing:      e.Pricing,
			PageURL:      e.PageURL,
		})
	}
	return NewCatalog(provider, models), nil
}

func (c *Catalog) Provider() string           { return c.provider }
func (c *Catalog) SupportsServerSearch() bool { return false }

// Models returns a copy of the catalog. Model values are shared and must not be mutated.
func (c *Catalog) Models() []*registry.ProviderModel {
	out := make([]*registry.ProviderModel, len(c.models))
	copy(out, c.models)
	return out
}

// Fetch returns the catalog; credentials and search are ignored.
func (c *Catalog) Fetch(context.Context, discovery.Credential, string) ([]*registry.ProviderModel, error) {
	return c.Models(), nil
}
