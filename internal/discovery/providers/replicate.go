// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package providers

import (
	"context"

	"github.com/tidwall/gjson"
	"github.com/traylinx/modelgateway/internal/capability"
	"github.com/traylinx/modelgateway/internal/constant"
	"github.com/traylinx/modelgateway/internal/discovery"
	"github.com/traylinx/modelgateway/internal/registry"
)

// DefaultReplicateBaseURL is Replicate's public API root.
const DefaultReplicateBaseURL = "https://api.replicate.com"

// Replicate lists public models from Replicate's /v1/models endpoint.
// Replicate paginates with an absolute "next" URL and has no search on that endpoint.
type Replicate struct {
	fetcher  discovery.Fetcher
	baseURL  string
	maxPages int
}

// NewReplicate creates a Replicate adapter.
func NewReplicate(f discovery.Fetcher, opts Options) *Replicate {
	return &Replicate{
		fetcher:  f,
		baseURL:  opts.baseURL(DefaultReplicateBaseURL),
		maxPages: opts.maxPages(),
	}
}

func (r *Replicate) Provider() string           { return constant.Replicate }
func (r *Replicate) SupportsServerSearch() bool { return false }

// Fetch walks the paginated model list.
func (r *Replicate) Fetch(ctx context.Context, cred discovery.Credential, _ string) ([]*registry.ProviderModel, error) {
	headers := map[string]string{"Authorization": bearer(cred.APIKey)}
	models := make([]*registry.ProviderModel, 0)

	_, err := paginate(ctx, constant.Replicate, r.maxPages, func(ctx context.Context, cursor string) (string, error) {
		url := cursor
		if url == "" {
			url = r.baseURL + "/v1/models"
		}
		body, err := r.fetcher.FetchWithHeaders(ctx, url, headers)
		if err != nil {
			return "", err
		}
		page, err := parseBody(constant.Replicate, body)
		if err != nil {
			return "", err
		}
		page.Get("results").ForEach(func(_, item gjson.Result) bool {
			if m := r.normalize(item); m != nil {
				models = append(models, m)
			}
			return true
		})
		return page.Get("next").String(), nil
	})
	if err != nil {
		return nil, err
	}
	return models, nil
}

// normalize maps one Replicate model. Entries without a name are skipped.
func (r *Replicate) normalize(item gjson.Result) *registry.ProviderModel {
	owner := firstString(item, "owner")
	name := firstString(item, "name")
	if name == "" {
		return nil
	}
	id := name
	if owner != "" {
		id = owner + "/" + name
	}
	description := firstString(item, "description")
	return &registry.ProviderModel{
		ID:           id,
		Name:         name,
		Description:  registry.Description(description),
		Provider:     constant.Replicate,
		Capabilities: capability.InferFrom(capability.Hints{}, id, description),
		CoverImage:   firstString(item, "cover_image_url"),
	}
}
