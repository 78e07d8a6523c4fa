// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package providers

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/traylinx/modelgateway/internal/capability"
	"github.com/traylinx/modelgateway/internal/constant"
	"github.com/traylinx/modelgateway/internal/discovery"
	"github.com/traylinx/modelgateway/internal/registry"
)

// DefaultFalBaseURL is fal.ai's platform API root.
const DefaultFalBaseURL = "https://api.fal.ai"

// falPageSize is the page size requested from fal.ai.
const falPageSize = 100

// FalCategories is the category allow-list. Models in any other category are dropped.
var FalCategories = map[string]struct{}{
	"text-to-image":  {},
	"image-to-image": {},
	"text-to-video":  {},
	"image-to-video": {},
	"text-to-3d":     {},
	"image-to-3d":    {},
	"image-editing":  {},
	"video-to-video": {},
}

// Fal lists fal.ai endpoints. fal.ai searches server-side, so results are cached per query.
type Fal struct {
	fetcher  discovery.Fetcher
	baseURL  string
	maxPages int
}

// NewFal creates a fal.ai adapter.
func NewFal(f discovery.Fetcher, opts Options) *Fal {
	return &Fal{
		fetcher:  f,
		baseURL:  opts.baseURL(DefaultFalBaseURL),
		maxPages: opts.maxPages(),
	}
}

func (a *Fal) Provider() string           { return constant.Fal }
func (a *Fal) SupportsServerSearch() bool { return true }

// Fetch walks the cursor-paginated model list, forwarding search as "q".
func (a *Fal) Fetch(ctx context.Context, cred discovery.Credential, search string) ([]*registry.ProviderModel, error) {
	headers := map[string]string{}
	if key := strings.TrimSpace(cred.APIKey); key != "" {
		headers["Authorization"] = "Key " + key
	}
	models := make([]*registry.ProviderModel, 0)

	_, err := paginate(ctx, constant.Fal, a.maxPages, func(ctx context.Context, cursor string) (string, error) {
		body, err := a.fetcher.FetchWithHeaders(ctx, a.pageURL(search, cursor), headers)
		if err != nil {
			return "", err
		}
		page, err := parseBody(constant.Fal, body)
		if err != nil {
			return "", err
		}
		items, _ := firstRaw(page, "models", "items", "data")
		items.ForEach(func(_, item gjson.Result) bool {
			if m := a.normalize(item); m != nil {
				models = append(models, m)
			}
			return true
		})
		next := firstString(page, "next_cursor", "nextCursor", "cursor")
		if hasMore := page.Get("has_more"); hasMore.Exists() && !hasMore.Bool() {
			next = ""
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return models, nil
}

func (a *Fal) pageURL(search, cursor string) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(falPageSize))
	if s := strings.TrimSpace(search); s != "" {
		q.Set("q", s)
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	return a.baseURL + "/v1/models?" + q.Encode()
}

// normalize maps one fal.ai entry. Fields may sit at the top level or under
// "metadata"; metadata wins. Entries outside FalCategories are dropped.
func (a *Fal) normalize(item gjson.Result) *registry.ProviderModel {
	id := firstString(item, "endpoint_id", "id", "endpointId")
	if id == "" {
		return nil
	}
	category := strings.ToLower(firstString(item, "metadata.category", "category"))
	if _, ok := FalCategories[category]; !ok {
		return nil
	}
	name := firstString(item, "metadata.display_name", "display_name", "title", "name")
	if name == "" {
		name = id
	}
	description := firstString(item, "metadata.description", "description")
	return &registry.ProviderModel{
		ID:           id,
		Name:         name,
		Description:  registry.Description(description),
		Provider:     constant.Fal,
		Capabilities: capability.InferFrom(capability.Hints{Category: category}, name, description, category),
		CoverImage:   firstString(item, "metadata.thumbnail_url", "thumbnail_url", "image_url"),
	}
}
