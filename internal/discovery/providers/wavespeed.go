// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/traylinx/modelgateway/internal/capability"
	"github.com/traylinx/modelgateway/internal/constant"
	"github.com/traylinx/modelgateway/internal/discovery"
	"github.com/traylinx/modelgateway/internal/registry"
)

// DefaultWaveSpeedBaseURL is WaveSpeed's API root.
const DefaultWaveSpeedBaseURL = "https://api.wavespeed.ai"

const waveSpeedPageSize = 100

// WaveSpeed lists models from WaveSpeed's page-numbered model API. Parameter
// schemas embedded in the listing are handed to a SchemaSink in one call.
type WaveSpeed struct {
	fetcher  discovery.Fetcher
	schemas  discovery.SchemaSink
	baseURL  string
	maxPages int
}

// NewWaveSpeed creates a WaveSpeed adapter. schemas may be nil.
func NewWaveSpeed(f discovery.Fetcher, schemas discovery.SchemaSink, opts Options) *WaveSpeed {
	return &WaveSpeed{
		fetcher:  f,
		schemas:  schemas,
		baseURL:  opts.baseURL(DefaultWaveSpeedBaseURL),
		maxPages: opts.maxPages(),
	}
}

func (w *WaveSpeed) Provider() string           { return constant.WaveSpeed }
func (w *WaveSpeed) SupportsServerSearch() bool { return false }

// Fetch reads pages until the upstream stops reporting more, then stores the
// collected schemas. Schemas are only stored when every page succeeded.
func (w *WaveSpeed) Fetch(ctx context.Context, cred discovery.Credential, _ string) ([]*registry.ProviderModel, error) {
	headers := map[string]string{"Authorization": bearer(cred.APIKey)}
	models := make([]*registry.ProviderModel, 0)
	schemas := make(map[string]json.RawMessage)

	_, err := paginate(ctx, constant.WaveSpeed, w.maxPages, func(ctx context.Context, cursor string) (string, error) {
		page := 1
		if cursor != "" {
			n, errAtoi := strconv.Atoi(cursor)
			if errAtoi != nil {
				return "", fmt.Errorf("invalid page cursor %q", cursor)
			}
			page = n
		}
		url := fmt.Sprintf("%s/api/v3/models?page=%d&page_size=%d", w.baseURL, page, waveSpeedPageSize)
		body, err := w.fetcher.FetchWithHeaders(ctx, url, headers)
		if err != nil {
			return "", err
		}
		root, err := parseBody(constant.WaveSpeed, body)
		if err != nil {
			return "", err
		}
		for _, item := range waveSpeedItems(root) {
			m := w.normalize(item)
			if m == nil {
				continue
			}
			models = append(models, m)
			if schema, ok := firstRaw(item, "api_schema", "schema", "input_schema", "parameters"); ok {
				schemas[m.ID] = json.RawMessage(schema.Raw)
			}
		}
		return waveSpeedNextPage(root, page), nil
	})
	if err != nil {
		return nil, err
	}

	if w.schemas != nil && len(schemas) > 0 {
		w.schemas.BulkSetSchemas(schemas)
		log.WithField("provider", constant.WaveSpeed).WithField("schemas", len(schemas)).Debug("Stored model parameter schemas")
	}
	return models, nil
}

// waveSpeedItems finds the model array. The API has answered with several
// envelopes over time; the first array found wins.
func waveSpeedItems(root gjson.Result) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	for _, path := range []string{"data.items", "data.models", "data", "models", "items"} {
		if v := root.Get(path); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

// waveSpeedNextPage returns the next page number as a cursor, or "" on the last page.
func waveSpeedNextPage(root gjson.Result, page int) string {
	if next := root.Get("data.next_page"); next.Exists() && next.Int() > int64(page) {
		return strconv.FormatInt(next.Int(), 10)
	}
	if more, ok := firstRaw(root, "data.has_more", "has_more"); ok && more.Bool() {
		return strconv.Itoa(page + 1)
	}
	if total, ok := firstRaw(root, "data.total_pages", "total_pages"); ok && total.Int() > int64(page) {
		return strconv.Itoa(page + 1)
	}
	return ""
}

func (w *WaveSpeed) normalize(item gjson.Result) *registry.ProviderModel {
	id := firstString(item, "model_id", "id", "modelId", "name")
	if id == "" {
		return nil
	}
	name := firstString(item, "name", "display_name", "title", "model_id")
	if name == "" {
		name = id
	}
	description := firstString(item, "description", "desc")
	hints := capability.Hints{
		Type:     firstString(item, "type", "task_type"),
		Category: firstString(item, "category"),
	}

	m := &registry.ProviderModel{
		ID:           id,
		Name:         name,
		Description:  registry.Description(description),
		Provider:     constant.WaveSpeed,
		Capabilities: capability.InferFrom(hints, id, name, description, hints.Category),
		CoverImage:   firstString(item, "cover_url", "thumbnail", "cover_image", "image"),
	}
	if price := firstNumber(item, "base_price", "price"); price > 0 {
		m.Pricing = &registry.Pricing{Type: registry.PerRun, Amount: price, Currency: "USD"}
	}
	return m
}
