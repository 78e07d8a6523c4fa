// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package providers contains one discovery.Adapter per upstream model catalog.
// Each adapter knows its provider's pagination and response shapes and turns raw
// entries into registry.ProviderModel values.
package providers

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/traylinx/modelgateway/internal/constant"
	"github.com/traylinx/modelgateway/internal/discovery"
)

// Options configures a network adapter.
type Options struct {
	// BaseURL overrides the provider's public API root.
	BaseURL string
	// MaxPages caps pagination. Values <= 0 apply constant.DefaultMaxPages.
	MaxPages int
}

func (o Options) maxPages() int {
	if o.MaxPages <= 0 {
		return constant.DefaultMaxPages
	}
	return o.MaxPages
}

func (o Options) baseURL(fallback string) string {
	base := strings.TrimSpace(o.BaseURL)
	if base == "" {
		base = fallback
	}
	return strings.TrimRight(base, "/")
}

// pageFunc fetches the page identified by cursor ("" for the first page) and
// returns the cursor of the next page, or "" when there is none.
type pageFunc func(ctx context.Context, cursor string) (next string, err error)

// paginate walks pages until the upstream reports no next page or maxPages pages
// were read. Any page error aborts the walk.
func paginate(ctx context.Context, provider string, maxPages int, fetchPage pageFunc) (int, error) {
	cursor := ""
	pages := 0
	for pages < maxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		next, err := fetchPage(ctx, cursor)
		if err != nil {
			return pages, err
		}
		pages++
		if next == "" {
			return pages, nil
		}
		if next == cursor {
			log.WithField("provider", provider).Warn("Upstream returned the same cursor twice, stopping pagination")
			return pages, nil
		}
		cursor = next
	}
	log.WithField("provider", provider).WithField("pages", pages).Warn("Reached page cap, remaining pages skipped")
	return pages, nil
}

// firstString returns the first non-empty string among the given gjson paths.
// The order of paths is the documented precedence for that field.
func firstString(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := strings.TrimSpace(item.Get(p).String()); v != "" {
			return v
		}
	}
	return ""
}

// firstNumber returns the first positive number among the given gjson paths.
func firstNumber(item gjson.Result, paths ...string) float64 {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() && v.Float() > 0 {
			return v.Float()
		}
	}
	return 0
}

// firstRaw returns the first existing, non-null JSON value among the given paths.
func firstRaw(item gjson.Result, paths ...string) (gjson.Result, bool) {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// parseBody validates a JSON payload before it is walked with gjson.
func parseBody(provider string, body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("malformed %s response", provider)
	}
	return gjson.ParseBytes(body), nil
}

// bearer formats an Authorization header value, or "" without a key.
func bearer(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	return "Bearer " + key
}

var _ discovery.Adapter = (*Replicate)(nil)
var _ discovery.Adapter = (*Fal)(nil)
var _ discovery.Adapter = (*WaveSpeed)(nil)
var _ discovery.Adapter = (*ComfyUI)(nil)
var _ discovery.CatalogAdapter = (*Catalog)(nil)
