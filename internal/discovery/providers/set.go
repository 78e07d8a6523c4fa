// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package providers

import (
	"time"

	"github.com/traylinx/modelgateway/internal/constant"
	"github.com/traylinx/modelgateway/internal/discovery"
)

// SetOptions configures NewAdapters.
type SetOptions struct {
	// PerProvider holds per-provider overrides, keyed by provider id.
	PerProvider map[string]Options
	// MaxPages applies to every paginated adapter without its own MaxPages.
	MaxPages int
	// ComfyUITimeout bounds the ComfyUI introspection call.
	ComfyUITimeout time.Duration
}

func (o SetOptions) forProvider(id string) Options {
	opts := o.PerProvider[id]
	if opts.MaxPages <= 0 {
		opts.MaxPages = o.MaxPages
	}
	return opts
}

// NewAdapters builds every supported adapter. Schemas discovered by WaveSpeed go to schemas.
func NewAdapters(f discovery.Fetcher, schemas discovery.SchemaSink, opts SetOptions) ([]discovery.Adapter, error) {
	adapters := []discovery.Adapter{
		NewReplicate(f, opts.forProvider(constant.Replicate)),
		NewFal(f, opts.forProvider(constant.Fal)),
		NewWaveSpeed(f, schemas, opts.forProvider(constant.WaveSpeed)),
		NewComfyUI(f, opts.ComfyUITimeout),
	}
	for _, id := range StaticProviders {
		catalog, err := LoadCatalog(id)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, catalog)
	}
	return adapters, nil
}
