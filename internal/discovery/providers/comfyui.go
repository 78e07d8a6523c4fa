// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package providers

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/traylinx/modelgateway/internal/capability"
	"github.com/traylinx/modelgateway/internal/constant"
	"github.com/traylinx/modelgateway/internal/discovery"
	"github.com/traylinx/modelgateway/internal/registry"
)

const (
	comfyCheckpointNode  = "CheckpointLoaderSimple"
	comfyCheckpointInput = "ckpt_name"
)

var comfyExtensions = []string{".safetensors", ".ckpt", ".pt", ".bin"}

// errNoCheckpoints is returned when /object_info lacks the checkpoint enumeration.
var errNoCheckpoints = errors.New("ComfyUI object_info has no " + comfyCheckpointNode + "." + comfyCheckpointInput + " list")

// ComfyUI lists the checkpoints installed on a self-hosted ComfyUI server.
type ComfyUI struct {
	fetcher discovery.Fetcher
	timeout time.Duration
}

// NewComfyUI creates a ComfyUI adapter. A non-positive timeout applies constant.ComfyUITimeoutSeconds.
func NewComfyUI(f discovery.Fetcher, timeout time.Duration) *ComfyUI {
	if timeout <= 0 {
		timeout = constant.ComfyUITimeoutSeconds * time.Second
	}
	return &ComfyUI{fetcher: f, timeout: timeout}
}

func (c *ComfyUI) Provider() string           { return constant.ComfyUI }
func (c *ComfyUI) SupportsServerSearch() bool { return false }

// Fetch makes one /object_info call against cred.ServerURL. There is no retry.
func (c *ComfyUI) Fetch(ctx context.Context, cred discovery.Credential, _ string) ([]*registry.ProviderModel, error) {
	server := NormalizeServerURL(cred.ServerURL)
	if server == "" {
		return nil, errors.New("ComfyUI server URL is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.fetcher.Fetch(ctx, server+"/object_info")
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("request to %s timed out after %s", server, c.timeout)
		}
		return nil, err
	}

	names, err := checkpointNames(body)
	if err != nil {
		return nil, err
	}

	models := make([]*registry.ProviderModel, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		if raw = strings.TrimSpace(raw); raw == "" {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		name := CheckpointDisplayName(raw)
		models = append(models, &registry.ProviderModel{
			ID:           raw,
			Name:         name,
			Description:  registry.Description("Local checkpoint: " + raw),
			Provider:     constant.ComfyUI,
			Capabilities: capability.InferFrom(capability.Hints{}, name),
		})
	}
	return models, nil
}

// checkpointNames extracts input.required.ckpt_name[0] of the checkpoint loader node.
// Other nodes are not inspected; custom nodes use arbitrary input shapes.
func checkpointNames(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("malformed ComfyUI object_info: invalid JSON")
	}
	list := gjson.GetBytes(body, comfyCheckpointNode+".input.required."+comfyCheckpointInput+".0")
	if !list.IsArray() {
		return nil, errNoCheckpoints
	}
	var names []string
	list.ForEach(func(_, item gjson.Result) bool {
		if item.Type == gjson.String {
			names = append(names, item.String())
		}
		return true
	})
	return names, nil
}

// CheckpointDisplayName strips directories and a known weight-file extension.
func CheckpointDisplayName(file string) string {
	name := path.Base(strings.ReplaceAll(file, "\\", "/"))
	lower := strings.ToLower(name)
	for _, ext := range comfyExtensions {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// NormalizeServerURL adds a missing http scheme and drops trailing slashes.
func NormalizeServerURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	return strings.TrimRight(s, "/")
}
