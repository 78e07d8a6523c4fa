// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package capability infers model capabilities from free-text model metadata.
// Adapters feed it provider-specific text (name, description and, for structured
// providers, the upstream category or type); it answers with tags from the closed
// registry.Capability set.
package capability

import (
	"strings"

	"github.com/traylinx/modelgateway/internal/registry"
)

// Hints carries structured metadata some providers expose next to free text.
type Hints struct {
	Category string
	Type     string
}

// Rule is one entry of the ordered classification table.
// Tags returns the tags produced when Match succeeds; Terminal stops evaluation.
type Rule struct {
	Name     string
	Match    func(text string, hints Hints) bool
	Tags     func(text string) []registry.Capability
	Terminal bool
}

var (
	threeDKeywords       = []string{"3d", "mesh", "tripo", "triposr", "hunyuan3d", "instant-mesh", "point-e", "shap-e"}
	imageInputKeywords   = []string{"image", "img", "photo"}
	videoKeywords        = []string{"video", "animate", "motion", "luma", "kling", "minimax", "wan"}
	imageToVideoKeywords = []string{"img2vid", "image-to-video", "i2v"}
	imageEditKeywords    = []string{"img2img", "image-to-image", "inpaint", "controlnet", "upscale", "restore", "edit", "kontext"}
)

// rules is evaluated top to bottom. The first terminal match wins the primary axis;
// non-terminal rules only add secondary tags.
var rules = []Rule{
	{
		Name: "3d",
		Match: func(text string, hints Hints) bool {
			return containsAny(text, threeDKeywords) || strings.EqualFold(hints.Category, "3d")
		},
		Tags: func(text string) []registry.Capability {
			if containsAny(text, imageInputKeywords) {
				return []registry.Capability{registry.ImageTo3D}
			}
			return []registry.Capability{registry.TextTo3D}
		},
		Terminal: true,
	},
	{
		Name: "video",
		Match: func(text string, hints Hints) bool {
			return containsAny(text, videoKeywords) || strings.Contains(strings.ToLower(hints.Category), "video")
		},
		Tags: func(text string) []registry.Capability {
			if containsAny(text, imageToVideoKeywords) {
				return []registry.Capability{registry.ImageToVideo}
			}
			return []registry.Capability{registry.TextToVideo}
		},
		Terminal: true,
	},
	{
		Name:  "image",
		Match: func(string, Hints) bool { return true },
		Tags: func(string) []registry.Capability {
			return []registry.Capability{registry.TextToImage}
		},
	},
	{
		Name:  "image-edit",
		Match: func(text string, _ Hints) bool { return containsAny(text, imageEditKeywords) },
		Tags: func(string) []registry.Capability {
			return []registry.Capability{registry.ImageToImage}
		},
	},
}

// Rules returns a copy of the classification table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Infer classifies a model. It never returns an empty slice and never panics.
func Infer(searchableText string, hints Hints) []registry.Capability {
	text := strings.ToLower(searchableText)
	if hints.Type != "" {
		text += " " + strings.ToLower(hints.Type)
	}

	var tags []registry.Capability
	for _, rule := range rules {
		if !rule.Match(text, hints) {
			continue
		}
		tags = append(tags, rule.Tags(text)...)
		if rule.Terminal {
			break
		}
	}
	tags = Normalize(tags)
	if len(tags) == 0 {
		return []registry.Capability{registry.TextToImage}
	}
	return tags
}

// InferFrom joins the non-empty parts with spaces and classifies the result.
func InferFrom(hints Hints, parts ...string) []registry.Capability {
	return Infer(Join(parts...), hints)
}

// Join concatenates the non-empty parts with single spaces.
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Normalize drops unknown and duplicate tags while keeping first-seen order.
func Normalize(tags []registry.Capability) []registry.Capability {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[registry.Capability]struct{}, len(tags))
	out := make([]registry.Capability, 0, len(tags))
	for _, tag := range tags {
		parsed, ok := registry.ParseCapability(string(tag))
		if !ok {
			continue
		}
		if _, dup := seen[parsed]; dup {
			continue
		}
		seen[parsed] = struct{}{}
		out = append(out, parsed)
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
