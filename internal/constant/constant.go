// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package constant defines provider name constants used throughout the gateway.
// These constants identify the upstream model catalogs, the request headers that
// carry per-request credentials, and the environment variables used as defaults.
package constant

const (
	// Gemini represents the Google Gemini image provider identifier.
	Gemini = "gemini"

	// Replicate represents the Replicate provider identifier.
	Replicate = "replicate"

	// Fal represents the fal.ai provider identifier.
	Fal = "fal"

	// Kie represents the Kie.ai provider identifier.
	Kie = "kie"

	// WaveSpeed represents the WaveSpeed AI provider identifier.
	WaveSpeed = "wavespeed"

	// XAI represents the xAI provider identifier.
	XAI = "xai"

	// BFL represents the Black Forest Labs provider identifier.
	BFL = "bfl"

	// ComfyUI represents a self-hosted ComfyUI server.
	ComfyUI = "comfyui"
)

// Credential headers. A header always overrides the configured default.
const (
	HeaderGeminiKey     = "X-Gemini-Key"
	HeaderReplicateKey  = "X-Replicate-Key"
	HeaderFalKey        = "X-Fal-Key"
	HeaderKieKey        = "X-Kie-Key"
	HeaderWaveSpeedKey  = "X-WaveSpeed-Key"
	HeaderXAIKey        = "X-XAI-Key"
	HeaderBFLKey        = "X-BFL-Key"
	HeaderComfyUIServer = "X-ComfyUI-Server"

	// HeaderManagementKey carries the plaintext management secret.
	HeaderManagementKey = "X-Management-Key"

	// HeaderRequestID is echoed back on every response.
	HeaderRequestID = "X-Request-ID"
)

// DefaultMaxPages bounds pagination loops for every paginated adapter.
const DefaultMaxPages = 15

// ComfyUITimeoutSeconds is the fixed upper bound for the ComfyUI introspection call.
const ComfyUITimeoutSeconds = 10

// Environment variables consulted when no header and no config value is present.
const (
	EnvGeminiKey     = "GEMINI_API_KEY"
	EnvReplicateKey  = "REPLICATE_API_TOKEN"
	EnvFalKey        = "FAL_KEY"
	EnvKieKey        = "KIE_API_KEY"
	EnvWaveSpeedKey  = "WAVESPEED_API_KEY"
	EnvXAIKey        = "XAI_API_KEY"
	EnvBFLKey        = "BFL_API_KEY"
	EnvComfyUIServer = "COMFYUI_SERVER_URL"
)
