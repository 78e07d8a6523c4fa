// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelgateway/internal/buildinfo"
	"github.com/traylinx/modelgateway/internal/util"
)

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	status := strings.TrimSpace(e.Status)
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Body == "" {
		return fmt.Sprintf("server returned status: %s", status)
	}
	return fmt.Sprintf("server returned status: %s: %s", status, e.Body)
}

// Options configures an HTTPFetcher.
type Options struct {
	// Timeout bounds each request. Zero keeps the 30 second default.
	Timeout time.Duration
	// ProxyURL routes outbound requests through an http, https or socks5 proxy.
	ProxyURL string
}

// HTTPFetcher implements the discovery.Fetcher interface using standard HTTP.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a new fetcher with a default 30-second timeout.
func NewHTTPFetcher() *HTTPFetcher {
	f, _ := NewHTTPFetcherWithOptions(Options{})
	return f
}

// NewHTTPFetcherWithOptions creates a fetcher honouring the given timeout and proxy.
func NewHTTPFetcherWithOptions(opts Options) (*HTTPFetcher, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport, err := newTransport(opts.ProxyURL)
	if err != nil {
		return nil, err
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// Fetch retrieves the content from the given URL.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.FetchWithHeaders(ctx, url, nil)
}

// FetchWithHeaders retrieves the content from the given URL with per-request headers.
// Headers with an empty value are skipped.
func (f *HTTPFetcher) FetchWithHeaders(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "modelgateway/"+buildinfo.Version+" (catalog-discovery)")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br, gzip")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	entry := log.WithField("url", req.URL.Redacted())
	if auth := req.Header.Get("Authorization"); auth != "" {
		entry = entry.WithField("authorization", util.MaskAuthorizationHeader(auth))
	}
	entry.Debug("Fetching upstream catalog")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// decodeBody unwraps a compressed response. Setting Accept-Encoding by hand disables
// the transport's transparent gzip handling, so both encodings are decoded here.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		return zr, nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}
