// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package discovery

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/traylinx/modelgateway/internal/discovery/fetcher"
	"github.com/traylinx/modelgateway/internal/registry"
)

// PreconditionError reports a request that cannot be served with the supplied
// credentials. No provider is contacted when it is returned.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string { return e.Message }

// StatusCode returns the HTTP status for this error.
func (e *PreconditionError) StatusCode() int { return http.StatusBadRequest }

// AdapterError is a provider-scoped failure. It never aborts sibling providers.
type AdapterError struct {
	Provider string
	// Status is the upstream HTTP status, or zero when the failure was not an HTTP response.
	Status  int
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *AdapterError) Unwrap() error { return e.Err }

// NewAdapterError tags err with its provider. Upstream status failures are rendered
// as "<Provider> API error: <status>".
func NewAdapterError(provider string, err error) *AdapterError {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		if adapterErr.Provider == "" {
			adapterErr.Provider = provider
		}
		return adapterErr
	}

	name := registry.ProviderNames[provider]
	if name == "" {
		name = provider
	}
	out := &AdapterError{Provider: provider, Err: err}
	var statusErr *fetcher.StatusError
	if errors.As(err, &statusErr) {
		out.Status = statusErr.StatusCode
		out.Message = fmt.Sprintf("%s API error: %d %s", name, statusErr.StatusCode, http.StatusText(statusErr.StatusCode))
		return out
	}
	if err != nil {
		out.Message = fmt.Sprintf("%s: %v", name, err)
	}
	return out
}

// AggregateFailureError is returned when every queried network provider failed
// and no model was gathered from any source.
type AggregateFailureError struct {
	Errors []string
}

func (e *AggregateFailureError) Error() string {
	return "All providers failed: " + strings.Join(e.Errors, "; ")
}

// StatusCode returns the HTTP status for this error.
func (e *AggregateFailureError) StatusCode() int { return http.StatusInternalServerError }
