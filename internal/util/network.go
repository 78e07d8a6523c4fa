// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"net"

	"github.com/gin-gonic/gin"
)

// proxyHeaders mark a request that went through a reverse proxy.
var proxyHeaders = []string{"X-Forwarded-For", "X-Real-IP", "Forwarded"}

// IsLocalhostDirect reports whether the request comes from a loopback address
// without any proxy headers. Proxied requests never count as local.
func IsLocalhostDirect(c *gin.Context) bool {
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return false
	}
	for _, h := range proxyHeaders {
		if c.GetHeader(h) != "" {
			return false
		}
	}
	return true
}

// ClientAllowed applies the management access policy: remote clients are
// accepted only when allowRemote is set.
func ClientAllowed(c *gin.Context, allowRemote bool) bool {
	return allowRemote || IsLocalhostDirect(c)
}
