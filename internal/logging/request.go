// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelgateway/internal/constant"
)

// RequestIDKey is the gin context key and log field holding the request id.
const RequestIDKey = "request_id"

// maxInboundIDLength bounds caller-supplied request ids.
const maxInboundIDLength = 64

// RequestID returns the request id stored on c, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// Entry returns a log entry tagged with the request id of c.
func Entry(c *gin.Context) *log.Entry {
	return log.WithField(RequestIDKey, RequestID(c))
}

// GinMiddleware assigns each request an id (honouring an inbound X-Request-ID),
// echoes it back and logs the request once it completes.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(constant.HeaderRequestID)
		if id == "" || len(id) > maxInboundIDLength {
			id = uuid.New().String()[:8]
		}
		c.Set(RequestIDKey, id)
		c.Header(constant.HeaderRequestID, id)

		start := time.Now()
		c.Next()

		entry := Entry(c).
			WithField("status", c.Writer.Status()).
			WithField("latency", time.Since(start).Round(time.Millisecond).String())
		msg := c.Request.Method + " " + c.Request.URL.Path
		switch {
		case c.Writer.Status() >= 500:
			entry.Error(msg)
		case c.Writer.Status() >= 400:
			entry.Warn(msg)
		default:
			entry.Info(msg)
		}
	}
}
