// Safeloop - Fault-Isolating Task Dispatch Loop
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safeloop

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/tomtom215/safeloop/internal/logging"
)

// ChiMiddlewareConfig holds configuration for Chi middleware factories.
type ChiMiddlewareConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
	RateLimitKeyFunc  httprate.KeyFunc
	RateLimitOnLimit  http.HandlerFunc
}

// DefaultChiMiddlewareConfig returns the default configuration.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RateLimitDisabled: false,
	}
}

// ChiMiddleware provides Chi-compatible middleware factories.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
}

// NewChiMiddleware creates a new Chi middleware factory with the given configuration.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}
	return &ChiMiddleware{config: config}
}

// noop passes requests through unchanged.
func noop(next http.Handler) http.Handler {
	return next
}

// RateLimit returns an httprate limiter keyed by client IP, or a
// pass-through when rate limiting is disabled.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return noop
	}

	keyFunc := m.config.RateLimitKeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}

	onLimit := m.config.RateLimitOnLimit
	if onLimit == nil {
		onLimit = rateLimited
	}

	return httprate.Limit(
		m.config.RateLimitRequests,
		m.config.RateLimitWindow,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(onLimit),
	)
}

// RateLimitOps returns a permissive limiter for health and metrics scrapes.
func (m *ChiMiddleware) RateLimitOps() func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return noop
	}
	return httprate.LimitByIP(m.config.RateLimitRequests*10, m.config.RateLimitWindow)
}

// rateLimited answers a request rejected by the limiter with the API error body.
func rateLimited(w http.ResponseWriter, r *http.Request) {
	logging.Ctx(r.Context()).Debug().Str("path", sanitizeLogValue(r.URL.Path)).Msg("Request rate limited")
	respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)
}
