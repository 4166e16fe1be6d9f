// Package gatewayhttp is the gateway's thin health/status HTTP surface,
// exposing read-only JSON views over the composition root's running
// state. It adapts the teacher's pkg/api chi router and middleware stack,
// trimmed to the unauthenticated status endpoints this domain needs plus
// one JWT-gated control endpoint (spec_full §5).
package gatewayhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coachlink/gateway/internal/logger"
	"github.com/coachlink/gateway/pkg/control/token"
)

// NewRouter builds the chi router serving /health and /api/v1 status
// routes over source. If verifier is non-nil, /api/v1/control requires a
// bearer token carrying the control scope.
func NewRouter(source StatusSource, verifier *token.Verifier, controlFn ControlFunc) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := NewHandler(source)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.Liveness)
		r.Get("/ready", h.Readiness)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/networks", h.Networks)
		r.Get("/features", h.Features)
		r.Get("/entities", h.Entities)
		r.Get("/dispatch", h.Dispatch)

		if controlFn != nil {
			ch := NewControlHandler(controlFn, verifier)
			r.Post("/control", ch.Control)
		}
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug("gateway http request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
