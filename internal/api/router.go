// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/newsshelf/recservice/internal/metrics"
)

// Router builds the HTTP routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)

	if len(s.cfg.Server.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.Server.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	// Operational endpoints stay outside the rate limit.
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1/recommendations", func(r chi.Router) {
		if s.cfg.Server.RateLimitReqs > 0 {
			r.Use(httprate.LimitByIP(s.cfg.Server.RateLimitReqs, s.cfg.Server.RateLimitWindow))
		}
		r.Use(metricsMiddleware)

		// The static segment wins over the wildcard, so the popular
		// route is never shadowed by a user id.
		r.Get("/popular/news", s.handlePopular)
		r.Get("/{userID}", s.handleRecommendations)
		r.Get("/{userID}/interests", s.handleInterests)
	})

	return r
}
