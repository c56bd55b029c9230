// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsshelf/recservice/internal/config"
	"github.com/newsshelf/recservice/internal/models"
	"github.com/newsshelf/recservice/internal/recommend"
	"github.com/newsshelf/recservice/internal/validation"
)

// Recommender is the engine surface the handlers consume.
type Recommender interface {
	Recommend(ctx context.Context, userID int64, count int, threshold float64) ([]models.Recommendation, recommend.Strategy, error)
	Popular(ctx context.Context, count int) ([]models.Recommendation, error)
	Interests(ctx context.Context, userID int64) (*models.InterestsResponse, error)
}

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the handler dependencies.
type Server struct {
	engine Recommender
	db     Pinger
	cfg    *config.Config
	logger zerolog.Logger
}

// NewServer creates the API server.
func NewServer(engine Recommender, db Pinger, cfg *config.Config, logger zerolog.Logger) *Server {
	return &Server{
		engine: engine,
		db:     db,
		cfg:    cfg,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// popularListResponse is the API shape for the anonymous popular list.
type popularListResponse struct {
	Recommendations []models.RecommendationResponse `json:"recommendations"`
	TotalCount      int                             `json:"total_count"`
}

// handleRecommendations serves GET /api/v1/recommendations/{userID}.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := parseUserID(r)
	if err != nil {
		rw.BadRequest(err.Error(), nil)
		return
	}
	params, err := parseRecommendationParams(r, s.cfg.Recommend)
	if err != nil {
		rw.BadRequest(err.Error(), validationDetails(err))
		return
	}

	recs, strategy, err := s.engine.Recommend(r.Context(), userID, params.Count, params.Threshold)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Recommendation request failed")
		rw.ServiceUnavailable("recommendation storage unavailable")
		return
	}

	s.logger.Debug().
		Int64("user_id", userID).
		Str("strategy", string(strategy)).
		Int("count", len(recs)).
		Msg("Recommendations served")
	rw.Success(toListResponse(userID, recs))
}

// handleInterests serves GET /api/v1/recommendations/{userID}/interests.
func (s *Server) handleInterests(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID, err := parseUserID(r)
	if err != nil {
		rw.BadRequest(err.Error(), nil)
		return
	}

	interests, err := s.engine.Interests(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Interests request failed")
		rw.ServiceUnavailable("recommendation storage unavailable")
		return
	}
	rw.Success(interests)
}

// handlePopular serves GET /api/v1/recommendations/popular/news.
func (s *Server) handlePopular(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	params, err := parseRecommendationParams(r, s.cfg.Recommend)
	if err != nil {
		rw.BadRequest(err.Error(), validationDetails(err))
		return
	}

	recs, err := s.engine.Popular(r.Context(), params.Count)
	if err != nil {
		s.logger.Error().Err(err).Msg("Popular request failed")
		rw.ServiceUnavailable("recommendation storage unavailable")
		return
	}

	responses := make([]models.RecommendationResponse, 0, len(recs))
	for _, rec := range recs {
		responses = append(responses, rec.ToResponse())
	}
	rw.Success(popularListResponse{
		Recommendations: responses,
		TotalCount:      len(responses),
	})
}

// handleHealth serves GET /health. Reports 503 when storage is down.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Health check failed")
		rw.ServiceUnavailable("database unreachable")
		return
	}
	rw.Success(map[string]string{"status": "ok"})
}

func toListResponse(userID int64, recs []models.Recommendation) models.RecommendationsListResponse {
	responses := make([]models.RecommendationResponse, 0, len(recs))
	for _, rec := range recs {
		responses = append(responses, rec.ToResponse())
	}
	return models.RecommendationsListResponse{
		UserID:          userID,
		Recommendations: responses,
		TotalCount:      len(responses),
	}
}

// validationDetails extracts per-field details when the error carries
// them.
func validationDetails(err error) interface{} {
	if reqErr, ok := err.(*validation.RequestError); ok {
		return reqErr.Fields
	}
	return nil
}
