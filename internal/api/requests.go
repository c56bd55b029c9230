// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/newsshelf/recservice/internal/config"
	"github.com/newsshelf/recservice/internal/validation"
)

// RecommendationParams are the ranking knobs a client may override per
// request. Bounds match the engine's contract: count within the
// configured maximum, threshold within [0,1]. The count ceiling comes
// from config, so it is enforced in parseRecommendationParams rather
// than a struct tag.
type RecommendationParams struct {
	Count     int     `validate:"min=1"`
	Threshold float64 `validate:"gte=0,lte=1"`
}

// parseRecommendationParams reads count and threshold from the query
// string, falling back to configured defaults.
func parseRecommendationParams(r *http.Request, cfg config.RecommendConfig) (*RecommendationParams, error) {
	params := &RecommendationParams{
		Count:     cfg.DefaultCount,
		Threshold: cfg.DefaultThreshold,
	}

	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("count must be an integer")
		}
		params.Count = n
	}
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("threshold must be a number")
		}
		params.Threshold = f
	}

	if err := validation.ValidateStruct(params); err != nil {
		return nil, err
	}
	if params.Count > cfg.MaxCount {
		return nil, fmt.Errorf("count must be at most %d", cfg.MaxCount)
	}
	return params, nil
}

// parseUserID reads the userID path parameter.
func parseUserID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("user id must be a positive integer")
	}
	return id, nil
}
