// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

// Package recommend implements the ranking core: profile-based
// personalized recommendations with a popularity fallback, plus the
// per-category interest breakdown.
//
// The Store interface decouples the engine from the database package so
// tests can drive it with in-memory fixtures.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/newsshelf/recservice/internal/config"
	"github.com/newsshelf/recservice/internal/database"
	"github.com/newsshelf/recservice/internal/metrics"
	"github.com/newsshelf/recservice/internal/models"
	"github.com/newsshelf/recservice/internal/vector"
)

// Strategy names the ranking path that produced a recommendation list.
type Strategy string

const (
	StrategyPersonalized Strategy = "personalized"
	StrategyPopular      Strategy = "popular"
)

// Store defines the storage operations the engine depends on.
// Implemented by database.DB.
type Store interface {
	// UserActivitySince returns the user's activity newer than since,
	// most recent first. Empty slice when there is none.
	UserActivitySince(ctx context.Context, userID int64, since time.Time) ([]models.Activity, error)

	// ArticleVectors returns decoded description vectors keyed by article
	// id. Articles without a usable vector are omitted.
	ArticleVectors(ctx context.Context, ids []int64) (map[int64][]float32, error)

	// CandidateArticles returns every article with a description vector,
	// excluding the given ids.
	CandidateArticles(ctx context.Context, exclude []int64) ([]database.Candidate, error)

	// PopularArticles returns up to n articles by view count descending,
	// id ascending on ties.
	PopularArticles(ctx context.Context, n int) ([]models.Article, error)

	// ArticlesByIDs returns article metadata keyed by id.
	ArticlesByIDs(ctx context.Context, ids []int64) (map[int64]models.Article, error)

	// CategoryCounts aggregates the user's full activity history per
	// category, distinct articles only, count descending.
	CategoryCounts(ctx context.Context, userID int64) ([]database.CategoryCount, error)
}

// Engine produces recommendations. Stateless between calls; safe for
// concurrent use.
type Engine struct {
	store  Store
	cfg    config.RecommendConfig
	logger zerolog.Logger

	// now is swappable so tests can pin the activity window.
	now func() time.Time
}

// NewEngine creates a recommendation engine backed by the given store.
func NewEngine(store Store, cfg config.RecommendConfig, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "recommend").Logger(),
		now:    time.Now,
	}
}

// windowStart returns the lower bound of the activity window.
func (e *Engine) windowStart() time.Time {
	return e.now().UTC().AddDate(0, 0, -e.cfg.WindowDays)
}

// Recommend returns up to count articles for the user, scored against the
// profile built from their recent view history. Users with no usable
// history fall back to the popularity ranking. An empty personalized
// result after threshold filtering is returned as-is, not replaced by the
// fallback.
func (e *Engine) Recommend(ctx context.Context, userID int64, count int, threshold float64) ([]models.Recommendation, Strategy, error) {
	activities, err := e.store.UserActivitySince(ctx, userID, e.windowStart())
	if err != nil {
		return nil, "", fmt.Errorf("load user activity: %w", err)
	}
	if len(activities) == 0 {
		e.logger.Debug().Int64("user_id", userID).Msg("No recent activity, falling back to popular")
		recs, err := e.Popular(ctx, count)
		if err != nil {
			return nil, "", err
		}
		metrics.RecommendationsServed.WithLabelValues(string(StrategyPopular)).Inc()
		return recs, StrategyPopular, nil
	}

	viewedIDs := distinctNewsIDs(activities)
	vectors, err := e.store.ArticleVectors(ctx, viewedIDs)
	if err != nil {
		return nil, "", fmt.Errorf("load profile vectors: %w", err)
	}
	if len(vectors) == 0 {
		e.logger.Debug().Int64("user_id", userID).
			Int("viewed", len(viewedIDs)).
			Msg("No vectors for viewed articles, falling back to popular")
		recs, err := e.Popular(ctx, count)
		if err != nil {
			return nil, "", err
		}
		metrics.RecommendationsServed.WithLabelValues(string(StrategyPopular)).Inc()
		return recs, StrategyPopular, nil
	}

	profile, err := meanOfVectors(vectors)
	if err != nil {
		return nil, "", fmt.Errorf("build user profile: %w", err)
	}

	candidates, err := e.store.CandidateArticles(ctx, viewedIDs)
	if err != nil {
		return nil, "", fmt.Errorf("load candidates: %w", err)
	}

	scored := e.scoreCandidates(profile, candidates, threshold)
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].id < scored[j].id
	})
	if len(scored) > count {
		scored = scored[:count]
	}

	recs, err := e.attachMetadata(ctx, scored)
	if err != nil {
		return nil, "", err
	}

	metrics.RecommendationsServed.WithLabelValues(string(StrategyPersonalized)).Inc()
	e.logger.Debug().Int64("user_id", userID).
		Int("candidates", len(candidates)).
		Int("returned", len(recs)).
		Msg("Personalized recommendations computed")
	return recs, StrategyPersonalized, nil
}

// Popular returns up to count articles by view count. Scores are
// normalized against the most-viewed article: min(1, views/max). A
// catalog with zero views everywhere scores every article 0.
func (e *Engine) Popular(ctx context.Context, count int) ([]models.Recommendation, error) {
	articles, err := e.store.PopularArticles(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("load popular articles: %w", err)
	}

	var maxViews int64
	for _, a := range articles {
		if a.ViewCount > maxViews {
			maxViews = a.ViewCount
		}
	}

	recs := make([]models.Recommendation, 0, len(articles))
	for _, a := range articles {
		score := 0.0
		if maxViews > 0 {
			score = float64(a.ViewCount) / float64(maxViews)
			if score > 1 {
				score = 1
			}
		}
		recs = append(recs, models.Recommendation{Article: a, Score: score})
	}
	return recs, nil
}

// Interests returns the user's per-category weights over their entire
// recorded history. Unlike ranking, interests carry no time window, and
// repeat views of one article count it once. Weights sum to 1.0 across
// categories with any activity; a user without activity gets an empty
// map.
func (e *Engine) Interests(ctx context.Context, userID int64) (*models.InterestsResponse, error) {
	counts, err := e.store.CategoryCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load category counts: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c.Count
	}

	interests := make(map[string]float64, len(counts))
	for _, c := range counts {
		interests[c.Category] = float64(c.Count) / float64(total)
	}

	return &models.InterestsResponse{
		UserID:          userID,
		Interests:       interests,
		TotalActivities: int(total),
	}, nil
}

type scoredCandidate struct {
	id    int64
	score float64
}

// scoreCandidates scores every candidate against the profile, keeping
// those at or above the threshold. Candidates the scorer rejects
// (dimension mismatch, zero vector) are skipped, never fatal.
func (e *Engine) scoreCandidates(profile []float32, candidates []database.Candidate, threshold float64) []scoredCandidate {
	scored := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		score, err := vector.Cosine(profile, c.Vector)
		if err != nil {
			e.logger.Debug().Err(err).Int64("news_id", c.ID).Msg("Skipping unscorable candidate")
			continue
		}
		if score >= threshold {
			scored = append(scored, scoredCandidate{id: c.ID, score: score})
		}
	}
	return scored
}

// attachMetadata resolves article metadata for the scored ids, preserving
// score order. Ids whose metadata has vanished are dropped.
func (e *Engine) attachMetadata(ctx context.Context, scored []scoredCandidate) ([]models.Recommendation, error) {
	ids := make([]int64, len(scored))
	for i, s := range scored {
		ids[i] = s.id
	}
	byID, err := e.store.ArticlesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load recommendation metadata: %w", err)
	}

	recs := make([]models.Recommendation, 0, len(scored))
	for _, s := range scored {
		a, ok := byID[s.id]
		if !ok {
			e.logger.Warn().Int64("news_id", s.id).Msg("Scored article missing from catalog, dropping")
			continue
		}
		recs = append(recs, models.Recommendation{Article: a, Score: s.score})
	}
	return recs, nil
}

// distinctNewsIDs collapses the activity list to unique article ids,
// first-seen order. Duplicate views of one article contribute a single
// vector to the profile.
func distinctNewsIDs(activities []models.Activity) []int64 {
	seen := make(map[int64]struct{}, len(activities))
	ids := make([]int64, 0, len(activities))
	for _, a := range activities {
		if _, ok := seen[a.NewsID]; ok {
			continue
		}
		seen[a.NewsID] = struct{}{}
		ids = append(ids, a.NewsID)
	}
	return ids
}

// meanOfVectors averages the map's vectors elementwise. Ordering of map
// iteration does not matter: addition is commutative and any ragged
// dimensions surface as an error from Mean.
func meanOfVectors(vectors map[int64][]float32) ([]float32, error) {
	vs := make([][]float32, 0, len(vectors))
	for _, v := range vectors {
		vs = append(vs, v)
	}
	return vector.Mean(vs)
}
