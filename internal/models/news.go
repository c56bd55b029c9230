// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

// Package models defines the core data types shared across RecService:
// the news catalog entry, the append-only activity record, and the
// transient recommendation result.
package models

import "time"

// Article is a news catalog entry. Articles are created by catalog import
// and never deleted by this service. Vector blobs are little-endian
// float32 arrays attached post-hoc by the embedding backfill; the
// EmbeddingGenerated flag must stay consistent with vector presence.
type Article struct {
	ID               int64     `json:"id"`
	Category         string    `json:"category"`
	Title            string    `json:"title"`
	ShortDescription string    `json:"short_description,omitempty"`
	Authors          string    `json:"authors,omitempty"`
	Link             string    `json:"link"`
	Date             time.Time `json:"date"`

	// ViewCount is the monotonic engagement counter used for popularity
	// ranking. It never decreases.
	ViewCount int64 `json:"view_count"`

	// Serialized embedding blobs; nil when not yet generated.
	TitleVector       []byte `json:"-"`
	DescriptionVector []byte `json:"-"`

	EmbeddingGenerated bool `json:"-"`
}

// ActivityKind is the closed set of recorded interaction kinds.
// Only ActivityView is weighed by the recommendation engine; other kinds
// may be recorded but are ignored by ranking.
type ActivityKind string

const (
	ActivityView   ActivityKind = "view"
	ActivityLike   ActivityKind = "like"
	ActivityShare  ActivityKind = "share"
	ActivitySearch ActivityKind = "search"
)

// Activity is one append-only record of a user interacting with an
// article. Records are immutable once written; duplicates are legal and
// accumulate (at-least-once delivery makes them unavoidable).
type Activity struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user_id"`
	NewsID    int64        `json:"news_id"`
	Kind      ActivityKind `json:"activity_type"`
	Timestamp time.Time    `json:"timestamp"`
}

// Recommendation pairs an article with its similarity (or popularity)
// score in [0,1]. Never persisted.
type Recommendation struct {
	Article Article
	Score   float64
}

// RecommendationResponse is the API shape for a single recommendation.
type RecommendationResponse struct {
	NewsID           int64   `json:"news_id"`
	Title            string  `json:"title"`
	Category         string  `json:"category"`
	ShortDescription string  `json:"short_description,omitempty"`
	Authors          string  `json:"authors,omitempty"`
	Link             string  `json:"link"`
	SimilarityScore  float64 `json:"similarity_score"`
}

// RecommendationsListResponse is the API shape for a recommendation list.
type RecommendationsListResponse struct {
	UserID          int64                    `json:"user_id"`
	Recommendations []RecommendationResponse `json:"recommendations"`
	TotalCount      int                      `json:"total_count"`
}

// InterestsResponse is the API shape for category interest weights.
// Weights sum to 1.0 over categories with any recorded activity.
type InterestsResponse struct {
	UserID          int64              `json:"user_id"`
	Interests       map[string]float64 `json:"interests"`
	TotalActivities int                `json:"total_activities"`
}

// ToResponse converts a recommendation to its API shape.
func (r Recommendation) ToResponse() RecommendationResponse {
	return RecommendationResponse{
		NewsID:           r.Article.ID,
		Title:            r.Article.Title,
		Category:         r.Article.Category,
		ShortDescription: r.Article.ShortDescription,
		Authors:          r.Article.Authors,
		Link:             r.Article.Link,
		SimilarityScore:  r.Score,
	}
}
