// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package database

import (
	"context"
	"testing"
	"time"

	"github.com/newsshelf/recservice/internal/models"
	"github.com/newsshelf/recservice/internal/vector"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func insertTestArticle(t *testing.T, db *DB, category, title, link string, descVec []float32) int64 {
	t.Helper()
	a := &models.Article{
		Category:           category,
		Title:              title,
		ShortDescription:   title + " description",
		Link:               link,
		Date:               time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		DescriptionVector:  vector.Encode(descVec),
		EmbeddingGenerated: len(descVec) > 0,
	}
	if err := db.InsertArticle(context.Background(), a); err != nil {
		t.Fatalf("InsertArticle() error = %v", err)
	}
	if a.ID == 0 {
		t.Fatal("InsertArticle() did not assign an id")
	}
	return a.ID
}

func TestInsertArticleDuplicateLink(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	insertTestArticle(t, db, "TECH", "First", "https://example.com/a", nil)

	dup := &models.Article{
		Category: "TECH",
		Title:    "Second",
		Link:     "https://example.com/a",
		Date:     time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC),
	}
	if err := db.InsertArticle(ctx, dup); err != nil {
		t.Fatalf("InsertArticle(duplicate link) error = %v", err)
	}

	articles, err := db.PopularArticles(ctx, 10)
	if err != nil {
		t.Fatalf("PopularArticles() error = %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles after duplicate insert, want 1", len(articles))
	}
	if articles[0].Title != "First" {
		t.Errorf("surviving title = %q, want %q", articles[0].Title, "First")
	}
}

func TestCandidateArticlesExcludesViewedAndVectorless(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	idA := insertTestArticle(t, db, "TECH", "A", "https://example.com/a", []float32{1, 0})
	idB := insertTestArticle(t, db, "TECH", "B", "https://example.com/b", []float32{0, 1})
	insertTestArticle(t, db, "TECH", "C", "https://example.com/c", nil) // no vector

	candidates, err := db.CandidateArticles(ctx, []int64{idA})
	if err != nil {
		t.Fatalf("CandidateArticles() error = %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(candidates))
	}
	if candidates[0].ID != idB {
		t.Errorf("candidate id = %d, want %d", candidates[0].ID, idB)
	}
	if len(candidates[0].Vector) != 2 || candidates[0].Vector[1] != 1 {
		t.Errorf("candidate vector = %v, want [0 1]", candidates[0].Vector)
	}
}

func TestCandidateArticlesSkipsMalformedVector(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	idGood := insertTestArticle(t, db, "TECH", "Good", "https://example.com/good", []float32{1, 2})
	idBad := insertTestArticle(t, db, "TECH", "Bad", "https://example.com/bad", []float32{3, 4})

	// Corrupt the stored blob: length no longer a multiple of four.
	if err := db.UpdateArticleVectors(ctx, idBad, nil, []byte{1, 2, 3}); err != nil {
		t.Fatalf("UpdateArticleVectors() error = %v", err)
	}

	candidates, err := db.CandidateArticles(ctx, nil)
	if err != nil {
		t.Fatalf("CandidateArticles() error = %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != idGood {
		t.Fatalf("candidates = %+v, want only id %d", candidates, idGood)
	}
}

func TestArticleVectorsOmitsMissing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	idA := insertTestArticle(t, db, "TECH", "A", "https://example.com/a", []float32{0.5, 0.5})
	idNoVec := insertTestArticle(t, db, "TECH", "B", "https://example.com/b", nil)

	vectors, err := db.ArticleVectors(ctx, []int64{idA, idNoVec, 99999})
	if err != nil {
		t.Fatalf("ArticleVectors() error = %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("got %d vectors, want 1", len(vectors))
	}
	if _, ok := vectors[idA]; !ok {
		t.Errorf("vector for id %d missing", idA)
	}
}

func TestPopularArticlesOrdering(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	idA := insertTestArticle(t, db, "TECH", "A", "https://example.com/a", nil)
	idB := insertTestArticle(t, db, "TECH", "B", "https://example.com/b", nil)
	idC := insertTestArticle(t, db, "TECH", "C", "https://example.com/c", nil)

	// B gets two views, A and C none. A and C tie at zero; the lower id wins.
	for i := 0; i < 2; i++ {
		if err := db.IncrementViewCount(ctx, idB); err != nil {
			t.Fatalf("IncrementViewCount() error = %v", err)
		}
	}

	articles, err := db.PopularArticles(ctx, 3)
	if err != nil {
		t.Fatalf("PopularArticles() error = %v", err)
	}
	gotIDs := []int64{}
	for _, a := range articles {
		gotIDs = append(gotIDs, a.ID)
	}
	wantIDs := []int64{idB, idA, idC}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Fatalf("popular order = %v, want %v", gotIDs, wantIDs)
		}
	}
	if articles[0].ViewCount != 2 {
		t.Errorf("top view count = %d, want 2", articles[0].ViewCount)
	}
}

func TestPopularArticlesLimit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	insertTestArticle(t, db, "TECH", "A", "https://example.com/a", nil)
	insertTestArticle(t, db, "TECH", "B", "https://example.com/b", nil)

	articles, err := db.PopularArticles(ctx, 1)
	if err != nil {
		t.Fatalf("PopularArticles() error = %v", err)
	}
	if len(articles) != 1 {
		t.Errorf("got %d articles, want 1", len(articles))
	}
}

func TestUserActivityRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	newsID := insertTestArticle(t, db, "TECH", "A", "https://example.com/a", nil)
	now := time.Now().UTC().Truncate(time.Microsecond)

	older := &models.Activity{UserID: 7, NewsID: newsID, Kind: models.ActivityView, Timestamp: now.Add(-time.Hour)}
	newer := &models.Activity{UserID: 7, NewsID: newsID, Kind: models.ActivityView, Timestamp: now}
	ancient := &models.Activity{UserID: 7, NewsID: newsID, Kind: models.ActivityView, Timestamp: now.Add(-40 * 24 * time.Hour)}
	for _, a := range []*models.Activity{older, newer, ancient} {
		if err := db.InsertActivity(ctx, a); err != nil {
			t.Fatalf("InsertActivity() error = %v", err)
		}
	}

	since := now.Add(-30 * 24 * time.Hour)
	activities, err := db.UserActivitySince(ctx, 7, since)
	if err != nil {
		t.Fatalf("UserActivitySince() error = %v", err)
	}
	if len(activities) != 2 {
		t.Fatalf("got %d activities, want 2 (the 40-day-old record is outside the window)", len(activities))
	}
	if !activities[0].Timestamp.After(activities[1].Timestamp) {
		t.Errorf("activities not ordered most recent first: %v then %v",
			activities[0].Timestamp, activities[1].Timestamp)
	}
}

func TestUserActivitySinceNoActivity(t *testing.T) {
	db := newTestDB(t)

	activities, err := db.UserActivitySince(context.Background(), 42, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("UserActivitySince() error = %v", err)
	}
	if activities == nil || len(activities) != 0 {
		t.Errorf("got %v, want empty non-nil slice", activities)
	}
}

func TestInsertActivityAllowsDuplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	newsID := insertTestArticle(t, db, "TECH", "A", "https://example.com/a", nil)
	ts := time.Now().UTC()
	for i := 0; i < 2; i++ {
		a := &models.Activity{UserID: 1, NewsID: newsID, Kind: models.ActivityView, Timestamp: ts}
		if err := db.InsertActivity(ctx, a); err != nil {
			t.Fatalf("InsertActivity() #%d error = %v", i, err)
		}
	}

	activities, err := db.UserActivitySince(ctx, 1, ts.Add(-time.Minute))
	if err != nil {
		t.Fatalf("UserActivitySince() error = %v", err)
	}
	if len(activities) != 2 {
		t.Errorf("got %d activities, want 2 (duplicates are legal)", len(activities))
	}
}

func TestCategoryCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	tech1 := insertTestArticle(t, db, "TECH", "T1", "https://example.com/t1", nil)
	tech2 := insertTestArticle(t, db, "TECH", "T2", "https://example.com/t2", nil)
	sport := insertTestArticle(t, db, "SPORTS", "S1", "https://example.com/s1", nil)

	// tech1 viewed twice: repeat views of one article count it once.
	now := time.Now().UTC()
	for _, newsID := range []int64{tech1, tech2, tech1, sport} {
		a := &models.Activity{UserID: 3, NewsID: newsID, Kind: models.ActivityView, Timestamp: now}
		if err := db.InsertActivity(ctx, a); err != nil {
			t.Fatalf("InsertActivity() error = %v", err)
		}
	}

	counts, err := db.CategoryCounts(ctx, 3)
	if err != nil {
		t.Fatalf("CategoryCounts() error = %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("got %d categories, want 2", len(counts))
	}
	if counts[0].Category != "TECH" || counts[0].Count != 2 {
		t.Errorf("counts[0] = %+v, want TECH/2 (distinct articles)", counts[0])
	}
	if counts[1].Category != "SPORTS" || counts[1].Count != 1 {
		t.Errorf("counts[1] = %+v, want SPORTS/1", counts[1])
	}

	var total int64
	for _, c := range counts {
		total += c.Count
	}
	if total != 3 {
		t.Errorf("summed counts = %d, want 3 (distinct viewed articles)", total)
	}
}

// Interests cover the user's whole history: activity far older than the
// ranking window still contributes.
func TestCategoryCountsUnwindowed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	newsID := insertTestArticle(t, db, "TECH", "Old", "https://example.com/old", nil)
	stale := &models.Activity{
		UserID:    5,
		NewsID:    newsID,
		Kind:      models.ActivityView,
		Timestamp: time.Now().UTC().Add(-90 * 24 * time.Hour),
	}
	if err := db.InsertActivity(ctx, stale); err != nil {
		t.Fatalf("InsertActivity() error = %v", err)
	}

	counts, err := db.CategoryCounts(ctx, 5)
	if err != nil {
		t.Fatalf("CategoryCounts() error = %v", err)
	}
	if len(counts) != 1 || counts[0].Category != "TECH" || counts[0].Count != 1 {
		t.Errorf("counts = %+v, want TECH/1 from 90-day-old activity", counts)
	}
}

func TestArticlesByIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	idA := insertTestArticle(t, db, "TECH", "A", "https://example.com/a", nil)
	insertTestArticle(t, db, "TECH", "B", "https://example.com/b", nil)

	byID, err := db.ArticlesByIDs(ctx, []int64{idA, 99999})
	if err != nil {
		t.Fatalf("ArticlesByIDs() error = %v", err)
	}
	if len(byID) != 1 {
		t.Fatalf("got %d articles, want 1", len(byID))
	}
	if byID[idA].Title != "A" {
		t.Errorf("title = %q, want A", byID[idA].Title)
	}
}

func TestArticlesWithoutVectors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	insertTestArticle(t, db, "TECH", "HasVec", "https://example.com/v", []float32{1})
	idNoVec := insertTestArticle(t, db, "TECH", "NoVec", "https://example.com/n", nil)

	pending, err := db.ArticlesWithoutVectors(ctx, 10)
	if err != nil {
		t.Fatalf("ArticlesWithoutVectors() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != idNoVec {
		t.Fatalf("pending = %+v, want only id %d", pending, idNoVec)
	}
}
