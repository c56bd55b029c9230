// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/newsshelf/recservice/internal/config"
	"github.com/newsshelf/recservice/internal/models"
	"github.com/newsshelf/recservice/internal/recommend"
)

type fakeEngine struct {
	recs      []models.Recommendation
	strategy  recommend.Strategy
	interests *models.InterestsResponse
	err       error

	gotUserID    int64
	gotCount     int
	gotThreshold float64
}

func (f *fakeEngine) Recommend(_ context.Context, userID int64, count int, threshold float64) ([]models.Recommendation, recommend.Strategy, error) {
	f.gotUserID, f.gotCount, f.gotThreshold = userID, count, threshold
	return f.recs, f.strategy, f.err
}

func (f *fakeEngine) Popular(_ context.Context, count int) ([]models.Recommendation, error) {
	f.gotCount = count
	return f.recs, f.err
}

func (f *fakeEngine) Interests(_ context.Context, userID int64) (*models.InterestsResponse, error) {
	f.gotUserID = userID
	return f.interests, f.err
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

func testServer(engine *fakeEngine, pinger *fakePinger) *Server {
	cfg := &config.Config{
		Server: config.ServerConfig{
			RateLimitReqs:   0,
			RateLimitWindow: time.Minute,
		},
		Recommend: config.RecommendConfig{
			WindowDays:       30,
			DefaultCount:     10,
			MaxCount:         50,
			DefaultThreshold: 0.3,
		},
	}
	return NewServer(engine, pinger, cfg, zerolog.Nop())
}

func doRequest(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return rec, resp
}

func TestRecommendationsEndpoint(t *testing.T) {
	engine := &fakeEngine{
		recs: []models.Recommendation{
			{Article: models.Article{ID: 42, Title: "Hello", Category: "TECH"}, Score: 0.9},
		},
		strategy: recommend.StrategyPersonalized,
	}
	s := testServer(engine, &fakePinger{})

	rec, resp := doRequest(t, s, "/api/v1/recommendations/7?count=5&threshold=0.4")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !resp.Success {
		t.Fatalf("success = false: %+v", resp.Error)
	}
	if engine.gotUserID != 7 || engine.gotCount != 5 || engine.gotThreshold != 0.4 {
		t.Errorf("engine called with (%d, %d, %v)", engine.gotUserID, engine.gotCount, engine.gotThreshold)
	}

	data, _ := json.Marshal(resp.Data)
	var list models.RecommendationsListResponse
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if list.UserID != 7 || list.TotalCount != 1 {
		t.Errorf("list = %+v", list)
	}
	if list.Recommendations[0].NewsID != 42 || list.Recommendations[0].SimilarityScore != 0.9 {
		t.Errorf("recommendation = %+v", list.Recommendations[0])
	}
}

func TestRecommendationsDefaults(t *testing.T) {
	engine := &fakeEngine{strategy: recommend.StrategyPersonalized}
	s := testServer(engine, &fakePinger{})

	rec, _ := doRequest(t, s, "/api/v1/recommendations/7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if engine.gotCount != 10 || engine.gotThreshold != 0.3 {
		t.Errorf("defaults not applied: count=%d threshold=%v", engine.gotCount, engine.gotThreshold)
	}
}

func TestRecommendationsEmptyListIsOK(t *testing.T) {
	engine := &fakeEngine{recs: nil, strategy: recommend.StrategyPersonalized}
	s := testServer(engine, &fakePinger{})

	rec, resp := doRequest(t, s, "/api/v1/recommendations/7")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for empty result", rec.Code)
	}
	data, _ := json.Marshal(resp.Data)
	var list models.RecommendationsListResponse
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if list.TotalCount != 0 || len(list.Recommendations) != 0 {
		t.Errorf("list = %+v, want empty", list)
	}
}

func TestRecommendationsValidation(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"bad user id", "/api/v1/recommendations/abc"},
		{"negative user id", "/api/v1/recommendations/-3"},
		{"count too low", "/api/v1/recommendations/7?count=0"},
		{"count too high", "/api/v1/recommendations/7?count=51"},
		{"count not a number", "/api/v1/recommendations/7?count=ten"},
		{"threshold too high", "/api/v1/recommendations/7?threshold=1.5"},
		{"threshold negative", "/api/v1/recommendations/7?threshold=-0.1"},
	}

	s := testServer(&fakeEngine{}, &fakePinger{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := doRequest(t, s, tt.path)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if resp.Success || resp.Error == nil {
				t.Errorf("expected error envelope, got %+v", resp)
			}
		})
	}
}

func TestRecommendationsCountCeilingFromConfig(t *testing.T) {
	engine := &fakeEngine{strategy: recommend.StrategyPersonalized}
	s := testServer(engine, &fakePinger{})
	s.cfg.Recommend.MaxCount = 20

	rec, resp := doRequest(t, s, "/api/v1/recommendations/7?count=21")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for count above configured max", rec.Code)
	}
	if resp.Success || resp.Error == nil {
		t.Fatalf("expected error envelope, got %+v", resp)
	}

	rec, _ = doRequest(t, s, "/api/v1/recommendations/7?count=20")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 at the configured max", rec.Code)
	}
	if engine.gotCount != 20 {
		t.Errorf("count = %d, want 20", engine.gotCount)
	}
}

func TestRecommendationsStorageFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("duckdb exploded")}
	s := testServer(engine, &fakePinger{})

	rec, resp := doRequest(t, s, "/api/v1/recommendations/7")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("error = %+v, want SERVICE_UNAVAILABLE", resp.Error)
	}
}

func TestPopularEndpointNotShadowed(t *testing.T) {
	engine := &fakeEngine{
		recs: []models.Recommendation{
			{Article: models.Article{ID: 1, Title: "Top"}, Score: 1},
		},
	}
	s := testServer(engine, &fakePinger{})

	rec, resp := doRequest(t, s, "/api/v1/recommendations/popular/news?count=3")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if engine.gotCount != 3 {
		t.Errorf("count = %d, want 3", engine.gotCount)
	}
	data, _ := json.Marshal(resp.Data)
	var list popularListResponse
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if list.TotalCount != 1 || list.Recommendations[0].NewsID != 1 {
		t.Errorf("list = %+v", list)
	}
}

func TestInterestsEndpoint(t *testing.T) {
	engine := &fakeEngine{
		interests: &models.InterestsResponse{
			UserID:          7,
			Interests:       map[string]float64{"TECH": 1},
			TotalActivities: 4,
		},
	}
	s := testServer(engine, &fakePinger{})

	rec, resp := doRequest(t, s, "/api/v1/recommendations/7/interests")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data, _ := json.Marshal(resp.Data)
	var interests models.InterestsResponse
	if err := json.Unmarshal(data, &interests); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if interests.UserID != 7 || interests.Interests["TECH"] != 1 {
		t.Errorf("interests = %+v", interests)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := testServer(&fakeEngine{}, &fakePinger{})
	rec, _ := doRequest(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	s = testServer(&fakeEngine{}, &fakePinger{err: errors.New("down")})
	rec, _ = doRequest(t, s, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := testServer(&fakeEngine{}, &fakePinger{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}
}
