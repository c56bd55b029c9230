// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package embedding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/newsshelf/recservice/internal/config"
)

func newEncoderForServer(srv *httptest.Server, dims int) *HTTPEncoder {
	return NewHTTPEncoder(&config.EmbeddingConfig{
		URL:        srv.URL,
		Dimensions: dims,
		Timeout:    5 * time.Second,
	})
}

func TestHTTPEncoderEncode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/encode" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text != "hello world" {
			t.Errorf("text = %q, want %q", req.Text, "hello world")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"vector": []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	enc := newEncoderForServer(srv, 3)
	v, err := enc.Encode(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(v) != 3 || v[0] != 0.1 {
		t.Errorf("vector = %v, want [0.1 0.2 0.3]", v)
	}
	if enc.Dimensions() != 3 {
		t.Errorf("Dimensions() = %d, want 3", enc.Dimensions())
	}
}

func TestHTTPEncoderDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"vector": []float32{0.1, 0.2}})
	}))
	defer srv.Close()

	enc := newEncoderForServer(srv, 3)
	if _, err := enc.Encode(context.Background(), "text"); err == nil {
		t.Error("Encode() expected dimension mismatch error")
	}
}

func TestHTTPEncoderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	enc := newEncoderForServer(srv, 3)
	if _, err := enc.Encode(context.Background(), "text"); err == nil {
		t.Error("Encode() expected error on 503 response")
	}
}
