// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

// Package embedding turns article text into dense vectors via an external
// encoder service. The service is optional: when unconfigured, import
// runs without the embedding backfill and articles stay vectorless until
// one is attached.
package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/newsshelf/recservice/internal/config"
)

// Encoder produces a fixed-dimension vector for a piece of text.
type Encoder interface {
	// Encode returns the vector for text. Implementations must return
	// vectors of exactly Dimensions() length.
	Encode(ctx context.Context, text string) ([]float32, error)

	// Dimensions reports the vector length this encoder produces.
	Dimensions() int
}

// HTTPEncoder calls a JSON-over-HTTP sentence encoder.
//
// Request:  POST {url}/encode  {"text": "..."}
// Response: {"vector": [0.1, ...]}
type HTTPEncoder struct {
	url        string
	dimensions int
	client     *http.Client
}

// NewHTTPEncoder creates an encoder client from config.
func NewHTTPEncoder(cfg *config.EmbeddingConfig) *HTTPEncoder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPEncoder{
		url:        cfg.URL,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
	}
}

type encodeRequest struct {
	Text string `json:"text"`
}

type encodeResponse struct {
	Vector []float32 `json:"vector"`
}

// Encode requests a vector for the given text.
func (e *HTTPEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(encodeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url+"/encode", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build encode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call encoder service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("encoder service returned %d: %s", resp.StatusCode, payload)
	}

	var decoded encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode encoder response: %w", err)
	}
	if e.dimensions > 0 && len(decoded.Vector) != e.dimensions {
		return nil, fmt.Errorf("encoder returned %d dimensions, want %d", len(decoded.Vector), e.dimensions)
	}
	return decoded.Vector, nil
}

// Dimensions reports the configured vector length.
func (e *HTTPEncoder) Dimensions() int {
	return e.dimensions
}
