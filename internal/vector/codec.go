// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

// Package vector provides the embedding vector codec and similarity math
// used by the recommendation engine.
//
// Vectors are fixed-length float32 arrays serialized as little-endian
// blobs. The encoding must round-trip byte-identically: the scorer's
// dimensionality checks depend on it.
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes a vector as a little-endian float32 blob.
// Returns nil for an empty vector.
func Encode(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// Decode deserializes a little-endian float32 blob. Errors on empty input
// or a length that is not a multiple of 4; callers treat a decode failure
// as "vector absent" for that article.
func Decode(blob []byte) ([]float32, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("empty vector blob")
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("malformed vector blob: %d bytes is not a multiple of 4", len(blob))
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return v, nil
}
