// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

package vector

import (
	"bytes"
	"math"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    []float32
	}{
		{"simple", []float32{1, 2, 3}},
		{"negative", []float32{-0.5, 0.25, -1.75}},
		{"single", []float32{0.123456}},
		{"extremes", []float32{math.MaxFloat32, math.SmallestNonzeroFloat32, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := Encode(tt.v)
			if len(blob) != 4*len(tt.v) {
				t.Fatalf("blob length = %d, want %d", len(blob), 4*len(tt.v))
			}

			decoded, err := Decode(blob)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(decoded) != len(tt.v) {
				t.Fatalf("decoded length = %d, want %d", len(decoded), len(tt.v))
			}
			for i := range tt.v {
				if math.Float32bits(decoded[i]) != math.Float32bits(tt.v[i]) {
					t.Errorf("element %d = %v, want %v (bit-exact)", i, decoded[i], tt.v[i])
				}
			}

			// Re-encoding must be byte-identical.
			if !bytes.Equal(Encode(decoded), blob) {
				t.Error("re-encoded blob differs from original")
			}
		})
	}
}

func TestEncodeEmpty(t *testing.T) {
	if blob := Encode(nil); blob != nil {
		t.Errorf("Encode(nil) = %v, want nil", blob)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
	}{
		{"empty", nil},
		{"truncated", []byte{1, 2, 3}},
		{"not multiple of four", make([]byte, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.blob); err == nil {
				t.Error("Decode() expected error, got nil")
			}
		})
	}
}
