// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package utils

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGenerateRandomPoints_Length(t *testing.T) {
	tests := []struct {
		name string
		cnt  int
		seed int64
	}{
		{"zero points", 0, 42},
		{"one point", 1, 42},
		{"ten points", 10, 0},
		{"hundred points", 100, 99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := GenerateRandomPoints(tt.cnt, tt.seed, 0, 150)
			if len(points) != tt.cnt {
				t.Errorf("GenerateRandomPoints(%v, %v, 0, 150) len = %v, want %v", tt.cnt, tt.seed,
					len(points), tt.cnt)
			}
		})
	}
}

func TestGenerateRandomPoints_InRing(t *testing.T) {
	const (
		cnt   = 1000
		seed  = 0
		inner = 50
		outer = 150
	)
	points := GenerateRandomPoints(cnt, seed, inner, outer)
	for i, p := range points {
		r := p.Norm()
		if r < inner-1e-9 || r > outer+1e-9 {
			t.Errorf("GenerateRandomPoints(%v, %v, %v, %v)[%d]: radius = %v, want in [%v, %v]",
				cnt, seed, inner, outer, i, r, inner, outer)
		}
	}
}

func TestGenerateRandomPoints_Determinism(t *testing.T) {
	const (
		cnt  = 10
		seed = 0
	)
	a := GenerateRandomPoints(cnt, seed, 0, 150)
	b := GenerateRandomPoints(cnt, seed, 0, 150)
	if diff := cmp.Diff(b, a); diff != "" {
		t.Errorf("GenerateRandomPoints(%v, %v, 0, 150) mismatch (-want +got):\n%v", cnt, seed, diff)
	}
}

func TestRegularPolygonPoints(t *testing.T) {
	const (
		cnt    = 6
		radius = 75
	)
	points := RegularPolygonPoints(cnt, radius, 0)
	if len(points) != cnt {
		t.Fatalf("RegularPolygonPoints(%v, %v, 0) len = %v, want %v", cnt, radius, len(points), cnt)
	}
	for i, p := range points {
		if math.Abs(p.Norm()-radius) > 1e-12 {
			t.Errorf("RegularPolygonPoints(...)[%d] norm = %v, want %v", i, p.Norm(), radius)
		}
		next := points[(i+1)%cnt]
		if d := p.Sub(next).Norm(); math.Abs(d-radius) > 1e-9 {
			t.Errorf("RegularPolygonPoints(...) side %d = %v, want %v", i, d, float64(radius))
		}
	}
}
