// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package utils provides utility functions for generating planar sites for Voronoi diagrams.

package utils

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
)

// GenerateRandomPoints generates points uniformly distributed by area in the
// ring inner <= |p| <= outer centered at the origin. Use inner = 0 for a disk.
// The seed parameter ensures reproducibility.
func GenerateRandomPoints(cnt int, seed int64, inner, outer float64) []r2.Point {
	//nolint:gosec
	random := rand.New(rand.NewSource(seed))
	sites := make([]r2.Point, cnt)

	lo, hi := inner*inner, outer*outer
	for i := range cnt {
		r := math.Sqrt(lo + random.Float64()*(hi-lo))
		theta := s1.Angle(random.Float64() * 2 * math.Pi)
		sites[i] = r2.Point{
			X: r * math.Cos(theta.Radians()),
			Y: r * math.Sin(theta.Radians()),
		}
	}

	return sites
}

// RegularPolygonPoints returns cnt points evenly spaced on the circle of the
// given radius, starting at angle phase.
func RegularPolygonPoints(cnt int, radius float64, phase s1.Angle) []r2.Point {
	sites := make([]r2.Point, cnt)
	for i := range cnt {
		theta := phase + s1.Angle(2*math.Pi*float64(i)/float64(cnt))
		sites[i] = r2.Point{
			X: radius * math.Cos(theta.Radians()),
			Y: radius * math.Sin(theta.Radians()),
		}
	}
	return sites
}
