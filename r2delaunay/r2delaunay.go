// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package r2delaunay computes planar Delaunay triangulations as the lower
// convex hull of the sites lifted onto the paraboloid z = x² + y².
package r2delaunay

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/markus-wa/quickhull-go/v2"
)

const (
	defaultEps = 1e-12
	// Tolerance on normalized coordinates below which the lifted sites are
	// treated as coplanar, i.e. all sites cocircular or collinear.
	planarEps = 1e-9
)

// ErrDegenerateInput is returned when the sites admit no unique
// triangulation the hull can resolve: fewer than three sites, all sites
// collinear or all sites cocircular.
var ErrDegenerateInput = errors.New("r2delaunay: degenerate input")

type Triangulation struct {
	Vertices []r2.Point
	// NOTE: Each triangle is CCW.
	Triangles [][3]int
	// NOTE: Sort in CCW per vertex.
	IncidentTriangleIndices []int
	IncidentTriangleOffsets []int
}

// IncidentTriangles returns the indices of triangles sharing vertex vIdx.
func (dt *Triangulation) IncidentTriangles(vIdx int) []int {
	if vIdx < 0 || vIdx+1 >= len(dt.IncidentTriangleOffsets) {
		panic("IncidentTriangles: vIdx out of range")
	}
	start := dt.IncidentTriangleOffsets[vIdx]
	end := dt.IncidentTriangleOffsets[vIdx+1]
	return dt.IncidentTriangleIndices[start:end]
}

func (dt *Triangulation) TriangleVertices(tIdx int) (r2.Point, r2.Point, r2.Point) {
	if tIdx < 0 || tIdx >= len(dt.Triangles) {
		panic("TriangleVertices: tIdx out of bounds")
	}
	t := dt.Triangles[tIdx]
	return dt.Vertices[t[0]], dt.Vertices[t[1]], dt.Vertices[t[2]]
}

// Neighbors returns the sorted indices of vertices joined to vIdx by an edge.
func (dt *Triangulation) Neighbors(vIdx int) []int {
	var out []int
	for _, tIdx := range dt.IncidentTriangles(vIdx) {
		t := dt.Triangles[tIdx]
		out = append(out, NextVertex(t, vIdx), PrevVertex(t, vIdx))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

type TriangulationOptions struct {
	Eps float64
}

type TriangulationOption func(*TriangulationOptions) error

func WithEps(eps float64) TriangulationOption {
	return func(o *TriangulationOptions) error {
		if eps <= 0 {
			return errors.New("r2delaunay: eps must be positive")
		}
		o.Eps = eps
		return nil
	}
}

// NewTriangulation triangulates vertices. Every vertex must be distinct.
func NewTriangulation(vertices []r2.Point, setters ...TriangulationOption) (*Triangulation, error) {
	opts := TriangulationOptions{
		Eps: defaultEps,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}

	numVertices := len(vertices)
	if numVertices < 3 {
		return nil, fmt.Errorf("%w: %d vertices, minimum 3 required", ErrDegenerateInput, numVertices)
	}

	lifted := lift(vertices)
	if err := checkNotPlanar(lifted); err != nil {
		return nil, err
	}

	var tris [][3]int
	if numVertices == 3 {
		tris = [][3]int{{0, 1, 2}}
	} else {
		tris = lowerHull(lifted, opts.Eps)
	}

	dt := &Triangulation{
		Vertices:                vertices,
		Triangles:               tris,
		IncidentTriangleIndices: make([]int, len(tris)*3),
		IncidentTriangleOffsets: make([]int, numVertices+1),
	}
	for i := range dt.Triangles {
		sortTriangleVerticesCCW(&dt.Triangles[i], dt.Vertices)
	}
	if err := checkEuler(dt.Triangles, numVertices); err != nil {
		return nil, err
	}

	for _, t := range dt.Triangles {
		for _, v := range t {
			dt.IncidentTriangleOffsets[v+1]++
		}
	}
	for i := range numVertices {
		dt.IncidentTriangleOffsets[i+1] += dt.IncidentTriangleOffsets[i]
	}

	nxt := make([]int, numVertices)
	copy(nxt, dt.IncidentTriangleOffsets[:numVertices])
	for i, t := range dt.Triangles {
		for _, v := range t {
			dt.IncidentTriangleIndices[nxt[v]] = i
			nxt[v]++
		}
	}

	for i := range numVertices {
		sortIncidentTriangleIndicesCCW(i, dt.IncidentTriangles(i), dt.Triangles, dt.Vertices)
	}

	return dt, nil
}

// lift maps vertices onto the paraboloid after centering and scaling them
// into the unit disk, which keeps the hull tolerances scale free.
func lift(vertices []r2.Point) []r3.Vector {
	var c r2.Point
	for _, p := range vertices {
		c = c.Add(p)
	}
	c = c.Mul(1 / float64(len(vertices)))

	scale := 0.0
	for _, p := range vertices {
		scale = math.Max(scale, p.Sub(c).Norm())
	}
	if scale == 0 {
		scale = 1
	}

	out := make([]r3.Vector, len(vertices))
	for i, p := range vertices {
		q := p.Sub(c).Mul(1 / scale)
		out[i] = r3.Vector{X: q.X, Y: q.Y, Z: q.X*q.X + q.Y*q.Y}
	}
	return out
}

func checkNotPlanar(lifted []r3.Vector) error {
	p0 := lifted[0]
	far, farDist := 0, 0.0
	for i, p := range lifted {
		if d := math.Hypot(p.X-p0.X, p.Y-p0.Y); d > farDist {
			far, farDist = i, d
		}
	}
	p1 := lifted[far]

	third, thirdArea := -1, planarEps
	for i, p := range lifted {
		a := math.Abs((p1.X-p0.X)*(p.Y-p0.Y) - (p1.Y-p0.Y)*(p.X-p0.X))
		if a > thirdArea {
			third, thirdArea = i, a
		}
	}
	if third < 0 {
		return fmt.Errorf("%w: all vertices collinear", ErrDegenerateInput)
	}

	n := p1.Sub(p0).Cross(lifted[third].Sub(p0)).Normalize()
	for _, p := range lifted {
		if math.Abs(n.Dot(p.Sub(p0))) > planarEps {
			return nil
		}
	}
	if len(lifted) == 3 {
		return nil
	}
	return fmt.Errorf("%w: all vertices cocircular", ErrDegenerateInput)
}

// lowerHull returns the downward facing hull triangles, whose projections
// form the Delaunay triangulation.
func lowerHull(lifted []r3.Vector, eps float64) [][3]int {
	var interior r3.Vector
	for _, p := range lifted {
		interior = interior.Add(p)
	}
	interior = interior.Mul(1 / float64(len(lifted)))

	qh := new(quickhull.QuickHull)
	ch := qh.ConvexHull(lifted, true, true, eps)

	var tris [][3]int
	for base := 0; base+2 < len(ch.Indices); base += 3 {
		t := [3]int{ch.Indices[base], ch.Indices[base+1], ch.Indices[base+2]}
		if !inRange(t, len(lifted)) {
			continue
		}
		a, b, c := lifted[t[0]], lifted[t[1]], lifted[t[2]]
		norm := b.Sub(a).Cross(c.Sub(a))
		if norm.Dot(a.Sub(interior)) < 0 {
			norm = norm.Mul(-1)
		}
		// Vertical faces project onto segments.
		if norm.Z >= 0 || math.Abs(norm.Z) <= eps {
			continue
		}
		tris = append(tris, t)
	}
	return tris
}

func inRange(t [3]int, n int) bool {
	for _, v := range t {
		if v < 0 || v >= n {
			return false
		}
	}
	return true
}

// checkEuler verifies that tris triangulate every vertex: a planar
// triangulation of n vertices with h on the hull has 2n - 2 - h triangles.
func checkEuler(tris [][3]int, numVertices int) error {
	used := make([]bool, numVertices)
	edges := make(map[[2]int]int, len(tris)*3)
	for _, t := range tris {
		for j := range 3 {
			used[t[j]] = true
			a, b := t[j], t[(j+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[[2]int{a, b}]++
		}
	}
	for v, ok := range used {
		if !ok {
			return fmt.Errorf("%w: vertex %d missing from hull", ErrDegenerateInput, v)
		}
	}

	hull := 0
	for _, cnt := range edges {
		switch cnt {
		case 1:
			hull++
		case 2:
		default:
			return fmt.Errorf("%w: edge shared by %d triangles", ErrDegenerateInput, cnt)
		}
	}
	if want := 2*numVertices - 2 - hull; len(tris) != want {
		return fmt.Errorf("%w: inconsistent number of triangles returned from QuickHull (%d, want %d)",
			ErrDegenerateInput, len(tris), want)
	}
	return nil
}

func sortTriangleVerticesCCW(t *[3]int, v []r2.Point) {
	p0, p1, p2 := v[t[0]], v[t[1]], v[t[2]]
	if p1.Sub(p0).Cross(p2.Sub(p0)) < 0 {
		t[1], t[2] = t[2], t[1]
	}
}

func sortIncidentTriangleIndicesCCW(vIdx int, incidentTris []int, tris [][3]int, v []r2.Point) {
	center := v[vIdx]
	angle := func(tIdx int) float64 {
		t := tris[tIdx]
		c := v[t[0]].Add(v[t[1]]).Add(v[t[2]]).Mul(1.0 / 3).Sub(center)
		return math.Atan2(c.Y, c.X)
	}
	slices.SortFunc(incidentTris, func(a, b int) int {
		return cmp.Compare(angle(a), angle(b))
	})
}

func PrevVertex(t [3]int, vIdx int) int {
	switch vIdx {
	case t[0]:
		return t[2]
	case t[1]:
		return t[0]
	case t[2]:
		return t[1]
	}
	panic("PrevVertex: vIdx not in triangle")
}

func NextVertex(t [3]int, vIdx int) int {
	switch vIdx {
	case t[0]:
		return t[1]
	case t[1]:
		return t[2]
	case t[2]:
		return t[0]
	}
	panic("NextVertex: vIdx not in triangle")
}
