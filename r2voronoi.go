// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package r2voronoi

import (
	"errors"
	"fmt"
	"math"

	"github.com/2dChan/r2voronoi/r2delaunay"
	"github.com/golang/geo/r2"
	"github.com/paulmach/orb/planar"
)

const (
	defaultEps = 1e-9

	// Relative tolerance of the area conservation check.
	conservationTol = 1e-6
)

var (
	// ErrInvalidInput is returned for site sets a Voronoi diagram cannot be
	// built from: fewer than two sites, non-finite or coincident sites and,
	// unless allowed, collinear triples.
	ErrInvalidInput = errors.New("r2voronoi: invalid input")

	// ErrPartitionFailure is returned when clipping fails to produce
	// regions that tile the boundary.
	ErrPartitionFailure = errors.New("r2voronoi: partition failure")
)

// Boundary is a closed planar region cells are clipped to.
type Boundary interface {
	// ConvexPieces returns disjoint convex CCW polygons whose union is the region.
	ConvexPieces() [][]r2.Point
	Area() float64
	Contains(p r2.Point) bool
}

type Diagram struct {
	Sites    []r2.Point
	Boundary Boundary

	// NOTE: Convex and CCW, grouped per cell.
	Pieces      [][]r2.Point
	CellOffsets []int
	Areas       []float64

	opts DiagramOptions
}

func (d *Diagram) NumCells() int {
	return len(d.Sites)
}

// Cell returns the cell of the site at index i.
// It returns an error if the index is out of range.
func (d *Diagram) Cell(i int) (Cell, error) {
	if i < 0 || i >= d.NumCells() {
		return Cell{}, fmt.Errorf("Cell: index %d out of range [0 %d)", i, d.NumCells())
	}
	return Cell{idx: i, d: d}, nil
}

// TotalArea returns the sum of all cell areas.
func (d *Diagram) TotalArea() float64 {
	total := 0.0
	for _, a := range d.Areas {
		total += a
	}
	return total
}

// SitesOutside returns the indices of sites not contained in the boundary.
func (d *Diagram) SitesOutside() []int {
	var out []int
	for i, s := range d.Sites {
		if !d.Boundary.Contains(s) {
			out = append(out, i)
		}
	}
	return out
}

type DiagramOptions struct {
	Eps            float64
	AllowCollinear bool
}

type DiagramOption func(*DiagramOptions) error

// WithEps sets the relative tolerance used to detect coincident and
// collinear sites.
func WithEps(eps float64) DiagramOption {
	return func(o *DiagramOptions) error {
		if eps <= 0 {
			return errors.New("r2voronoi: eps must be positive")
		}
		o.Eps = eps
		return nil
	}
}

// AllowCollinear accepts site sets containing collinear triples.
func AllowCollinear() DiagramOption {
	return func(o *DiagramOptions) error {
		o.AllowCollinear = true
		return nil
	}
}

// NewDiagram computes the Voronoi diagram of sites clipped to boundary.
// Cell i belongs to sites[i]. Sites outside the boundary are accepted.
func NewDiagram(sites []r2.Point, boundary Boundary, setters ...DiagramOption) (*Diagram, error) {
	opts := DiagramOptions{
		Eps: defaultEps,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	if boundary == nil {
		return nil, errors.New("r2voronoi: nil boundary")
	}

	d := &Diagram{
		Sites:    sites,
		Boundary: boundary,
		opts:     opts,
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	if err := d.compute(); err != nil {
		return nil, err
	}
	return d, nil
}

// Relax applies steps iterations of Lloyd's algorithm, moving every site to
// the centroid of its cell. Sites with empty cells stay in place.
// Collinear sites are accepted during relaxation. If a step fails the
// diagram keeps the state of the last successful step.
func (d *Diagram) Relax(steps int) error {
	if steps < 0 {
		return fmt.Errorf("r2voronoi: negative relax steps %d", steps)
	}

	for range steps {
		next := &Diagram{
			Sites:    make([]r2.Point, len(d.Sites)),
			Boundary: d.Boundary,
			opts:     d.opts,
		}
		for i := range d.Sites {
			c, _ := d.Cell(i)
			next.Sites[i] = c.Centroid()
		}
		// Relaxed layouts are often symmetric and contain collinear triples.
		if err := next.validateSites(); err != nil {
			return err
		}
		if err := next.compute(); err != nil {
			return err
		}
		*d = *next
	}
	return nil
}

func (d *Diagram) validate() error {
	if err := d.validateSites(); err != nil {
		return err
	}
	if d.opts.AllowCollinear {
		return nil
	}
	n := len(d.Sites)
	for i := range n {
		for j := i + 1; j < n; j++ {
			a := d.Sites[j].Sub(d.Sites[i])
			for k := j + 1; k < n; k++ {
				b := d.Sites[k].Sub(d.Sites[i])
				if math.Abs(a.Cross(b)) <= d.opts.Eps*a.Norm()*b.Norm() {
					return fmt.Errorf("%w: sites %d, %d and %d are collinear", ErrInvalidInput, i, j, k)
				}
			}
		}
	}
	return nil
}

// validateSites checks the site count, finiteness and coincidence.
func (d *Diagram) validateSites() error {
	n := len(d.Sites)
	if n < 2 {
		return fmt.Errorf("%w: %d sites, minimum 2 required", ErrInvalidInput, n)
	}
	for i, s := range d.Sites {
		if !isFinite(s) {
			return fmt.Errorf("%w: site %d %v is not finite", ErrInvalidInput, i, s)
		}
	}

	scale := math.Sqrt(d.Boundary.Area())
	for i := range n {
		for j := i + 1; j < n; j++ {
			if d.Sites[i].Sub(d.Sites[j]).Norm() <= d.opts.Eps*scale {
				return fmt.Errorf("%w: sites %d and %d coincide at %v", ErrInvalidInput, i, j, d.Sites[i])
			}
		}
	}
	return nil
}

func (d *Diagram) compute() error {
	candidates, complete := neighborCandidates(d.Sites)
	err := d.clip(candidates)
	if err != nil && !complete {
		// The hull may miss a neighbour near tolerance; retry with every pair.
		err = d.clip(allPairs(len(d.Sites)))
	}
	return err
}

func (d *Diagram) clip(candidates [][]int) error {
	n := len(d.Sites)
	d.Pieces = d.Pieces[:0]
	d.CellOffsets = make([]int, n+1)
	d.Areas = make([]float64, n)

	boundaryArea := d.Boundary.Area()
	pieces := d.Boundary.ConvexPieces()
	for i, site := range d.Sites {
		for _, piece := range pieces {
			poly := append([]r2.Point(nil), piece...)
			for _, j := range candidates[i] {
				normal := d.Sites[j].Sub(site)
				mid := site.Add(d.Sites[j]).Mul(0.5)
				poly = clipHalfPlane(poly, mid, normal)
				if len(poly) < 3 {
					break
				}
			}
			if len(poly) >= 3 && signedArea(poly) > 0 {
				d.Pieces = append(d.Pieces, poly)
			}
		}
		d.CellOffsets[i+1] = len(d.Pieces)

		c := Cell{idx: i, d: d}
		area := planar.Area(c.Polygon())
		switch {
		case math.IsNaN(area) || area < 0:
			return fmt.Errorf("%w: site %d has area %v", ErrPartitionFailure, i, area)
		case area > boundaryArea*(1+conservationTol):
			return fmt.Errorf("%w: site %d area %v exceeds boundary area %v",
				ErrPartitionFailure, i, area, boundaryArea)
		case area == 0 && d.Boundary.Contains(site):
			return fmt.Errorf("%w: site %d inside the boundary has an empty region", ErrPartitionFailure, i)
		}
		d.Areas[i] = area
	}

	if total := d.TotalArea(); math.Abs(total-boundaryArea) > conservationTol*boundaryArea {
		return fmt.Errorf("%w: region areas sum to %v, boundary area is %v",
			ErrPartitionFailure, total, boundaryArea)
	}
	return nil
}

// neighborCandidates returns, per site, the sites whose bisectors can bound
// its cell. complete reports whether every pair was listed.
func neighborCandidates(sites []r2.Point) ([][]int, bool) {
	dt, err := r2delaunay.NewTriangulation(sites)
	if err != nil {
		return allPairs(len(sites)), true
	}
	out := make([][]int, len(sites))
	for i := range sites {
		out[i] = dt.Neighbors(i)
	}
	return out, false
}

func allPairs(n int) [][]int {
	out := make([][]int, n)
	for i := range n {
		out[i] = make([]int, 0, n-1)
		for j := range n {
			if j != i {
				out[i] = append(out[i], j)
			}
		}
	}
	return out
}

// clipHalfPlane clips the convex polygon poly to the half plane
// {p : (p - m)·normal <= 0} (Sutherland–Hodgman).
func clipHalfPlane(poly []r2.Point, m, normal r2.Point) []r2.Point {
	out := make([]r2.Point, 0, len(poly)+1)
	for i, a := range poly {
		b := poly[(i+1)%len(poly)]
		da := a.Sub(m).Dot(normal)
		db := b.Sub(m).Dot(normal)
		if da <= 0 {
			out = append(out, a)
		}
		if (da < 0 && db > 0) || (da > 0 && db < 0) {
			t := da / (da - db)
			out = append(out, a.Add(b.Sub(a).Mul(t)))
		}
	}
	return out
}

func signedArea(poly []r2.Point) float64 {
	a := 0.0
	for i, p := range poly {
		a += p.Cross(poly[(i+1)%len(poly)])
	}
	return a / 2
}

func isFinite(p r2.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
