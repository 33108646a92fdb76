// Package r2voronoi implements planar Voronoi diagrams clipped to a bounded region,
// using a Delaunay triangulation to find cell neighbours.

package r2voronoi

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Cell represents a clipped Voronoi cell. It is a view structure for accessing a cell in a Diagram.
// The cell's index corresponds to the index of its site in the Diagram's Sites.
type Cell struct {
	idx int
	d   *Diagram
}

// SiteIndex returns the index of the site in the Diagram's Sites.
func (c Cell) SiteIndex() int {
	return c.idx
}

// Site returns the site point of the cell.
func (c Cell) Site() r2.Point {
	return c.d.Sites[c.idx]
}

// Area returns the area of the cell inside the boundary.
func (c Cell) Area() float64 {
	return c.d.Areas[c.idx]
}

// NumPieces returns the number of convex polygons forming the cell.
// It is zero when the cell misses the boundary entirely.
func (c Cell) NumPieces() int {
	return c.d.CellOffsets[c.idx+1] - c.d.CellOffsets[c.idx]
}

// Pieces returns the convex polygons forming the cell, vertices in counter-clockwise order.
func (c Cell) Pieces() [][]r2.Point {
	return c.d.Pieces[c.d.CellOffsets[c.idx]:c.d.CellOffsets[c.idx+1]]
}

// Piece returns the polygon at the specified index.
// It returns an error if the index is out of range.
func (c Cell) Piece(i int) ([]r2.Point, error) {
	if i < 0 || i >= c.NumPieces() {
		return nil, fmt.Errorf("Piece: index %d out of range [0 %d)", i, c.NumPieces())
	}
	return c.d.Pieces[c.d.CellOffsets[c.idx]+i], nil
}

// Polygon returns the cell as an orb multipolygon with closed rings.
func (c Cell) Polygon() orb.MultiPolygon {
	pieces := c.Pieces()
	mp := make(orb.MultiPolygon, 0, len(pieces))
	for _, piece := range pieces {
		ring := make(orb.Ring, 0, len(piece)+1)
		for _, p := range piece {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		ring = append(ring, ring[0])
		mp = append(mp, orb.Polygon{ring})
	}
	return mp
}

// Centroid returns the area centroid of the cell, or its site when the cell is empty.
func (c Cell) Centroid() r2.Point {
	centroid, area := planar.CentroidArea(c.Polygon())
	if area == 0 {
		return c.Site()
	}
	return r2.Point{X: centroid[0], Y: centroid[1]}
}
