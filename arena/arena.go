// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package arena builds the bounded planar regions robots are dispersed in.
// A shape is a disk or an annulus centered at the origin whose circles are
// approximated by regular polygons.
package arena

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/paulmach/orb"
)

const (
	// Same vertex count as a shapely point buffer with the default resolution.
	defaultSegments = 64
	minSegments     = 8
)

// ErrInvalidConfiguration is returned for unknown shape kinds and radii
// that violate the shape invariants.
var ErrInvalidConfiguration = errors.New("arena: invalid configuration")

// Kind enumerates supported arena shapes.
type Kind int

const (
	Disk Kind = iota + 1
	Annulus
)

func (k Kind) String() string {
	switch k {
	case Disk:
		return "disk"
	case Annulus:
		return "annulus"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	if k != Disk && k != Annulus {
		return nil, fmt.Errorf("%w: unrecognised shape %v", ErrInvalidConfiguration, k)
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses an explicit shape name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disk":
		return Disk, nil
	case "annulus":
		return Annulus, nil
	}
	return 0, fmt.Errorf("%w: unrecognised shape %q", ErrInvalidConfiguration, s)
}

// InferKind derives a kind from an arena file name such as the
// arenaFileName entry of a kilombo simulation.json.
func InferKind(name string) (Kind, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "disk"):
		return Disk, nil
	case strings.Contains(lower, "annulus"):
		return Annulus, nil
	}
	return 0, fmt.Errorf("%w: cannot infer shape from %q", ErrInvalidConfiguration, name)
}

// Params holds radii in millimetres. Radius is used by disks,
// InnerRadius and OuterRadius by annuli.
type Params struct {
	Radius      float64
	InnerRadius float64
	OuterRadius float64
}

type Options struct {
	Segments int
}

type Option func(*Options) error

// WithSegments sets the number of polygon vertices used per circle.
func WithSegments(n int) Option {
	return func(o *Options) error {
		if n < minSegments {
			return fmt.Errorf("%w: segments %d, minimum %d", ErrInvalidConfiguration, n, minSegments)
		}
		o.Segments = n
		return nil
	}
}

// Shape is an immutable closed region centered at the origin.
type Shape struct {
	kind     Kind
	inner    float64
	outer    float64
	segments int

	// NOTE: Both rings are CCW and share vertex angles.
	outerRing []r2.Point
	innerRing []r2.Point
	pieces    [][]r2.Point
	area      float64
}

// Build constructs a shape of the given kind.
func Build(kind Kind, p Params, setters ...Option) (*Shape, error) {
	switch kind {
	case Disk:
		return NewDisk(p.Radius, setters...)
	case Annulus:
		return NewAnnulus(p.InnerRadius, p.OuterRadius, setters...)
	}
	return nil, fmt.Errorf("%w: unrecognised shape %v", ErrInvalidConfiguration, kind)
}

// NewDisk returns the disk of the given radius.
func NewDisk(radius float64, setters ...Option) (*Shape, error) {
	if !isPositive(radius) {
		return nil, fmt.Errorf("%w: disk radius %v must be positive", ErrInvalidConfiguration, radius)
	}
	opts, err := applyOptions(setters)
	if err != nil {
		return nil, err
	}

	s := &Shape{
		kind:      Disk,
		outer:     radius,
		segments:  opts.Segments,
		outerRing: regularPolygon(radius, opts.Segments),
	}
	s.pieces = [][]r2.Point{s.outerRing}
	s.area = polygonArea(opts.Segments, radius)
	return s, nil
}

// NewAnnulus returns the ring between inner and outer.
func NewAnnulus(inner, outer float64, setters ...Option) (*Shape, error) {
	if !isPositive(inner) || !isPositive(outer) {
		return nil, fmt.Errorf("%w: annulus radii (inner %v, outer %v) must be positive",
			ErrInvalidConfiguration, inner, outer)
	}
	if inner >= outer {
		return nil, fmt.Errorf("%w: annulus inner radius %v must be smaller than outer radius %v",
			ErrInvalidConfiguration, inner, outer)
	}
	opts, err := applyOptions(setters)
	if err != nil {
		return nil, err
	}

	s := &Shape{
		kind:      Annulus,
		inner:     inner,
		outer:     outer,
		segments:  opts.Segments,
		outerRing: regularPolygon(outer, opts.Segments),
		innerRing: regularPolygon(inner, opts.Segments),
	}

	n := opts.Segments
	s.pieces = make([][]r2.Point, n)
	for k := range n {
		next := (k + 1) % n
		s.pieces[k] = []r2.Point{
			s.innerRing[k], s.outerRing[k], s.outerRing[next], s.innerRing[next],
		}
	}
	s.area = polygonArea(n, outer) - polygonArea(n, inner)
	return s, nil
}

func (s *Shape) Kind() Kind { return s.kind }

// InnerRadius is zero for disks.
func (s *Shape) InnerRadius() float64 { return s.inner }

func (s *Shape) OuterRadius() float64 { return s.outer }

func (s *Shape) Segments() int { return s.segments }

// Area returns the area of the polygonal approximation.
func (s *Shape) Area() float64 { return s.area }

// ExactArea returns the area of the ideal curved shape.
func (s *Shape) ExactArea() float64 {
	return math.Pi * (s.outer*s.outer - s.inner*s.inner)
}

// Outer returns a copy of the outer boundary ring, CCW.
func (s *Shape) Outer() []r2.Point { return slices.Clone(s.outerRing) }

// Inner returns a copy of the hole ring, CCW, or nil for disks.
func (s *Shape) Inner() []r2.Point { return slices.Clone(s.innerRing) }

// ConvexPieces returns copies of disjoint convex polygons, CCW, whose union
// is the shape.
func (s *Shape) ConvexPieces() [][]r2.Point {
	out := make([][]r2.Point, len(s.pieces))
	for i, p := range s.pieces {
		out[i] = slices.Clone(p)
	}
	return out
}

// Contains reports whether p lies in the closed polygonal shape.
func (s *Shape) Contains(p r2.Point) bool {
	if !convexContains(s.outerRing, p, false) {
		return false
	}
	if s.innerRing != nil && convexContains(s.innerRing, p, true) {
		return false
	}
	return true
}

// Bound returns the bounding rectangle of the shape.
func (s *Shape) Bound() r2.Rect {
	return r2.RectFromPoints(s.outerRing...)
}

// Polygon returns the shape as a closed orb polygon, the hole wound CW.
func (s *Shape) Polygon() orb.Polygon {
	poly := orb.Polygon{closedRing(s.outerRing)}
	if s.innerRing != nil {
		hole := closedRing(s.innerRing)
		hole.Reverse()
		poly = append(poly, hole)
	}
	return poly
}

func (s *Shape) String() string {
	if s.kind == Annulus {
		return fmt.Sprintf("annulus(inner=%g, outer=%g, segments=%d)", s.inner, s.outer, s.segments)
	}
	return fmt.Sprintf("disk(radius=%g, segments=%d)", s.outer, s.segments)
}

// Diagnostics compares the shape area against an externally supplied value.
type Diagnostics struct {
	Kind         Kind
	InnerRadius  float64
	OuterRadius  float64
	PolygonArea  float64
	ExactArea    float64
	ExpectedArea float64
}

// Diagnostics reports the shape areas next to expected, typically the
// arenaNormalizedArea of a simulation. It is informational only.
func (s *Shape) Diagnostics(expected float64) Diagnostics {
	return Diagnostics{
		Kind:         s.kind,
		InnerRadius:  s.inner,
		OuterRadius:  s.outer,
		PolygonArea:  s.area,
		ExactArea:    s.ExactArea(),
		ExpectedArea: expected,
	}
}

func applyOptions(setters []Option) (Options, error) {
	opts := Options{Segments: defaultSegments}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return Options{}, err
		}
	}
	return opts, nil
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func regularPolygon(radius float64, n int) []r2.Point {
	ring := make([]r2.Point, n)
	for k := range n {
		a := s1.Angle(2 * math.Pi * float64(k) / float64(n))
		ring[k] = r2.Point{X: radius * math.Cos(a.Radians()), Y: radius * math.Sin(a.Radians())}
	}
	return ring
}

func polygonArea(n int, radius float64) float64 {
	return 0.5 * float64(n) * radius * radius * math.Sin(2*math.Pi/float64(n))
}

// convexContains tests p against a CCW convex ring; strict excludes the boundary.
func convexContains(ring []r2.Point, p r2.Point, strict bool) bool {
	for i, a := range ring {
		b := ring[(i+1)%len(ring)]
		c := b.Sub(a).Cross(p.Sub(a))
		if c < 0 || (strict && c == 0) {
			return false
		}
	}
	return true
}

func closedRing(pts []r2.Point) orb.Ring {
	ring := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		ring = append(ring, orb.Point{p.X, p.Y})
	}
	return append(ring, ring[0])
}
