// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package dispersion measures how evenly a swarm covers its arena, using
// the areas of the arena-restricted Voronoi regions of the robots.
package dispersion

import (
	"fmt"
	"math"

	"github.com/2dChan/r2voronoi"
	"github.com/golang/geo/r2"
)

// ErrInvalidInput is returned for empty area or value sets. It is the same
// sentinel the partitioner uses for unusable site sets.
var ErrInvalidInput = r2voronoi.ErrInvalidInput

// Tick is one recorded moment of the experiment.
type Tick struct {
	ID        int64
	Positions []r2.Point
}

// TickRecord holds the regions of one tick and the statistics derived from them.
type TickRecord struct {
	// Index is the position of the tick in the analysed sequence.
	Index int
	Tick  int64

	// NOTE: Areas[i] and Deviations[i] belong to robot i of the tick.
	Areas      []float64
	AreaRef    float64
	Deviations []float64
	Sigma      float64

	// Indices of robots outside the arena.
	Outside []int

	Diagram *r2voronoi.Diagram
}

type SigmaPoint struct {
	Tick  int64
	Sigma float64
}

// SigmaSeries is the standard deviation of region areas over time, in
// processing order.
type SigmaSeries []SigmaPoint

// Values returns the sigma values without tick ids.
func (s SigmaSeries) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Sigma
	}
	return out
}

// TickError reports a tick that could not be analysed.
type TickError struct {
	Tick      int64
	NumPoints int
	Arena     string
	Err       error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("dispersion: tick %d (%d points, %s): %v", e.Tick, e.NumPoints, e.Arena, e.Err)
}

func (e *TickError) Unwrap() error {
	return e.Err
}

// Evaluate returns the mean region area and the signed deviation of every
// region from it. The deviations sum to zero up to rounding.
func Evaluate(areas []float64) (float64, []float64, error) {
	if len(areas) == 0 {
		return 0, nil, fmt.Errorf("%w: no areas to evaluate", ErrInvalidInput)
	}
	areaRef := mean(areas)
	deviations := make([]float64, len(areas))
	for i, a := range areas {
		deviations[i] = a - areaRef
	}
	return areaRef, deviations, nil
}

// StandardDeviation returns the population standard deviation of values.
func StandardDeviation(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: no values", ErrInvalidInput)
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values))), nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Accumulator collects the records of a single run in processing order.
// The zero value is ready to use.
type Accumulator struct {
	records []TickRecord
	skipped []*TickError
}

func (a *Accumulator) Add(rec TickRecord) {
	a.records = append(a.records, rec)
}

func (a *Accumulator) Skip(err *TickError) {
	a.skipped = append(a.skipped, err)
}

// Len returns the number of accepted records.
func (a *Accumulator) Len() int {
	return len(a.records)
}

// Result reduces the accumulated records into the sigma series.
func (a *Accumulator) Result() *Result {
	sigma := make(SigmaSeries, len(a.records))
	for i, rec := range a.records {
		sigma[i] = SigmaPoint{Tick: rec.Tick, Sigma: rec.Sigma}
	}
	return &Result{
		Records: a.records,
		Sigma:   sigma,
		Skipped: a.skipped,
	}
}

type Result struct {
	Records []TickRecord
	Sigma   SigmaSeries
	Skipped []*TickError
}

// LegacyAreaRef returns the reference area of the last processed tick, the
// single value older analysis output reported for the whole run.
// It returns zero when no tick was processed.
func (r *Result) LegacyAreaRef() float64 {
	if len(r.Records) == 0 {
		return 0
	}
	return r.Records[len(r.Records)-1].AreaRef
}

// NumRobots returns the robot count of the processed ticks, or zero.
func (r *Result) NumRobots() int {
	if len(r.Records) == 0 {
		return 0
	}
	return len(r.Records[0].Areas)
}
