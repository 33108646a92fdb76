// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package dispersion

import (
	"context"
	"errors"
	"fmt"

	"github.com/2dChan/r2voronoi"
	"github.com/2dChan/r2voronoi/arena"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AnalyzerOptions struct {
	Workers        int
	Strict         bool
	Logger         *zap.Logger
	DiagramOptions []r2voronoi.DiagramOption
}

type AnalyzerOption func(*AnalyzerOptions) error

// WithWorkers sets the number of ticks partitioned concurrently.
func WithWorkers(n int) AnalyzerOption {
	return func(o *AnalyzerOptions) error {
		if n < 1 {
			return fmt.Errorf("dispersion: workers must be positive, got %d", n)
		}
		o.Workers = n
		return nil
	}
}

// WithStrict makes the first failing tick abort the run instead of being skipped.
func WithStrict() AnalyzerOption {
	return func(o *AnalyzerOptions) error {
		o.Strict = true
		return nil
	}
}

func WithLogger(l *zap.Logger) AnalyzerOption {
	return func(o *AnalyzerOptions) error {
		if l == nil {
			return errors.New("dispersion: nil logger")
		}
		o.Logger = l
		return nil
	}
}

// WithDiagramOptions passes opts to every diagram the analyzer builds.
func WithDiagramOptions(opts ...r2voronoi.DiagramOption) AnalyzerOption {
	return func(o *AnalyzerOptions) error {
		o.DiagramOptions = append(o.DiagramOptions, opts...)
		return nil
	}
}

// Analyzer runs the dispersion pipeline over the ticks of one experiment.
// The arena is shared read-only by all ticks.
type Analyzer struct {
	Arena *arena.Shape

	opts AnalyzerOptions
}

func NewAnalyzer(shape *arena.Shape, setters ...AnalyzerOption) (*Analyzer, error) {
	if shape == nil {
		return nil, errors.New("dispersion: nil arena")
	}
	opts := AnalyzerOptions{
		Workers: 1,
		Logger:  zap.NewNop(),
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	return &Analyzer{Arena: shape, opts: opts}, nil
}

// AnalyzeTick partitions the arena among the robots of t and evaluates the
// resulting areas. Errors are returned as *TickError.
func (a *Analyzer) AnalyzeTick(t Tick) (TickRecord, error) {
	vd, err := r2voronoi.NewDiagram(t.Positions, a.Arena, a.opts.DiagramOptions...)
	if err != nil {
		return TickRecord{}, a.tickError(t, err)
	}
	areaRef, deviations, err := Evaluate(vd.Areas)
	if err != nil {
		return TickRecord{}, a.tickError(t, err)
	}
	sigma, err := StandardDeviation(vd.Areas)
	if err != nil {
		return TickRecord{}, a.tickError(t, err)
	}
	return TickRecord{
		Tick:       t.ID,
		Areas:      vd.Areas,
		AreaRef:    areaRef,
		Deviations: deviations,
		Sigma:      sigma,
		Outside:    vd.SitesOutside(),
		Diagram:    vd,
	}, nil
}

func (a *Analyzer) tickError(t Tick, err error) *TickError {
	return &TickError{
		Tick:      t.ID,
		NumPoints: len(t.Positions),
		Arena:     a.Arena.String(),
		Err:       err,
	}
}

// Run analyses ticks and returns the records in input order. Ticks with
// invalid positions or failed partitions are logged and skipped unless the
// analyzer is strict.
func (a *Analyzer) Run(ctx context.Context, ticks []Tick) (*Result, error) {
	if len(ticks) == 0 {
		return nil, fmt.Errorf("%w: no ticks", ErrInvalidInput)
	}
	log := a.opts.Logger

	type slot struct {
		rec TickRecord
		err *TickError
	}
	slots := make([]slot, len(ticks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i := range ticks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := a.AnalyzeTick(ticks[i])
			if err == nil {
				rec.Index = i
				slots[i].rec = rec
				return nil
			}
			var te *TickError
			if !errors.As(err, &te) || a.opts.Strict || !skippable(err) {
				return err
			}
			slots[i].err = te
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var acc Accumulator
	for _, s := range slots {
		if s.err != nil {
			log.Warn("skipping tick",
				zap.Int64("tick", s.err.Tick),
				zap.Int("points", s.err.NumPoints),
				zap.Error(s.err.Err))
			acc.Skip(s.err)
			continue
		}
		if len(s.rec.Outside) > 0 {
			log.Warn("robots outside arena",
				zap.Int64("tick", s.rec.Tick),
				zap.Ints("indices", s.rec.Outside))
		}
		log.Debug("tick analyzed",
			zap.Int64("tick", s.rec.Tick),
			zap.Float64("areaRef", s.rec.AreaRef),
			zap.Float64("sigma", s.rec.Sigma))
		acc.Add(s.rec)
	}

	res := acc.Result()
	log.Info("analysis finished",
		zap.Stringer("arena", a.Arena),
		zap.Int("ticks", len(res.Records)),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func skippable(err error) bool {
	return errors.Is(err, r2voronoi.ErrInvalidInput) || errors.Is(err, r2voronoi.ErrPartitionFailure)
}
