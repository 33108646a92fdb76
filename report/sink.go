// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package report persists the result of a dispersion analysis: CSV tables,
// SVG plots, GeoJSON regions and a run manifest.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/2dChan/r2voronoi/arena"
	"github.com/2dChan/r2voronoi/dispersion"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	AreasFile      = "data_voronoiData.csv"
	DeviationsFile = "data_dispersionEvaluation.csv"
	SigmaFile      = "data_sigma.csv"
	DeviationsPlot = "plot_distsFromAreaRef.svg"
	SigmaPlot      = "plot_sigma.svg"
	ManifestFile   = "manifest.json"
	DiagramsDir    = "plots_Voronoi"
	RegionsDir     = "regions_Voronoi"

	runDirPrefix = "simVoronoi_"
	timeLayout   = "2006-01-02_15-04-05"
)

// Run describes one finished analysis.
type Run struct {
	// ID is generated when zero.
	ID     uuid.UUID
	States string
	Arena  *arena.Shape

	// ExpectedArea is the arena area recorded by the simulator, or zero.
	ExpectedArea float64
	// NumBots overrides the robot count used for AreaPerBot when positive.
	NumBots int

	Result *dispersion.Result
}

// AreaPerBot returns the arena area divided by the robot count.
func (r *Run) AreaPerBot() float64 {
	n := r.NumBots
	if n <= 0 {
		n = r.Result.NumRobots()
	}
	if n == 0 {
		return 0
	}
	return r.Arena.Area() / float64(n)
}

type Manifest struct {
	RunID         string            `json:"run_id"`
	CreatedAt     time.Time         `json:"created_at"`
	States        string            `json:"states,omitempty"`
	Arena         arena.Diagnostics `json:"arena"`
	Segments      int               `json:"segments"`
	Robots        int               `json:"robots"`
	Ticks         int               `json:"ticks"`
	Skipped       []SkippedTick     `json:"skipped"`
	AreaPerBot    float64           `json:"area_per_bot"`
	LegacyAreaRef float64           `json:"legacy_area_ref"`
	Files         []string          `json:"files"`
}

type SkippedTick struct {
	Tick      int64  `json:"tick"`
	NumPoints int    `json:"points"`
	Reason    string `json:"reason"`
}

type SinkOptions struct {
	Plots         bool
	GeoJSON       bool
	LegacyAreaRef bool
	Logger        *zap.Logger
	Now           func() time.Time
}

type SinkOption func(*SinkOptions) error

// WithPlots enables or disables the SVG plots.
func WithPlots(enabled bool) SinkOption {
	return func(o *SinkOptions) error {
		o.Plots = enabled
		return nil
	}
}

// WithGeoJSON writes the regions of every tick as GeoJSON.
func WithGeoJSON() SinkOption {
	return func(o *SinkOptions) error {
		o.GeoJSON = true
		return nil
	}
}

// WithLegacyAreaRef reports the reference area of the last tick in the
// AreaRef column of every deviations row and as the plot's reference line.
// Deviations are still taken against each tick's own reference area.
func WithLegacyAreaRef() SinkOption {
	return func(o *SinkOptions) error {
		o.LegacyAreaRef = true
		return nil
	}
}

func WithLogger(l *zap.Logger) SinkOption {
	return func(o *SinkOptions) error {
		if l == nil {
			return errors.New("report: nil logger")
		}
		o.Logger = l
		return nil
	}
}

// WithClock sets the time source used to name run directories.
func WithClock(now func() time.Time) SinkOption {
	return func(o *SinkOptions) error {
		if now == nil {
			return errors.New("report: nil clock")
		}
		o.Now = now
		return nil
	}
}

// Sink writes runs below a base directory, one timestamped directory per run.
type Sink struct {
	BaseDir string

	opts SinkOptions
}

func NewSink(baseDir string, setters ...SinkOption) (*Sink, error) {
	if baseDir == "" {
		return nil, errors.New("report: empty output directory")
	}
	opts := SinkOptions{
		Plots:  true,
		Logger: zap.NewNop(),
		Now:    time.Now,
	}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	return &Sink{BaseDir: baseDir, opts: opts}, nil
}

// Write persists run and returns the directory it was written to.
func (s *Sink) Write(run *Run) (string, error) {
	if run.Result == nil || run.Arena == nil {
		return "", errors.New("report: incomplete run")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	now := s.opts.Now()

	dir := filepath.Join(s.BaseDir, runDirPrefix+now.Format(timeLayout))
	if err := os.MkdirAll(s.BaseDir, 0o755); err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: %w", err)
	}
	log := s.opts.Logger.With(zap.String("run", run.ID.String()), zap.String("dir", dir))

	w := &dirWriter{dir: dir}
	res := run.Result
	w.file(AreasFile, func(f io.Writer) error { return WriteAreas(f, res) })
	w.file(DeviationsFile, func(f io.Writer) error {
		return WriteDeviations(f, res, run.AreaPerBot(), s.opts.LegacyAreaRef)
	})
	w.file(SigmaFile, func(f io.Writer) error { return WriteSigma(f, res.Sigma) })

	if s.opts.Plots && len(res.Records) > 0 {
		w.file(DeviationsPlot, func(f io.Writer) error {
			RenderDeviations(f, res, s.opts.LegacyAreaRef)
			return nil
		})
		w.file(SigmaPlot, func(f io.Writer) error {
			RenderSigma(f, res)
			return nil
		})
		w.mkdir(DiagramsDir)
		for _, rec := range res.Records {
			name := filepath.Join(DiagramsDir, tickFileName(rec, ".svg"))
			title := fmt.Sprintf("nSim=%d ticks=%d", rec.Index, rec.Tick)
			w.file(name, func(f io.Writer) error {
				RenderDiagram(f, run.Arena, rec.Diagram, title)
				return nil
			})
		}
	}
	if s.opts.GeoJSON {
		w.mkdir(RegionsDir)
		for _, rec := range res.Records {
			name := filepath.Join(RegionsDir, tickFileName(rec, ".geojson"))
			w.file(name, func(f io.Writer) error { return WriteRegions(f, run.Arena, rec) })
		}
	}

	m := s.manifest(run, now, w.files)
	w.file(ManifestFile, func(f io.Writer) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
	if w.err != nil {
		return "", w.err
	}

	log.Info("results written",
		zap.Int("files", len(w.files)),
		zap.Int("ticks", len(res.Records)))
	return dir, nil
}

func (s *Sink) manifest(run *Run, now time.Time, files []string) Manifest {
	skipped := make([]SkippedTick, 0, len(run.Result.Skipped))
	for _, te := range run.Result.Skipped {
		skipped = append(skipped, SkippedTick{Tick: te.Tick, NumPoints: te.NumPoints, Reason: te.Err.Error()})
	}
	return Manifest{
		RunID:         run.ID.String(),
		CreatedAt:     now,
		States:        run.States,
		Arena:         run.Arena.Diagnostics(run.ExpectedArea),
		Segments:      run.Arena.Segments(),
		Robots:        run.Result.NumRobots(),
		Ticks:         len(run.Result.Records),
		Skipped:       skipped,
		AreaPerBot:    run.AreaPerBot(),
		LegacyAreaRef: run.Result.LegacyAreaRef(),
		Files:         append([]string(nil), files...),
	}
}

func tickFileName(rec dispersion.TickRecord, ext string) string {
	return fmt.Sprintf("nSim=%d_ticks=%d%s", rec.Index, rec.Tick, ext)
}

// dirWriter creates files below dir and keeps the first error.
type dirWriter struct {
	dir   string
	files []string
	err   error
}

func (w *dirWriter) mkdir(name string) {
	if w.err != nil {
		return
	}
	if err := os.Mkdir(filepath.Join(w.dir, name), 0o755); err != nil {
		w.err = fmt.Errorf("report: %w", err)
	}
}

func (w *dirWriter) file(name string, write func(io.Writer) error) {
	if w.err != nil {
		return
	}
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		w.err = fmt.Errorf("report: %w", err)
		return
	}
	if err := write(f); err != nil {
		f.Close()
		w.err = fmt.Errorf("report: %s: %w", name, err)
		return
	}
	if err := f.Close(); err != nil {
		w.err = fmt.Errorf("report: %w", err)
		return
	}
	w.files = append(w.files, filepath.ToSlash(name))
}
