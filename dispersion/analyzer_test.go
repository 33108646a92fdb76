// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package dispersion

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/2dChan/r2voronoi"
	"github.com/2dChan/r2voronoi/arena"
	"github.com/2dChan/r2voronoi/utils"
	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestAnalyzerOptions(t *testing.T) {
	tests := []struct {
		name    string
		opt     AnalyzerOption
		wantErr bool
	}{
		{"workers positive", WithWorkers(4), false},
		{"workers zero", WithWorkers(0), true},
		{"workers negative", WithWorkers(-2), true},
		{"strict", WithStrict(), false},
		{"logger", WithLogger(zap.NewNop()), false},
		{"nil logger", WithLogger(nil), true},
		{"diagram options", WithDiagramOptions(r2voronoi.AllowCollinear()), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &AnalyzerOptions{}
			err := tt.opt(opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("option error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewAnalyzer_NilArena(t *testing.T) {
	if _, err := NewAnalyzer(nil); err == nil {
		t.Errorf("NewAnalyzer(nil) error = nil, want non-nil")
	}
}

func TestAnalyzer_SymmetricDisk(t *testing.T) {
	shape := mustNewArena(t, 0)
	a := mustNewAnalyzer(t, shape)
	tick := Tick{ID: 1, Positions: []r2.Point{{X: 75, Y: 0}, {X: 0, Y: 75}, {X: -75, Y: 0}, {X: 0, Y: -75}}}

	rec, err := a.AnalyzeTick(tick)
	if err != nil {
		t.Fatalf("a.AnalyzeTick(...) error = %v, want nil", err)
	}
	want := shape.Area() / 4
	if diff := cmp.Diff([]float64{want, want, want, want}, rec.Areas, cmpopts.EquateApprox(1e-9, 0)); diff != "" {
		t.Errorf("rec.Areas mismatch (-want +got):\n%s", diff)
	}
	if math.Abs(rec.AreaRef-want) > 1e-9*want {
		t.Errorf("rec.AreaRef = %v, want %v", rec.AreaRef, want)
	}
	for i, d := range rec.Deviations {
		if math.Abs(d) > 1e-9*want {
			t.Errorf("rec.Deviations[%d] = %v, want 0", i, d)
		}
	}
	if rec.Sigma > 1e-9*want {
		t.Errorf("rec.Sigma = %v, want 0", rec.Sigma)
	}
}

func TestAnalyzer_PerfectDispersion(t *testing.T) {
	shape := mustNewArena(t, 50)
	a := mustNewAnalyzer(t, shape)
	tick := Tick{ID: 0, Positions: utils.RegularPolygonPoints(8, 100, 0)}

	rec, err := a.AnalyzeTick(tick)
	if err != nil {
		t.Fatalf("a.AnalyzeTick(...) error = %v, want nil", err)
	}
	if rec.Sigma > 1e-9*rec.AreaRef {
		t.Errorf("rec.Sigma = %v, want 0", rec.Sigma)
	}
}

func TestAnalyzer_Run(t *testing.T) {
	shape := mustNewArena(t, 50)
	ticks := randomTicks(10, 25, 50)

	core, logs := observer.New(zap.DebugLevel)
	a := mustNewAnalyzer(t, shape, WithLogger(zap.New(core)))

	res, err := a.Run(context.Background(), ticks)
	if err != nil {
		t.Fatalf("a.Run(...) error = %v, want nil", err)
	}
	if got := len(res.Records); got != len(ticks) {
		t.Fatalf("len(res.Records) = %v, want %v", got, len(ticks))
	}
	for i, rec := range res.Records {
		if rec.Tick != ticks[i].ID {
			t.Errorf("res.Records[%d].Tick = %v, want %v", i, rec.Tick, ticks[i].ID)
		}
		total := 0.0
		for _, area := range rec.Areas {
			total += area
		}
		if math.Abs(total-shape.Area()) > 1e-6*shape.Area() {
			t.Errorf("tick %d areas sum to %v, want %v", rec.Tick, total, shape.Area())
		}
		if res.Sigma[i].Tick != rec.Tick || res.Sigma[i].Sigma != rec.Sigma {
			t.Errorf("res.Sigma[%d] = %v, want tick %d sigma %v", i, res.Sigma[i], rec.Tick, rec.Sigma)
		}
	}
	if got := logs.FilterMessage("tick analyzed").Len(); got != len(ticks) {
		t.Errorf("logged %d analyzed ticks, want %d", got, len(ticks))
	}
	if got := logs.FilterMessage("analysis finished").Len(); got != 1 {
		t.Errorf("logged %d run summaries, want 1", got)
	}
}

func TestAnalyzer_RunWorkers(t *testing.T) {
	shape := mustNewArena(t, 0)
	ticks := randomTicks(16, 30, 0)
	ticks[5].Positions[3] = ticks[5].Positions[0]

	seq := mustNewAnalyzer(t, shape)
	want, err := seq.Run(context.Background(), ticks)
	if err != nil {
		t.Fatalf("seq.Run(...) error = %v, want nil", err)
	}
	par := mustNewAnalyzer(t, shape, WithWorkers(4))
	got, err := par.Run(context.Background(), ticks)
	if err != nil {
		t.Fatalf("par.Run(...) error = %v, want nil", err)
	}

	ignore := cmpopts.IgnoreFields(TickRecord{}, "Diagram")
	if diff := cmp.Diff(want.Records, got.Records, ignore); diff != "" {
		t.Errorf("records mismatch (-sequential +parallel):\n%s", diff)
	}
	if diff := cmp.Diff(want.Sigma, got.Sigma); diff != "" {
		t.Errorf("sigma mismatch (-sequential +parallel):\n%s", diff)
	}
	if len(got.Skipped) != 1 || got.Skipped[0].Tick != ticks[5].ID {
		t.Errorf("got.Skipped = %v, want tick %d", got.Skipped, ticks[5].ID)
	}
}

func TestAnalyzer_RunSkipsInvalidTick(t *testing.T) {
	shape := mustNewArena(t, 0)
	ticks := randomTicks(3, 10, 0)
	ticks[1].Positions[4] = ticks[1].Positions[2]

	core, logs := observer.New(zap.WarnLevel)
	a := mustNewAnalyzer(t, shape, WithLogger(zap.New(core)))

	res, err := a.Run(context.Background(), ticks)
	if err != nil {
		t.Fatalf("a.Run(...) error = %v, want nil", err)
	}
	if got := len(res.Records); got != 2 {
		t.Fatalf("len(res.Records) = %v, want 2", got)
	}
	if got := res.Records[1].Index; got != 2 {
		t.Errorf("res.Records[1].Index = %v, want 2", got)
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("len(res.Skipped) = %v, want 1", len(res.Skipped))
	}
	skipped := res.Skipped[0]
	if skipped.Tick != ticks[1].ID || skipped.NumPoints != 10 {
		t.Errorf("res.Skipped[0] = %v, want tick %d with 10 points", skipped, ticks[1].ID)
	}
	if !errors.Is(skipped, ErrInvalidInput) {
		t.Errorf("errors.Is(res.Skipped[0], ErrInvalidInput) = false, want true")
	}
	entries := logs.FilterMessage("skipping tick").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d skipped ticks, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["tick"]; got != ticks[1].ID {
		t.Errorf("skip log tick = %v, want %v", got, ticks[1].ID)
	}
}

func TestAnalyzer_RunStrict(t *testing.T) {
	shape := mustNewArena(t, 0)
	ticks := randomTicks(3, 10, 0)
	ticks[2].Positions[1] = ticks[2].Positions[0]

	a := mustNewAnalyzer(t, shape, WithStrict())
	res, err := a.Run(context.Background(), ticks)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("a.Run(...) error = %v, want ErrInvalidInput", err)
	}
	var te *TickError
	if !errors.As(err, &te) || te.Tick != ticks[2].ID {
		t.Errorf("a.Run(...) error = %v, want *TickError for tick %d", err, ticks[2].ID)
	}
	if res != nil {
		t.Errorf("a.Run(...) result = %v, want nil", res)
	}
}

func TestAnalyzer_RunOutsideWarning(t *testing.T) {
	shape := mustNewArena(t, 0)
	tick := Tick{ID: 42, Positions: []r2.Point{{X: 300, Y: 10}, {X: -60, Y: 40}, {X: -60, Y: -40}, {X: 20, Y: 70}}}

	core, logs := observer.New(zap.WarnLevel)
	a := mustNewAnalyzer(t, shape, WithLogger(zap.New(core)))
	res, err := a.Run(context.Background(), []Tick{tick})
	if err != nil {
		t.Fatalf("a.Run(...) error = %v, want nil", err)
	}
	if diff := cmp.Diff([]int{0}, res.Records[0].Outside); diff != "" {
		t.Errorf("res.Records[0].Outside mismatch (-want +got):\n%s", diff)
	}
	if got := logs.FilterMessage("robots outside arena").Len(); got != 1 {
		t.Errorf("logged %d outside warnings, want 1", got)
	}
}

func TestAnalyzer_RunNoTicks(t *testing.T) {
	a := mustNewAnalyzer(t, mustNewArena(t, 0))
	if _, err := a.Run(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("a.Run(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestAnalyzer_RunCanceled(t *testing.T) {
	a := mustNewAnalyzer(t, mustNewArena(t, 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Run(ctx, randomTicks(2, 5, 0)); !errors.Is(err, context.Canceled) {
		t.Errorf("a.Run(canceled) error = %v, want context.Canceled", err)
	}
}

func TestAnalyzer_Idempotent(t *testing.T) {
	a := mustNewAnalyzer(t, mustNewArena(t, 50))
	ticks := randomTicks(4, 20, 50)

	first, err := a.Run(context.Background(), ticks)
	if err != nil {
		t.Fatalf("a.Run(...) error = %v, want nil", err)
	}
	second, err := a.Run(context.Background(), ticks)
	if err != nil {
		t.Fatalf("a.Run(...) error = %v, want nil", err)
	}
	for i := range first.Records {
		if diff := cmp.Diff(first.Records[i].Areas, second.Records[i].Areas); diff != "" {
			t.Errorf("tick %d areas differ between runs (-first +second):\n%s", first.Records[i].Tick, diff)
		}
	}
	if diff := cmp.Diff(first.Sigma.Values(), second.Sigma.Values(), approx); diff != "" {
		t.Errorf("sigma differs between runs (-first +second):\n%s", diff)
	}
}

// Benchmarks

func BenchmarkAnalyzerRun(b *testing.B) {
	shape, err := arena.NewAnnulus(50, 150)
	if err != nil {
		b.Fatal(err)
	}
	ticks := randomTicks(20, 40, 50)
	a, err := NewAnalyzer(shape, WithDiagramOptions(r2voronoi.AllowCollinear()))
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := a.Run(context.Background(), ticks); err != nil {
			b.Fatalf("a.Run(...) error = %v, want nil", err)
		}
	}
}

// Helpers

func mustNewArena(t *testing.T, inner float64) *arena.Shape {
	t.Helper()
	kind, p := arena.Disk, arena.Params{Radius: 150}
	if inner > 0 {
		kind, p = arena.Annulus, arena.Params{InnerRadius: inner, OuterRadius: 150}
	}
	s, err := arena.Build(kind, p)
	if err != nil {
		t.Fatalf("arena.Build(%v, %+v) error = %v, want nil", kind, p, err)
	}
	return s
}

func mustNewAnalyzer(t *testing.T, shape *arena.Shape, setters ...AnalyzerOption) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(shape, setters...)
	if err != nil {
		t.Fatalf("NewAnalyzer(...) error = %v, want nil", err)
	}
	return a
}

func randomTicks(n, robots int, inner float64) []Tick {
	ticks := make([]Tick, n)
	for i := range ticks {
		ticks[i] = Tick{
			ID:        int64(i * 100),
			Positions: utils.GenerateRandomPoints(robots, int64(i), inner*1.05, 145),
		}
	}
	return ticks
}
