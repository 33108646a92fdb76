// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/2dChan/r2voronoi/internal/printer"
	"github.com/2dChan/r2voronoi/kilombo"
	"github.com/2dChan/r2voronoi/report"
	"github.com/2dChan/r2voronoi/utils"
	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	out, _, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "analyze")
	assert.Contains(t, out, "relax")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := execute(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestArenaCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "default disk",
			args: []string{"arena"},
			want: []string{"kind", "disk", "radius", "150 mm", "segments", "64"},
		},
		{
			name: "annulus",
			args: []string{"arena", "--arena", "annulus", "--inner-radius", "40", "--outer-radius", "120"},
			want: []string{"annulus", "inner radius", "40 mm", "outer radius", "120 mm"},
		},
		{
			name: "expected area",
			args: []string{"arena", "--expected-area", "70685.8"},
			want: []string{"expected area", "difference"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, printed, err := execute(t, tt.args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, printed, w)
			}
		})
	}
}

func TestArenaCommand_InferFromSimulation(t *testing.T) {
	dir := t.TempDir()
	sim := writeJSON(t, dir, "simulation.json", map[string]any{
		"arenaFileName":       "arenas/annulus.csv",
		"arenaNormalizedArea": 62500.0,
		"nBots":               12,
	})

	_, printed, err := execute(t, "arena", "--simulation", sim)
	require.NoError(t, err)
	assert.Contains(t, printed, "annulus")
	assert.Contains(t, printed, "62500")
}

func TestArenaCommand_InvalidRadius(t *testing.T) {
	_, _, err := execute(t, "arena", "--radius", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid arena")
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	states := writeStates(t, dir, 12)
	out := filepath.Join(dir, "out")

	_, printed, err := execute(t, "analyze",
		"--states", states,
		"--arena", "disk",
		"--workers", "2",
		"--geojson",
		"--out", out)
	require.NoError(t, err)
	assert.Contains(t, printed, "Analyzed 3 ticks of 12 robots")

	runDir := singleRunDir(t, out)
	for _, name := range []string{
		report.AreasFile,
		report.DeviationsFile,
		report.SigmaFile,
		report.DeviationsPlot,
		report.SigmaPlot,
		report.ManifestFile,
		filepath.Join(report.DiagramsDir, "nSim=0_ticks=0.svg"),
		filepath.Join(report.RegionsDir, "nSim=2_ticks=200.geojson"),
	} {
		assert.FileExists(t, filepath.Join(runDir, name))
	}

	var m report.Manifest
	data, err := os.ReadFile(filepath.Join(runDir, report.ManifestFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, 12, m.Robots)
	assert.Equal(t, 3, m.Ticks)
	assert.Empty(t, m.Skipped)
	assert.NotEmpty(t, m.RunID)
}

func TestAnalyzeCommand_Config(t *testing.T) {
	dir := t.TempDir()
	states := writeStates(t, dir, 10)
	out := filepath.Join(dir, "results")
	cfg := filepath.Join(dir, "dispersion.yaml")
	content := `version: "1.0"
input:
  states: ` + states + `
arena:
  kind: disk
  radius_mm: 150
output:
  dir: ` + out + `
  plots: false
`
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o644))

	_, _, err := execute(t, "analyze", "--config", cfg)
	require.NoError(t, err)

	runDir := singleRunDir(t, out)
	assert.FileExists(t, filepath.Join(runDir, report.AreasFile))
	assert.NoFileExists(t, filepath.Join(runDir, report.SigmaPlot))
}

func TestAnalyzeCommand_SkipsInvalidTick(t *testing.T) {
	dir := t.TempDir()
	good := utils.GenerateRandomPoints(6, 3, 0, 140)
	line := []r2.Point{{X: 0}, {X: 10}, {X: 20}, {X: 30}, {X: 40}, {X: 50}}
	states := writeJSON(t, dir, "states.json", []kilombo.Snapshot{
		kilombo.NewSnapshot(0, good),
		kilombo.NewSnapshot(100, line),
	})
	out := filepath.Join(dir, "out")

	_, printed, err := execute(t, "analyze", "--states", states, "--arena", "disk", "--no-plots", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, printed, "1 ticks skipped")
	assert.Contains(t, printed, "tick 100")

	_, _, err = execute(t, "analyze", "--states", states, "--arena", "disk", "--no-plots", "--strict", "--out", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Analysis failed")
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	states := writeStates(t, dir, 5)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "missing states",
			args: []string{"analyze", "--arena", "disk"},
			want: "Invalid configuration",
		},
		{
			name: "states not found",
			args: []string{"analyze", "--arena", "disk", "--states", filepath.Join(dir, "missing.json")},
			want: "Failed to load states",
		},
		{
			name: "unknown kind",
			args: []string{"analyze", "--arena", "square", "--states", states},
			want: "Invalid configuration",
		},
		{
			name: "kind not inferable",
			args: []string{"analyze", "--states", states},
			want: "Cannot determine arena kind",
		},
		{
			name: "config not found",
			args: []string{"analyze", "--config", filepath.Join(dir, "missing.yaml")},
			want: "Failed to load config",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

func TestRelaxCommand(t *testing.T) {
	dir := t.TempDir()
	endstate := filepath.Join(dir, "endstate.json")
	svg := filepath.Join(dir, "relaxed.svg")

	_, printed, err := execute(t, "relax",
		"--arena", "annulus",
		"--robots", "16",
		"--steps", "10",
		"--seed", "7",
		"--write", endstate,
		"--svg", svg)
	require.NoError(t, err)
	assert.Contains(t, printed, "sigma before")
	assert.Contains(t, printed, "sigma after")
	assert.FileExists(t, svg)

	snaps, err := kilombo.LoadStates(endstate)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, int64(10), snaps[0].Ticks)
	assert.Len(t, snaps[0].BotStates, 16)

	// The relaxed layout is a valid input for analyze.
	_, _, err = execute(t, "analyze",
		"--states", endstate,
		"--arena", "annulus",
		"--no-plots",
		"--out", filepath.Join(dir, "out"))
	require.NoError(t, err)
}

func TestRelaxCommand_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "one robot", args: []string{"relax", "--robots", "1"}, want: "Invalid robot count"},
		{name: "negative steps", args: []string{"relax", "--steps", "-1"}, want: "Invalid step count"},
		{name: "positional", args: []string{"relax", "extra"}, want: "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// execute runs the command tree with args and returns the cobra output, the
// printer output and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	printer.SetOutput(out, errOut)
	t.Cleanup(func() { printer.SetOutput(os.Stdout, os.Stderr) })

	root := NewRootCommand()
	cobraOut := new(bytes.Buffer)
	root.SetOut(cobraOut)
	root.SetErr(cobraOut)
	root.SetArgs(args)
	err := root.Execute()
	return cobraOut.String(), out.String() + errOut.String(), err
}

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// writeStates writes three snapshots of n robots inside a 150 mm disk.
func writeStates(t *testing.T, dir string, n int) string {
	t.Helper()
	snaps := make([]kilombo.Snapshot, 3)
	for i := range snaps {
		pts := utils.GenerateRandomPoints(n, int64(i+1), 0, 140)
		snaps[i] = kilombo.NewSnapshot(int64(100*i), pts)
	}
	return writeJSON(t, dir, "states.json", snaps)
}

func singleRunDir(t *testing.T, base string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(base, "simVoronoi_*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	return matches[0]
}
