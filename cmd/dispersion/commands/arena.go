// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package commands

import (
	"fmt"

	"github.com/2dChan/r2voronoi/arena"
	"github.com/2dChan/r2voronoi/config"
	"github.com/2dChan/r2voronoi/internal/printer"
	"github.com/2dChan/r2voronoi/kilombo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// arenaFlags holds the arena flags shared by several commands.
type arenaFlags struct {
	kind        string
	radius      float64
	innerRadius float64
	outerRadius float64
	segments    int
}

func (f *arenaFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.kind, "arena", "", "Arena kind: disk or annulus (inferred from simulation.json when unset)")
	flags.Float64Var(&f.radius, "radius", config.DefaultRadius, "Disk radius in mm")
	flags.Float64Var(&f.innerRadius, "inner-radius", config.DefaultInnerRadius, "Annulus inner radius in mm")
	flags.Float64Var(&f.outerRadius, "outer-radius", config.DefaultOuterRadius, "Annulus outer radius in mm")
	flags.IntVar(&f.segments, "segments", config.DefaultSegments, "Number of polygon segments per circle")
}

// apply copies every flag set on the command line into c.
func (f *arenaFlags) apply(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("arena") {
		c.Arena.Kind = f.kind
	}
	if flags.Changed("radius") {
		c.Arena.RadiusMM = f.radius
	}
	if flags.Changed("inner-radius") {
		c.Arena.InnerRadiusMM = f.innerRadius
	}
	if flags.Changed("outer-radius") {
		c.Arena.OuterRadiusMM = f.outerRadius
	}
	if flags.Changed("segments") {
		c.Arena.Segments = f.segments
	}
}

func newArenaCommand() *cobra.Command {
	var (
		af           arenaFlags
		simulation   string
		expectedArea float64
	)

	cmd := &cobra.Command{
		Use:   "arena",
		Short: "Show the polygonal arena and its area diagnostics",
		Long: `Build the polygonal approximation of an arena and compare its area with the
exact circular area and, when known, the area recorded by the simulator.`,
		Example: `  dispersion arena --arena annulus --inner-radius 50 --outer-radius 150
  dispersion arena --simulation simulation.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.Default()
			af.apply(cmd, c)

			var fileName string
			if simulation != "" {
				sim, err := kilombo.LoadSimulation(simulation)
				if err != nil {
					return fail("Failed to load simulation", err,
						"Check that the file exists and is valid JSON")
				}
				fileName = sim.ArenaFileName
				if !cmd.Flags().Changed("expected-area") {
					expectedArea = sim.ArenaNormalizedArea
				}
			}
			if c.Arena.Kind == "" && fileName == "" {
				c.Arena.Kind = arena.Disk.String()
			}

			shape, err := buildArena(c, fileName)
			if err != nil {
				return err
			}
			printDiagnostics(shape.Diagnostics(expectedArea), shape.Segments())
			return nil
		},
	}
	af.register(cmd)
	cmd.Flags().StringVar(&simulation, "simulation", "", "Path to simulation.json")
	cmd.Flags().Float64Var(&expectedArea, "expected-area", 0, "Expected arena area to compare against")
	return cmd
}

// buildArena validates the arena part of c and builds the shape.
func buildArena(c *config.Config, arenaFileName string) (*arena.Shape, error) {
	kind, err := c.ResolveKind(arenaFileName)
	if err != nil {
		return nil, fail("Cannot determine arena kind", err,
			"Pass --arena disk or --arena annulus",
			"Set arena.kind in the config file")
	}
	shape, err := c.BuildArena(kind)
	if err != nil {
		return nil, fail("Invalid arena", err, "Check the arena radii and segment count")
	}
	logger.Debug("arena built",
		zap.Stringer("arena", shape),
		zap.Float64("area", shape.Area()),
		zap.Float64("exact_area", shape.ExactArea()))
	return shape, nil
}

func printDiagnostics(d arena.Diagnostics, segments int) {
	rows := [][2]string{
		{"kind", d.Kind.String()},
	}
	if d.Kind == arena.Annulus {
		rows = append(rows,
			[2]string{"inner radius", fmt.Sprintf("%g mm", d.InnerRadius)},
			[2]string{"outer radius", fmt.Sprintf("%g mm", d.OuterRadius)})
	} else {
		rows = append(rows, [2]string{"radius", fmt.Sprintf("%g mm", d.OuterRadius)})
	}
	rows = append(rows,
		[2]string{"segments", fmt.Sprintf("%d", segments)},
		[2]string{"polygon area", fmt.Sprintf("%.6g mm²", d.PolygonArea)},
		[2]string{"exact area", fmt.Sprintf("%.6g mm²", d.ExactArea)})
	if d.ExpectedArea > 0 {
		rel := (d.PolygonArea - d.ExpectedArea) / d.ExpectedArea
		rows = append(rows,
			[2]string{"expected area", fmt.Sprintf("%.6g mm²", d.ExpectedArea)},
			[2]string{"difference", fmt.Sprintf("%+.3f%%", 100*rel)})
	}
	printer.Section("Arena", rows)
}
