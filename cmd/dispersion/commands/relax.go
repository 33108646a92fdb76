// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package commands

import (
	"fmt"
	"math"
	"os"

	"github.com/2dChan/r2voronoi"
	"github.com/2dChan/r2voronoi/arena"
	"github.com/2dChan/r2voronoi/config"
	"github.com/2dChan/r2voronoi/dispersion"
	"github.com/2dChan/r2voronoi/internal/printer"
	"github.com/2dChan/r2voronoi/kilombo"
	"github.com/2dChan/r2voronoi/report"
	"github.com/2dChan/r2voronoi/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRelaxCommand() *cobra.Command {
	var (
		af      arenaFlags
		robots  int
		steps   int
		seed    int64
		write   string
		svgPath string
	)

	cmd := &cobra.Command{
		Use:   "relax",
		Short: "Spread random robots over an arena with Lloyd relaxation",
		Long: `Place robots uniformly at random in the arena, move each robot to the
centroid of its Voronoi region for a number of steps and report the standard
deviation of the region areas before and after. The relaxed positions can be
written as a kilombo endstate to serve as a reference layout.`,
		Example: `  dispersion relax --arena annulus --robots 40 --steps 50
  dispersion relax --robots 25 --write endstate.json --svg relaxed.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if robots < 2 {
				return fail("Invalid robot count", fmt.Errorf("need at least 2 robots, got %d", robots))
			}
			if steps < 0 {
				return fail("Invalid step count", fmt.Errorf("negative steps %d", steps))
			}

			c := config.Default()
			af.apply(cmd, c)
			if c.Arena.Kind == "" {
				c.Arena.Kind = arena.Disk.String()
			}
			shape, err := buildArena(c, "")
			if err != nil {
				return err
			}

			// Keep sites off the polygon edges.
			outer := shape.OuterRadius() * math.Cos(math.Pi/float64(shape.Segments()))
			sites := utils.GenerateRandomPoints(robots, seed, shape.InnerRadius(), outer)
			vd, err := r2voronoi.NewDiagram(sites, shape)
			if err != nil {
				return fail("Failed to build diagram", err, "Try another --seed")
			}
			before, _, err := dispersion.Evaluate(vd.Areas)
			if err != nil {
				return fail("Failed to evaluate diagram", err)
			}
			sigmaBefore, _ := dispersion.StandardDeviation(vd.Areas)

			if err := vd.Relax(steps); err != nil {
				return fail("Relaxation failed", err, "Try fewer --steps or another --seed")
			}
			sigmaAfter, _ := dispersion.StandardDeviation(vd.Areas)
			logger.Debug("relaxed",
				zap.Int("robots", robots),
				zap.Int("steps", steps),
				zap.Float64("sigma_before", sigmaBefore),
				zap.Float64("sigma_after", sigmaAfter))

			printer.Section("Relaxation", [][2]string{
				{"arena", shape.String()},
				{"robots", fmt.Sprintf("%d", robots)},
				{"steps", fmt.Sprintf("%d", steps)},
				{"area ref", fmt.Sprintf("%.6g mm²", before)},
				{"sigma before", fmt.Sprintf("%.6g", sigmaBefore)},
				{"sigma after", fmt.Sprintf("%.6g", sigmaAfter)},
			})

			if write != "" {
				if err := writeFile(write, func(f *os.File) error {
					return kilombo.WriteEndState(f, kilombo.NewSnapshot(int64(steps), vd.Sites))
				}); err != nil {
					return fail("Failed to write endstate", err)
				}
				printer.Success("Wrote %s\n", write)
			}
			if svgPath != "" {
				title := fmt.Sprintf("%d robots after %d steps", robots, steps)
				if err := writeFile(svgPath, func(f *os.File) error {
					report.RenderDiagram(f, shape, vd, title)
					return nil
				}); err != nil {
					return fail("Failed to write diagram", err)
				}
				printer.Success("Wrote %s\n", svgPath)
			}
			return nil
		},
	}

	af.register(cmd)
	flags := cmd.Flags()
	flags.IntVarP(&robots, "robots", "n", 25, "Number of robots")
	flags.IntVar(&steps, "steps", 20, "Number of Lloyd iterations")
	flags.Int64Var(&seed, "seed", 1, "Random seed")
	flags.StringVar(&write, "write", "", "Write the relaxed positions as a kilombo endstate")
	flags.StringVar(&svgPath, "svg", "", "Render the relaxed diagram as SVG")
	return cmd
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
