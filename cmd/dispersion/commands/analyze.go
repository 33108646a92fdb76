// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/2dChan/r2voronoi"
	"github.com/2dChan/r2voronoi/config"
	"github.com/2dChan/r2voronoi/dispersion"
	"github.com/2dChan/r2voronoi/internal/printer"
	"github.com/2dChan/r2voronoi/kilombo"
	"github.com/2dChan/r2voronoi/report"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAnalyzeCommand() *cobra.Command {
	var (
		af             arenaFlags
		configPath     string
		states         string
		simulation     string
		workers        int
		strict         bool
		allowCollinear bool
		outDir         string
		noPlots        bool
		geoJSON        bool
		legacyAreaRef  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute the Voronoi dispersion of a recorded simulation",
		Long: `Partition the arena into the Voronoi regions of the robots for every
recorded tick and write the region areas, their deviations from the mean
area and the standard deviation per tick to a new timestamped directory.`,
		Example: `  dispersion analyze --states endstate.json --arena disk --radius 150
  dispersion analyze --states states.json --simulation simulation.json --workers 4
  dispersion analyze --config dispersion.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return fail("Failed to load config", err,
						"Check the file path",
						"Run without --config to use flags only")
				}
				c = loaded
			}

			flags := cmd.Flags()
			af.apply(cmd, c)
			if flags.Changed("states") {
				c.Input.States = states
			}
			if flags.Changed("simulation") {
				c.Input.Simulation = simulation
			}
			if flags.Changed("workers") {
				c.Analysis.Workers = workers
			}
			if flags.Changed("strict") {
				c.Analysis.Strict = strict
			}
			if flags.Changed("allow-collinear") {
				c.Analysis.AllowCollinear = allowCollinear
			}
			if flags.Changed("out") {
				c.Output.Dir = outDir
			}
			if flags.Changed("no-plots") {
				plots := !noPlots
				c.Output.Plots = &plots
			}
			if flags.Changed("geojson") {
				c.Output.GeoJSON = geoJSON
			}
			if flags.Changed("legacy-area-ref") {
				c.Output.LegacyAreaRef = legacyAreaRef
			}
			if err := c.Validate(); err != nil {
				return fail("Invalid configuration", err, "Pass --states <file> or set input.states")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAnalyze(ctx, c)
		},
	}

	af.register(cmd)
	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
	flags.StringVarP(&states, "states", "s", "", "Path to the kilombo states or endstate JSON")
	flags.StringVar(&simulation, "simulation", "", "Path to simulation.json")
	flags.IntVarP(&workers, "workers", "w", 1, "Number of ticks analyzed concurrently")
	flags.BoolVar(&strict, "strict", false, "Fail on the first invalid tick instead of skipping it")
	flags.BoolVar(&allowCollinear, "allow-collinear", false, "Accept ticks whose robots are all collinear")
	flags.StringVarP(&outDir, "out", "o", config.DefaultOutputDir, "Base output directory")
	flags.BoolVar(&noPlots, "no-plots", false, "Skip the SVG plots")
	flags.BoolVar(&geoJSON, "geojson", false, "Write the regions of every tick as GeoJSON")
	flags.BoolVar(&legacyAreaRef, "legacy-area-ref", false, "Report the last tick's reference area in every AreaRef cell")
	return cmd
}

func runAnalyze(ctx context.Context, c *config.Config) error {
	var sim kilombo.Simulation
	if c.Input.Simulation != "" {
		loaded, err := kilombo.LoadSimulation(c.Input.Simulation)
		if err != nil {
			return fail("Failed to load simulation", err,
				"Check that the file exists and is valid JSON")
		}
		sim = *loaded
	}

	shape, err := buildArena(c, sim.ArenaFileName)
	if err != nil {
		return err
	}
	printDiagnostics(shape.Diagnostics(sim.ArenaNormalizedArea), shape.Segments())

	printer.Step("Loading states from %s\n", c.Input.States)
	snaps, err := kilombo.LoadStates(c.Input.States)
	if err != nil {
		return fail("Failed to load states", err,
			"Check that the file is a kilombo states or endstate JSON")
	}
	ticks := make([]dispersion.Tick, len(snaps))
	for i, s := range snaps {
		ticks[i] = dispersion.Tick{ID: s.Ticks, Positions: s.Positions()}
	}

	opts := []dispersion.AnalyzerOption{
		dispersion.WithWorkers(c.Analysis.Workers),
		dispersion.WithLogger(logger),
	}
	if c.Analysis.Strict {
		opts = append(opts, dispersion.WithStrict())
	}
	if c.Analysis.AllowCollinear {
		opts = append(opts, dispersion.WithDiagramOptions(r2voronoi.AllowCollinear()))
	}
	analyzer, err := dispersion.NewAnalyzer(shape, opts...)
	if err != nil {
		return fail("Failed to create analyzer", err)
	}

	printer.Step("Analyzing %d ticks\n", len(ticks))
	res, err := analyzer.Run(ctx, ticks)
	if err != nil {
		var te *dispersion.TickError
		if errors.As(err, &te) {
			return fail("Analysis failed", err,
				"Run without --strict to skip invalid ticks",
				"Pass --allow-collinear if the robots start on a line")
		}
		return fail("Analysis failed", err)
	}
	if len(res.Records) == 0 {
		return fail("Analysis failed", fmt.Errorf("all %d ticks were skipped", len(ticks)),
			"Run with --verbose to see why each tick was rejected")
	}

	sinkOpts := []report.SinkOption{
		report.WithPlots(c.Output.PlotsEnabled()),
		report.WithLogger(logger),
	}
	if c.Output.GeoJSON {
		sinkOpts = append(sinkOpts, report.WithGeoJSON())
	}
	if c.Output.LegacyAreaRef {
		sinkOpts = append(sinkOpts, report.WithLegacyAreaRef())
	}
	sink, err := report.NewSink(c.Output.Dir, sinkOpts...)
	if err != nil {
		return fail("Failed to prepare output", err)
	}
	run := &report.Run{
		ID:           uuid.New(),
		States:       c.Input.States,
		Arena:        shape,
		ExpectedArea: sim.ArenaNormalizedArea,
		NumBots:      sim.NBots,
		Result:       res,
	}
	dir, err := sink.Write(run)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fail("Failed to write results", err, "Wait a second and run again")
		}
		return fail("Failed to write results", err)
	}
	logger.Info("run complete", zap.String("run", run.ID.String()), zap.String("dir", dir))

	printer.Success("Analyzed %d ticks of %d robots\n", len(res.Records), res.NumRobots())
	if n := len(res.Skipped); n > 0 {
		printer.Warning("%d ticks skipped\n", n)
		for _, te := range res.Skipped {
			printer.Info("  tick %d: %v\n", te.Tick, te.Err)
		}
	}
	printer.Info("\nResults written to %s\n", dir)
	return nil
}
