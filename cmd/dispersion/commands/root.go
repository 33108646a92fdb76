// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package commands

import (
	"errors"
	"fmt"

	"github.com/2dChan/r2voronoi/internal/printer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version = "dev"

	verbose bool
	logger  = zap.NewNop()
)

// NewRootCommand builds the dispersion command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "dispersion",
		Short: "Arena-restricted Voronoi dispersion analysis for kilobot swarms",
		Long: `dispersion measures how evenly a simulated swarm covers its arena.

For every recorded tick the arena (a disk or an annulus) is partitioned into
the Voronoi regions of the robots, and the spread of the region areas is
reported as deviations from the mean area and as a standard deviation over
time.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			l, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newAnalyzeCommand())
	root.AddCommand(newArenaCommand())
	root.AddCommand(newRelaxCommand())
	return root
}

// Execute runs the command tree. Errors are printed by the printer package.
func Execute() error {
	err := NewRootCommand().Execute()
	var r reported
	if err != nil && !errors.As(err, &r) {
		return printer.Error("Command failed", err, []string{"Run 'dispersion --help' for usage"})
	}
	return err
}

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	version = v
}

// reported marks errors already printed to the user.
type reported struct {
	err error
}

func (r reported) Error() string { return r.err.Error() }

func (r reported) Unwrap() error { return r.err }

func fail(title string, err error, suggestions ...string) error {
	return reported{printer.Error(title, err, suggestions)}
}
