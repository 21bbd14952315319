// Package cli implements the grainseg command-line interface.
//
// The CLI synthesizes Voronoi microstructures, segments them into features
// by misorientation and reports feature statistics and distribution
// functions. It also computes single disorientations and manages
// configuration files. Commands are built with cobra; logging goes
// through charmbracelet/log.
//
// # Commands
//
//   - segment: synthesize a microstructure and run the analysis pipeline
//   - misorientation: disorientation between two Euler-angle orientations
//   - config: write or show the configuration
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

const appName = "grainseg"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Version is reported by --version.
var Version = "dev"

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance whose logger writes to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Grainseg segments crystal orientation maps into grains",
		Long:         `Grainseg groups voxels of a crystal orientation map into features whose neighbouring orientations lie within a misorientation tolerance, and reports feature statistics together with orientation and misorientation distributions.`,
		Version:      Version,
		SilenceUsage: true,
	}

	root.AddCommand(c.segmentCommand())
	root.AddCommand(c.misorientationCommand())
	root.AddCommand(c.configCommand())

	return root
}

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
