package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"grainseg/internal/models"
	"grainseg/pkg/analysis"
	"grainseg/pkg/binning"
	"grainseg/pkg/config"
	"grainseg/pkg/errors"
	"grainseg/pkg/segmentation"
	"grainseg/pkg/symmetry"
	"grainseg/pkg/synth"
	"grainseg/pkg/visualization"
	"grainseg/pkg/voxel"
)

// segmentFlags mirrors the config values that can be overridden on the
// command line.
type segmentFlags struct {
	configPath  string
	dims        []int
	resolution  []float64
	periodic    []bool
	grains      int
	class       string
	scatter     float64
	seed        uint64
	tolerance   float64
	reference   string
	maxFeatures int
	randomize   bool
	bins        []int
	cores       int
	features    int
	json        bool
	sliceDir    string
	sliceAxis   string
	sliceMode   string
	sliceFormat string
	sliceScale  int
}

// segmentCommand creates the segment command.
func (c *CLI) segmentCommand() *cobra.Command {
	var flags segmentFlags

	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Synthesize a microstructure and segment it into features",
		Long: `Segment builds a Voronoi microstructure with random grain orientations,
reduces every voxel to the fundamental zone, groups voxels into features by
misorientation, and reports feature statistics, kernel average
misorientation and the misorientation/orientation distribution functions.

Values come from the configuration file (if any) and are overridden by flags.`,
		Example: `  grainseg segment --dims 64,64,1 --grains 30 --class hexagonal --tolerance 3
  grainseg segment -c grainseg.toml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			applySegmentFlags(cmd, cfg, &flags)
			if cfg.Output.Verbose {
				c.SetLogLevel(LogDebug)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.runSegment(cmd.OutOrStdout(), cfg, flags.json)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "grainseg.yaml", "configuration file (.yaml or .toml)")
	f.IntSliceVar(&flags.dims, "dims", nil, "grid extents x,y,z (z=1 for a 2D map)")
	f.Float64SliceVar(&flags.resolution, "resolution", nil, "voxel edge lengths x,y,z")
	f.BoolSliceVar(&flags.periodic, "periodic", nil, "periodic boundaries x,y,z")
	f.IntVarP(&flags.grains, "grains", "g", 0, "number of Voronoi grains")
	f.StringVar(&flags.class, "class", "", "Laue class name or symbol (e.g. cubic, 6/mmm)")
	f.Float64Var(&flags.scatter, "scatter", 0, "per-voxel orientation noise in degrees")
	f.Uint64Var(&flags.seed, "seed", 0, "random seed")
	f.Float64VarP(&flags.tolerance, "tolerance", "t", 0, "misorientation tolerance in degrees")
	f.StringVar(&flags.reference, "reference", "", "comparison reference: neighbor, seed or average")
	f.IntVar(&flags.maxFeatures, "max-features", 0, "stop once this many features exist (0 = unlimited)")
	f.BoolVar(&flags.randomize, "randomize", false, "randomize feature IDs")
	f.IntSliceVar(&flags.bins, "bins", nil, "distribution bins per axis")
	f.IntVarP(&flags.cores, "cores", "j", 0, "worker goroutines (default: all CPUs)")
	f.IntVar(&flags.features, "features", 0, "number of feature rows to print")
	f.BoolVar(&flags.json, "json", false, "print the report as JSON")
	f.StringVar(&flags.sliceDir, "slices", "", "write slice images to this directory")
	f.StringVar(&flags.sliceAxis, "slice-axis", "", "axis the slice images are perpendicular to (x, y or z)")
	f.StringVar(&flags.sliceMode, "slice-mode", "", "slice coloring: features, euler or kam")
	f.StringVar(&flags.sliceFormat, "slice-format", "", "slice image format: png, jpg or tif")
	f.IntVar(&flags.sliceScale, "slice-scale", 0, "pixels per voxel edge in slice images")

	return cmd
}

// applySegmentFlags copies every flag the user set into cfg.
func applySegmentFlags(cmd *cobra.Command, cfg *config.Config, flags *segmentFlags) {
	set := cmd.Flags().Changed
	if set("dims") {
		copy(cfg.Grid.Dims[:], flags.dims)
	}
	if set("resolution") {
		copy(cfg.Grid.Resolution[:], flags.resolution)
	}
	if set("periodic") {
		copy(cfg.Grid.Periodic[:], flags.periodic)
	}
	if set("grains") {
		cfg.Synthetic.Grains = flags.grains
	}
	if set("class") {
		cfg.Synthetic.Class = flags.class
	}
	if set("scatter") {
		cfg.Synthetic.Scatter = flags.scatter
	}
	if set("seed") {
		cfg.Synthetic.Seed = flags.seed
	}
	if set("tolerance") {
		cfg.Segmentation.Tolerance = flags.tolerance
	}
	if set("reference") {
		cfg.Segmentation.Reference = flags.reference
	}
	if set("max-features") {
		cfg.Segmentation.MaxFeatures = flags.maxFeatures
	}
	if set("randomize") {
		cfg.Segmentation.RandomizeIDs = flags.randomize
	}
	if set("bins") {
		copy(cfg.Binning.Bins[:], flags.bins)
	}
	if set("cores") {
		cfg.Processing.NumCores = flags.cores
	}
	if set("features") {
		cfg.Output.Features = flags.features
	}
	if set("slices") {
		cfg.Output.SliceDir = flags.sliceDir
	}
	if set("slice-axis") {
		cfg.Output.SliceAxis = flags.sliceAxis
	}
	if set("slice-mode") {
		cfg.Output.SliceMode = flags.sliceMode
	}
	if set("slice-format") {
		cfg.Output.SliceFormat = flags.sliceFormat
	}
	if set("slice-scale") {
		cfg.Output.SliceScale = flags.sliceScale
	}
}

// report is the JSON form of a segment run.
type report struct {
	Grid     [3]int                  `json:"grid"`
	Grains   int                     `json:"grains"`
	Metrics  analysis.Metrics        `json:"metrics"`
	Phases   []models.PhaseSummary   `json:"phases"`
	Features []models.FeatureSummary `json:"features,omitempty"`
}

func (c *CLI) runSegment(w io.Writer, cfg *config.Config, asJSON bool) error {
	class, err := symmetry.Parse(cfg.Synthetic.Class)
	if err != nil {
		return errors.Wrap(errors.ErrCodeUnknownClass, err, "invalid crystal class")
	}
	reference, err := segmentation.ParseReference(cfg.Segmentation.Reference)
	if err != nil {
		return err
	}

	grid := voxel.Grid{
		Dims:       cfg.Grid.Dims,
		Resolution: cfg.Grid.Resolution,
		Periodic:   cfg.Grid.Periodic,
	}

	prog := newProgress(c.Logger)
	micro, err := synth.Voronoi(grid, synth.VoronoiParams{
		Grains:  cfg.Synthetic.Grains,
		Class:   class,
		Scatter: cfg.Synthetic.Scatter,
	}, rand.NewSource(cfg.Synthetic.Seed))
	if err != nil {
		return fmt.Errorf("synthesize microstructure: %w", err)
	}
	prog.done(fmt.Sprintf("Synthesized %d grains on a %dx%dx%d grid", cfg.Synthetic.Grains, grid.Dims[0], grid.Dims[1], grid.Dims[2]))

	an := analysis.NewAnalyzer(micro.Field, &analysis.Params{
		Segmentation: segmentation.Params{
			Tolerance:   cfg.Segmentation.Tolerance,
			Reference:   reference,
			MaxFeatures: cfg.Segmentation.MaxFeatures,
		},
		Bins:         binning.Bins(cfg.Binning.Bins),
		RandomizeIDs: cfg.Segmentation.RandomizeIDs,
		Seed:         cfg.Synthetic.Seed,
		KAMThreshold: cfg.Segmentation.KAMThreshold,
		Workers:      cfg.Processing.NumCores,
		Logger:       c.Logger,
	})

	prog = newProgress(c.Logger)
	if err := an.Process(); err != nil {
		if res := an.Result(); res != nil {
			printWarning(w, "segmentation stopped with %d features and %d of %d voxels assigned",
				res.FeatureCount(), res.AssignedVoxels(), grid.Len())
		}
		return err
	}
	prog.done("Analysis complete")

	if cfg.Output.SliceDir != "" {
		if err := c.writeSlices(cfg, an); err != nil {
			return err
		}
	}

	features := an.Features()
	if n := cfg.Output.Features; n < len(features) {
		features = features[:n]
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report{
			Grid:     grid.Dims,
			Grains:   cfg.Synthetic.Grains,
			Metrics:  an.GetMetrics(),
			Phases:   an.Phases(),
			Features: features,
		})
	}

	printReport(w, an, cfg, features)
	return nil
}

// writeSlices renders the configured slice sequence of the analysed map.
func (c *CLI) writeSlices(cfg *config.Config, an *analysis.Analyzer) error {
	mode, err := visualization.ParseMode(cfg.Output.SliceMode)
	if err != nil {
		return err
	}
	prog := newProgress(c.Logger)
	viewer := visualization.NewViewer(an.Result(), an.Reduced(), an.KAM())
	viewer.Scale = cfg.Output.SliceScale
	n, err := viewer.SaveSliceSequence(cfg.Output.SliceAxis, cfg.Output.SliceDir, strings.ToLower(cfg.Output.SliceFormat), mode)
	if err != nil {
		return fmt.Errorf("write slices: %w", err)
	}
	prog.done(fmt.Sprintf("Wrote %d %s slices to %s", n, mode, cfg.Output.SliceDir))
	return nil
}

func printReport(w io.Writer, an *analysis.Analyzer, cfg *config.Config, features []models.FeatureSummary) {
	m := an.GetMetrics()

	printTitle(w, "Segmentation")
	printKeyValue(w, "run", "%s", m.RunID)
	printKeyValue(w, "grid", "%v", cfg.Grid.Dims)
	printKeyValue(w, "grains", "%d", cfg.Synthetic.Grains)
	printKeyValue(w, "features", "%d", m.Features)
	printKeyValue(w, "assigned voxels", "%d (%d unassigned)", m.AssignedVoxels, m.UnassignedVoxels)
	printKeyValue(w, "size [voxels]", "%.1f ± %.1f", m.MeanSize, m.StdSize)
	printKeyValue(w, "diameter", "%.2f ± %.2f", m.MeanDiameter, m.StdDiameter)
	printKeyValue(w, "boundaries", "%d, mean %.2f°", m.Boundaries, m.MeanBoundaryAngle)
	printKeyValue(w, "mean KAM", "%.3f°", m.MeanKAM)

	for _, p := range an.Phases() {
		printTitle(w, fmt.Sprintf("Phase %d (%s)", p.Phase, p.Class))
		printKeyValue(w, "features", "%d", p.Features)
		printKeyValue(w, "voxels", "%d", p.Voxels)
		printKeyValue(w, "diameter", "%.2f ± %.2f", p.MeanDiameter, p.StdDiameter)
		if h := an.MDF().Histogram(p.Phase); h != nil && h.Total() > 0 {
			bin, v := h.Peak()
			printKeyValue(w, "MDF peak", "bin %v, %.1f%%", binning.Unflatten(bin, h.Bins), 100*v/h.Total())
		}
		if h := an.ODF().Histogram(p.Phase); h != nil && h.Total() > 0 {
			bin, v := h.Peak()
			printKeyValue(w, "ODF peak", "bin %v, %.1f%%", binning.Unflatten(bin, h.Bins), 100*v/h.Total())
		}
	}

	if len(features) > 0 {
		printTitle(w, "Features")
		for _, f := range features {
			printDetail(w, "#%-5d phase %d  %6d voxels  d=%.2f  euler=(%.1f, %.1f, %.1f)  neighbors=%d",
				f.ID, f.Phase, f.Voxels, f.Diameter, f.Euler[0], f.Euler[1], f.Euler[2], f.Neighbors)
		}
	}
	printSuccess(w, "Segmented %d features in %s", m.Features, m.Elapsed.Round(time.Millisecond))
}
