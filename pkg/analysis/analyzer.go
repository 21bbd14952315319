// Package analysis runs the full orientation analysis of a voxel field:
// fundamental-zone reduction, feature segmentation, feature statistics and
// the misorientation and orientation distribution functions.
package analysis

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"grainseg/internal/models"
	"grainseg/pkg/binning"
	"grainseg/pkg/misorientation"
	"grainseg/pkg/orientation"
	"grainseg/pkg/segmentation"
	"grainseg/pkg/voxel"
)

// Metrics summarizes an analysis run.
type Metrics struct {
	// RunID identifies the run in logs and reports.
	RunID string

	// Features is the number of features in the segmentation.
	Features int

	// AssignedVoxels counts voxels that belong to a feature and
	// UnassignedVoxels those left with ID 0. Together they cover the grid.
	AssignedVoxels   int
	UnassignedVoxels int

	// MeanSize and StdSize are feature sizes in voxels.
	MeanSize float64
	StdSize  float64

	// MeanDiameter and StdDiameter are equivalent sphere (3D) or circle
	// (2D) diameters in physical units.
	MeanDiameter float64
	StdDiameter  float64

	// MeanKAM is the kernel average misorientation in degrees, averaged
	// over usable voxels.
	MeanKAM float64

	// Boundaries counts feature pairs that share at least one face;
	// MeanBoundaryAngle is their face-weighted mean disorientation.
	Boundaries        int
	MeanBoundaryAngle float64

	// Elapsed is the wall time of Process.
	Elapsed time.Duration
}

// Params holds the analysis configuration.
type Params struct {
	Segmentation segmentation.Params

	// Bins is the layout of both distribution functions.
	Bins binning.Bins

	// RandomizeIDs relabels features with a permutation drawn from Seed.
	RandomizeIDs bool
	Seed         uint64

	// KAMThreshold excludes neighbours further than this many degrees from
	// the kernel average. Zero uses the segmentation tolerance.
	KAMThreshold float64

	// Workers bounds the goroutines of the parallel stages; below one means
	// every CPU.
	Workers int

	Logger *log.Logger
}

// Analyzer runs the analysis pipeline over one field.
//
// The pipeline consists of:
// 1. Reducing every orientation to its fundamental zone
// 2. Segmenting the reduced field into features
// 3. Optionally randomizing feature IDs
// 4. Computing per-feature and per-phase statistics
// 5. Binning boundary misorientations (MDF) and feature orientations (ODF)
type Analyzer struct {
	params *Params
	field  *voxel.Field
	logger *log.Logger

	// reduced shares the input's grid, phases and mask but holds
	// fundamental-zone orientations
	reduced *voxel.Field

	result   *segmentation.Result
	kam      []float64
	features []models.FeatureSummary
	phases   []models.PhaseSummary
	mdf      *binning.Distribution
	odf      *binning.Distribution

	metrics Metrics
}

// NewAnalyzer creates an analyzer for field. The field is only read.
func NewAnalyzer(field *voxel.Field, params *Params) *Analyzer {
	logger := params.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Analyzer{
		params: params,
		field:  field,
		logger: logger,
	}
}

// Process runs the complete pipeline. When segmentation reports a
// threshold problem the error is returned, but the segmentation result up
// to that point remains available through Result.
func (a *Analyzer) Process() error {
	start := time.Now()
	a.metrics = Metrics{RunID: uuid.New().String()}
	logger := a.logger.With("run", a.metrics.RunID)

	if err := a.field.Validate(); err != nil {
		return fmt.Errorf("invalid field: %w", err)
	}
	if err := a.params.Bins.Validate(); err != nil {
		return err
	}

	// Step 1: reduce orientations
	logger.Info("reducing orientations", "voxels", a.field.Grid.Len())
	reduced := *a.field
	reduced.Quats = misorientation.ReduceAll(a.field, a.params.Workers)
	a.reduced = &reduced

	// Step 2: segment
	segParams := a.params.Segmentation
	if segParams.Logger == nil {
		segParams.Logger = logger
	}
	logger.Info("segmenting", "tolerance", segParams.Tolerance, "reference", segParams.Reference)
	res, err := segmentation.Segment(a.reduced, segParams)
	a.result = res
	if err != nil {
		if res != nil {
			logger.Warn("segmentation stopped", "features", res.FeatureCount(), "assigned", res.AssignedVoxels(), "err", err)
		}
		return fmt.Errorf("segmentation failed: %w", err)
	}

	// Step 3: relabel
	if a.params.RandomizeIDs {
		res.RandomizeIDs(rand.NewSource(a.params.Seed))
		logger.Debug("randomized feature ids", "seed", a.params.Seed)
	}

	// Step 4: statistics
	logger.Info("computing feature statistics", "features", res.FeatureCount())
	pairs := a.boundaryPairs()
	a.summarizeFeatures(pairs)
	a.computeKAM()

	// Step 5: distribution functions
	logger.Info("binning distribution functions", "bins", a.params.Bins)
	if err := a.computeDistributions(pairs); err != nil {
		return fmt.Errorf("failed to bin distributions: %w", err)
	}

	a.metrics.Elapsed = time.Since(start)
	logger.Info("analysis complete",
		"features", a.metrics.Features,
		"boundaries", a.metrics.Boundaries,
		"elapsed", a.metrics.Elapsed.Round(time.Millisecond))
	return nil
}

// boundary is a pair of face-sharing features, a < b.
type boundary struct {
	a, b  int32
	faces int
}

// boundaryPairs lists every pair of distinct features that share a face,
// sorted by (a, b), with the number of shared faces.
func (a *Analyzer) boundaryPairs() []boundary {
	g := a.result.Grid
	ids := a.result.FeatureIDs
	faces := map[[2]int32]int{}
	buf := make([]int, 0, 6)
	for i, fi := range ids {
		if fi == 0 {
			continue
		}
		buf = g.Neighbors(i, buf[:0])
		for _, j := range buf {
			fj := ids[j]
			if j <= i || fj == 0 || fj == fi {
				continue
			}
			key := [2]int32{fi, fj}
			if fj < fi {
				key = [2]int32{fj, fi}
			}
			faces[key]++
		}
	}

	out := make([]boundary, 0, len(faces))
	for k, n := range faces {
		out = append(out, boundary{a: k[0], b: k[1], faces: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}

func (a *Analyzer) summarizeFeatures(pairs []boundary) {
	res := a.result
	g := res.Grid
	vol := g.VoxelVolume()

	neighbors := make([]int, res.FeatureCount()+1)
	for _, p := range pairs {
		neighbors[p.a]++
		neighbors[p.b]++
	}

	a.features = make([]models.FeatureSummary, res.FeatureCount())
	sizes := make([]float64, len(a.features))
	diameters := make([]float64, len(a.features))
	for k, ft := range res.Features {
		var centroid [3]float64
		for _, v := range res.MembersOf(ft.ID) {
			c := g.Center(v)
			for d := range centroid {
				centroid[d] += c[d]
			}
		}
		for d := range centroid {
			centroid[d] /= float64(ft.Length)
		}

		size := float64(ft.Length) * vol
		s := models.FeatureSummary{
			ID:        ft.ID,
			Phase:     ft.Phase,
			Voxels:    ft.Length,
			Size:      size,
			Diameter:  equivalentDiameter(size, g.Is2D()),
			Euler:     orientation.QuaternionToEuler(ft.Average).Degrees(),
			Centroid:  centroid,
			Neighbors: neighbors[ft.ID],
		}
		a.features[k] = s
		sizes[k] = float64(s.Voxels)
		diameters[k] = s.Diameter
	}

	a.metrics.Features = res.FeatureCount()
	a.metrics.AssignedVoxels = res.AssignedVoxels()
	a.metrics.UnassignedVoxels = len(res.FeatureIDs) - res.AssignedVoxels()
	a.metrics.MeanSize, a.metrics.StdSize = meanStd(sizes)
	a.metrics.MeanDiameter, a.metrics.StdDiameter = meanStd(diameters)
	a.metrics.Boundaries = len(pairs)

	a.phases = a.phases[:0]
	for p := 1; p < a.field.NumPhases(); p++ {
		ps := models.PhaseSummary{Phase: p, Class: a.field.Classes[p].String()}
		var d []float64
		for _, s := range a.features {
			if s.Phase == p {
				ps.Features++
				ps.Voxels += s.Voxels
				d = append(d, s.Diameter)
			}
		}
		for _, pr := range pairs {
			if res.Feature(pr.a).Phase == p && res.Feature(pr.b).Phase == p {
				ps.Boundaries++
			}
		}
		ps.MeanDiameter, ps.StdDiameter = meanStd(d)
		a.phases = append(a.phases, ps)
	}
}

func (a *Analyzer) computeKAM() {
	threshold := a.params.KAMThreshold
	if threshold <= 0 {
		threshold = a.params.Segmentation.Tolerance
	}
	a.kam = misorientation.KernelAverage(a.reduced, threshold, a.params.Workers)

	values := make([]float64, 0, len(a.kam))
	for i, v := range a.kam {
		if a.reduced.Usable(i) {
			values = append(values, v)
		}
	}
	if len(values) > 0 {
		a.metrics.MeanKAM = stat.Mean(values, nil)
	}
}

func (a *Analyzer) computeDistributions(pairs []boundary) error {
	res := a.result
	classes := a.field.Classes

	samples := make([]binning.Boundary, 0, len(pairs))
	angles := make([]float64, 0, len(pairs))
	weights := make([]float64, 0, len(pairs))
	for _, p := range pairs {
		fa, fb := res.Feature(p.a), res.Feature(p.b)
		if fa.Phase != fb.Phase {
			continue
		}
		r := misorientation.Compute(fa.Average, fb.Average, classes[fa.Phase])
		samples = append(samples, binning.Boundary{Phase: fa.Phase, Result: r, Weight: float64(p.faces)})
		if r.Comparable() {
			angles = append(angles, r.Angle)
			weights = append(weights, float64(p.faces))
		}
	}
	if len(angles) > 0 {
		a.metrics.MeanBoundaryAngle = stat.Mean(angles, weights)
	}

	mdf, err := binning.AccumulateMDF(samples, classes, a.params.Bins, a.params.Workers)
	if err != nil {
		return err
	}
	a.mdf = mdf

	oriented := make([]binning.Oriented, len(res.Features))
	for k, ft := range res.Features {
		oriented[k] = binning.Oriented{Phase: ft.Phase, Q: ft.Average, Weight: float64(ft.Length)}
	}
	odf, err := binning.AccumulateODF(oriented, classes, a.params.Bins, a.params.Workers)
	if err != nil {
		return err
	}
	a.odf = odf
	return nil
}

// equivalentDiameter returns the diameter of the sphere (3D) or circle
// (2D) with the given volume or area.
func equivalentDiameter(size float64, flat bool) float64 {
	if flat {
		return 2 * math.Sqrt(size/math.Pi)
	}
	return 2 * math.Cbrt(3*size/(4*math.Pi))
}

func meanStd(x []float64) (mean, std float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// Result returns the segmentation result, which may be partial if Process
// returned a segmentation error, or nil before Process runs.
func (a *Analyzer) Result() *segmentation.Result {
	return a.result
}

// Reduced returns the field with fundamental-zone orientations.
func (a *Analyzer) Reduced() *voxel.Field {
	return a.reduced
}

// Features returns one summary per feature, ordered by ID.
func (a *Analyzer) Features() []models.FeatureSummary {
	return a.features
}

// Phases returns one summary per non-background phase.
func (a *Analyzer) Phases() []models.PhaseSummary {
	return a.phases
}

// KAM returns the per-voxel kernel average misorientation in degrees.
func (a *Analyzer) KAM() []float64 {
	return a.kam
}

// MDF returns the boundary misorientation distribution.
func (a *Analyzer) MDF() *binning.Distribution {
	return a.mdf
}

// ODF returns the volume-weighted feature orientation distribution.
func (a *Analyzer) ODF() *binning.Distribution {
	return a.odf
}

// GetMetrics returns the metrics of the last run
func (a *Analyzer) GetMetrics() Metrics {
	return a.metrics
}
