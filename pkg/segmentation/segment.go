// Package segmentation groups voxels into features by flood fill: a
// feature grows from a seed voxel through face neighbours whose
// disorientation to a reference orientation is below a tolerance.
//
// Segmentation is sequential. Seed selection depends on every assignment
// made before it and feature IDs come from a single increasing counter.
package segmentation

import (
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/num/quat"

	"grainseg/pkg/errors"
	"grainseg/pkg/misorientation"
	"grainseg/pkg/voxel"
)

// Reference selects the orientation a candidate voxel is compared with.
type Reference int

const (
	// ReferenceNeighbor compares a candidate with the feature voxel whose
	// neighbours are being expanded.
	ReferenceNeighbor Reference = iota
	// ReferenceSeed compares every candidate with the seed voxel.
	ReferenceSeed
	// ReferenceAverage compares with the feature's running average
	// orientation.
	ReferenceAverage
)

var referenceNames = [...]string{"neighbor", "seed", "average"}

func (r Reference) String() string {
	if r < 0 || int(r) >= len(referenceNames) {
		return "unknown"
	}
	return referenceNames[r]
}

// ParseReference returns the Reference named s ("neighbor", "seed" or
// "average").
func ParseReference(s string) (Reference, error) {
	for i, name := range referenceNames {
		if s == name {
			return Reference(i), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidConfig, "unknown reference mode %q", s)
}

// Params controls a segmentation pass.
type Params struct {
	// Tolerance is the largest disorientation, in degrees, that still joins
	// two voxels. Must be in (0, 180].
	Tolerance float64

	Reference Reference

	// MaxFeatures stops segmentation once this many features exist and
	// another seed is found. Zero means unlimited.
	MaxFeatures int

	// Logger receives progress messages; nil discards them.
	Logger *log.Logger
}

func (p *Params) validate() error {
	if math.IsNaN(p.Tolerance) || p.Tolerance <= 0 || p.Tolerance > 180 {
		return errors.New(errors.ErrCodeInvalidTolerance, "tolerance %v must be in (0, 180] degrees", p.Tolerance)
	}
	if p.Reference < ReferenceNeighbor || p.Reference > ReferenceAverage {
		return errors.New(errors.ErrCodeInvalidConfig, "unknown reference mode %d", p.Reference)
	}
	if p.MaxFeatures < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max features must not be negative, got %d", p.MaxFeatures)
	}
	return nil
}

// Segment partitions the usable voxels of f into features.
//
// Voxels are scanned in index order, resuming after the previous seed. The
// first unassigned usable voxel seeds feature len(Features)+1 and the
// feature grows depth-first: a neighbour joins when it is unassigned,
// usable, in the seed's phase, and less than Tolerance degrees from the
// reference orientation. Periodic axes of f.Grid wrap. When the frontier
// empties the feature's average orientation is fixed.
//
// Invalid input or parameters return a nil result and a coded error. If
// fewer than two features result, or MaxFeatures is exceeded, the error
// (ErrCodeTooFewFeatures, ErrCodeTooManyFeatures) comes with the result as
// it stood, which remains consistent and can be inspected.
func Segment(f *voxel.Field, p Params) (*Result, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	logger := p.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	start := time.Now()

	n := f.Grid.Len()
	res := &Result{
		Grid:       f.Grid,
		FeatureIDs: make([]int32, n),
		Members:    make([]int, 0, n),
	}

	var (
		stack []int
		nbuf  = make([]int, 0, 6)
		seed  = 0
	)
	for {
		seed = nextSeed(f, res.FeatureIDs, seed)
		if seed < 0 {
			break
		}
		if p.MaxFeatures > 0 && len(res.Features) >= p.MaxFeatures {
			logger.Warn("feature limit reached", "features", len(res.Features), "voxel", seed)
			return res, errors.New(errors.ErrCodeTooManyFeatures,
				"more than %d features at tolerance %v; stopped at voxel %d with %d voxels assigned",
				p.MaxFeatures, p.Tolerance, seed, res.AssignedVoxels())
		}

		id := int32(len(res.Features) + 1)
		phase, class := f.Phase(seed), f.Class(seed)
		acc := misorientation.NewAccumulator(class)
		first := len(res.Members)

		res.FeatureIDs[seed] = id
		res.Members = append(res.Members, seed)
		acc.Add(f.Quats[seed])
		stack = append(stack[:0], seed)

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			var ref quat.Number
			switch p.Reference {
			case ReferenceSeed:
				ref = f.Quats[seed]
			case ReferenceAverage:
				ref = acc.Mean()
			default:
				ref = f.Quats[cur]
			}

			nbuf = f.Grid.Neighbors(cur, nbuf[:0])
			for _, j := range nbuf {
				if res.FeatureIDs[j] != 0 || !f.Usable(j) || f.Phase(j) != phase {
					continue
				}
				if misorientation.Angle(ref, f.Quats[j], class) >= p.Tolerance {
					continue
				}
				res.FeatureIDs[j] = id
				res.Members = append(res.Members, j)
				acc.Add(f.Quats[j])
				stack = append(stack, j)
			}
		}

		res.Features = append(res.Features, Feature{
			ID:      id,
			Phase:   phase,
			Start:   first,
			Length:  len(res.Members) - first,
			Average: acc.Mean(),
		})
	}

	logger.Debug("segmentation finished",
		"features", len(res.Features),
		"assigned", len(res.Members),
		"voxels", n,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if len(res.Features) < 2 {
		return res, errors.New(errors.ErrCodeTooFewFeatures,
			"tolerance %v produced %d feature(s); it is probably too high", p.Tolerance, len(res.Features))
	}
	return res, nil
}

// nextSeed returns the first unassigned usable voxel at or after from, or
// -1 when none is left.
func nextSeed(f *voxel.Field, ids []int32, from int) int {
	for i := from; i < len(ids); i++ {
		if ids[i] == 0 && f.Usable(i) {
			return i
		}
	}
	return -1
}
