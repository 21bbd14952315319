// Package binning discretizes misorientations and orientations into
// fixed-resolution histograms over homochoric space.
//
// A bin layout is three per-axis counts. A 3D bin index (i0, i1, i2) is
// flattened with axis 0 minor and axis 2 major:
//
//	flat = i0 + b0*(i1 + b1*i2)
//
// which is the same ordering voxel.Grid uses for voxel indices.
package binning

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"grainseg/pkg/errors"
	"grainseg/pkg/misorientation"
	"grainseg/pkg/orientation"
	"grainseg/pkg/symmetry"
)

// Bins is a bin count per homochoric axis.
type Bins [3]int

// Validate rejects layouts with a non-positive count on any axis.
func (b Bins) Validate() error {
	for axis, n := range b {
		if n < 1 {
			return errors.New(errors.ErrCodeInvalidBins, "bin count on axis %d must be positive, got %d", axis, n)
		}
	}
	return nil
}

// Len returns the number of bins in the layout.
func (b Bins) Len() int {
	return b[0] * b[1] * b[2]
}

// Flatten converts a 3D bin index into a flat one.
func Flatten(idx [3]int, b Bins) int {
	return idx[0] + b[0]*(idx[1]+b[1]*idx[2])
}

// Unflatten is the inverse of Flatten.
func Unflatten(flat int, b Bins) [3]int {
	return [3]int{flat % b[0], (flat / b[0]) % b[1], flat / (b[0] * b[1])}
}

// MisorientationBin returns the flat bin index of a disorientation of
// class c. The canonical (angle, axis) pair is mapped to its homochoric
// vector, whose components lie in [0, Extent(c)]; each component is scaled
// to its axis's bin count and truncated. A component exactly at the extent
// lands in the last bin.
//
// ok is false, and the index meaningless, when r is Incomparable or c has
// no symmetry table.
func MisorientationBin(r misorientation.Result, c symmetry.Class, b Bins) (int, bool) {
	if !r.Comparable() || !c.Valid() {
		return 0, false
	}
	h := orientation.AxisAngleToHomochoric(orientation.AxisAngle{
		Axis:  r.Axis,
		Angle: r.Angle * orientation.DegToRad,
	})
	e := symmetry.Extent(c)
	v := [3]float64{h.X, h.Y, h.Z}

	var idx [3]int
	for axis := range idx {
		idx[axis] = binIndex(v[axis]/e, b[axis])
	}
	return Flatten(idx, b), true
}

// OrientationBin returns the flat bin index of orientation q of class c.
// q is reduced to the fundamental zone first and its homochoric vector,
// whose components lie in [-Extent(c), Extent(c)], is binned over that
// cube.
func OrientationBin(q quat.Number, c symmetry.Class, b Bins) (int, bool) {
	if !c.Valid() {
		return 0, false
	}
	h := orientation.QuaternionToHomochoric(misorientation.ReduceToFundamentalZone(q, c))
	e := symmetry.Extent(c)
	v := [3]float64{h.X, h.Y, h.Z}

	var idx [3]int
	for axis := range idx {
		idx[axis] = binIndex((v[axis]+e)/(2*e), b[axis])
	}
	return Flatten(idx, b), true
}

// binIndex maps a fraction of the axis range to a bin in [0, n-1].
func binIndex(frac float64, n int) int {
	if math.IsNaN(frac) || frac <= 0 {
		return 0
	}
	i := int(frac * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
