package misorientation

import (
	"gonum.org/v1/gonum/num/quat"

	"grainseg/pkg/orientation"
	"grainseg/pkg/symmetry"
)

// Accumulator keeps the unnormalized quaternion sum of a growing set of
// orientations of one class. Each new orientation is replaced by its
// symmetry-equivalent nearest to the current mean before it is added, so
// equivalent descriptions reinforce rather than cancel.
//
// The zero value is not usable; create one with NewAccumulator.
type Accumulator struct {
	class symmetry.Class
	sum   quat.Number
	n     int
}

// NewAccumulator returns an empty accumulator for class c.
func NewAccumulator(c symmetry.Class) Accumulator {
	return Accumulator{class: c}
}

// Add folds q into the running sum.
func (a *Accumulator) Add(q quat.Number) {
	if a.n == 0 {
		q = ReduceToFundamentalZone(q, a.class)
	} else {
		q = NearestEquivalent(orientation.Normalize(a.sum), q, a.class)
	}
	a.sum = quat.Add(a.sum, q)
	a.n++
}

// Count returns how many orientations have been added.
func (a *Accumulator) Count() int {
	return a.n
}

// Sum returns the raw, unnormalized quaternion sum.
func (a *Accumulator) Sum() quat.Number {
	return a.sum
}

// Mean returns the sum normalized to unit length with a non-negative
// scalar part, or the identity when nothing has been added.
func (a *Accumulator) Mean() quat.Number {
	if a.n == 0 {
		return orientation.Identity
	}
	return orientation.Canonical(orientation.Normalize(a.sum))
}
