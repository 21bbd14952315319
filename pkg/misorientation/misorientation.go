// Package misorientation computes disorientations between crystal
// orientations under Laue symmetry and reduces orientations to the
// fundamental zone.
//
// The conventions are fixed here and used by every caller: the relative
// rotation of q1 with respect to q2 is q2⁻¹·q1, and symmetry operators are
// applied on the right (q·s). All functions are pure.
package misorientation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"grainseg/pkg/orientation"
	"grainseg/pkg/symmetry"
)

// Incomparable is the angle reported when two orientations cannot be
// compared because their class is Unknown or their classes differ. It is
// larger than any tolerance, so a plain "angle < tolerance" test already
// refuses to group such voxels.
var Incomparable = math.Inf(1)

// Result is a disorientation: the smallest rotation angle, in degrees,
// relating two orientations, and its axis folded into the class's
// fundamental sector.
type Result struct {
	Angle float64
	Axis  r3.Vec
}

// Comparable reports whether r is a real disorientation rather than the
// Incomparable sentinel.
func (r Result) Comparable() bool {
	return !math.IsInf(r.Angle, 0) && !math.IsNaN(r.Angle)
}

// Within reports whether r is comparable and strictly below tol degrees.
func (r Result) Within(tol float64) bool {
	return r.Comparable() && r.Angle < tol
}

func incomparable() Result {
	return Result{Angle: Incomparable}
}

// Compute returns the disorientation between q1 and q2, both of class c.
//
// For every operator s the candidate q2⁻¹·q1·s is formed and its rotation
// angle taken from the clamped scalar part; angles past π are replaced by
// their antipodal equivalent 2π - ω. The smallest candidate wins. Its axis
// is made non-negative, normalized, and folded with symmetry.FoldToSector.
// A zero rotation reports the axis (0, 0, 1).
func Compute(q1, q2 quat.Number, c symmetry.Class) Result {
	if !c.Valid() {
		return incomparable()
	}

	qr := orientation.Mul(orientation.Conj(orientation.Normalize(q2)), orientation.Normalize(q1))

	best := math.MaxFloat64
	var bestQ quat.Number
	for _, s := range symmetry.Operators(c) {
		qc := orientation.Mul(qr, s)
		w := orientation.Clamp(qc.Real)
		angle := 2 * math.Acos(w)
		if angle > math.Pi {
			angle = 2*math.Pi - angle
		}
		if angle < best {
			best = angle
			bestQ = qc
		}
	}

	// |vector part| is sin(ω/2) for a unit quaternion; it is only zero for
	// the null rotation, whose axis is conventional.
	v := orientation.Vector(bestQ)
	axis := r3.Vec{Z: 1}
	if n := r3.Norm(v); n > 1e-12 {
		axis = r3.Scale(1/n, r3.Vec{X: math.Abs(v.X), Y: math.Abs(v.Y), Z: math.Abs(v.Z)})
	}

	return Result{
		Angle: best * orientation.RadToDeg,
		Axis:  symmetry.FoldToSector(axis, c),
	}
}

// Between is Compute for orientations that carry their own class. It
// returns the Incomparable sentinel when the classes differ.
func Between(q1 quat.Number, c1 symmetry.Class, q2 quat.Number, c2 symmetry.Class) Result {
	if c1 != c2 {
		return incomparable()
	}
	return Compute(q1, q2, c1)
}

// Angle returns only the disorientation angle in degrees. It skips the
// axis computation and is what segmentation uses in its inner loop.
func Angle(q1, q2 quat.Number, c symmetry.Class) float64 {
	if !c.Valid() {
		return Incomparable
	}
	qr := orientation.Mul(orientation.Conj(orientation.Normalize(q2)), orientation.Normalize(q1))

	maxW := 0.0
	for _, s := range symmetry.Operators(c) {
		if w := math.Abs(orientation.Mul(qr, s).Real); w > maxW {
			maxW = w
		}
	}
	return 2 * math.Acos(orientation.Clamp(maxW)) * orientation.RadToDeg
}

// ReduceToFundamentalZone returns the symmetry-equivalent q·s with the
// smallest rotation angle, signed so that its scalar part is non-negative.
// Orientations of class Unknown are only normalized and sign-canonicalized.
func ReduceToFundamentalZone(q quat.Number, c symmetry.Class) quat.Number {
	q = orientation.Normalize(q)
	if !c.Valid() {
		return orientation.Canonical(q)
	}

	best := q
	maxW := -1.0
	for _, s := range symmetry.Operators(c) {
		qs := orientation.Mul(q, s)
		if w := math.Abs(qs.Real); w > maxW {
			maxW = w
			best = qs
		}
	}
	return orientation.Canonical(best)
}

// NearestEquivalent returns the symmetry-equivalent q·s closest to ref,
// i.e. with the largest |ref·(q·s)|.
//
// Unlike ReduceToFundamentalZone the result is not in canonical form: it is
// signed so that its dot product with ref is non-negative, and its scalar
// part may therefore be negative. Apply orientation.Canonical when the
// canonical form is needed.
func NearestEquivalent(ref, q quat.Number, c symmetry.Class) quat.Number {
	q = orientation.Normalize(q)

	best := q
	if c.Valid() {
		maxDot := -1.0
		for _, s := range symmetry.Operators(c) {
			qs := orientation.Mul(q, s)
			if d := math.Abs(orientation.Dot(ref, qs)); d > maxDot {
				maxDot = d
				best = qs
			}
		}
	}
	if orientation.Dot(ref, best) < 0 {
		best = quat.Scale(-1, best)
	}
	return best
}
