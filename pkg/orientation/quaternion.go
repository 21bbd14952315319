// Package orientation converts crystal orientations between their common
// parameterizations: unit quaternions, Bunge Euler angles, axis-angle pairs,
// Rodrigues vectors, homochoric vectors and 3x3 orientation matrices.
//
// Quaternions are gonum quat.Number values with Real holding the scalar part.
// Every component of grainseg multiplies quaternions through Mul, which is the
// Hamilton product. An orientation quaternion is the active rotation from the
// crystal frame to the sample frame, so QuaternionToMatrix yields the passive
// Bunge matrix g as its transpose and crystal symmetry operators multiply on
// the right.
//
// All functions are pure and safe for concurrent use.
package orientation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// RadToDeg converts radians to degrees.
	RadToDeg = 180.0 / math.Pi

	// DegToRad converts degrees to radians.
	DegToRad = math.Pi / 180.0

	epsilon = 1e-12
)

// Identity is the quaternion of the null rotation.
var Identity = quat.Number{Real: 1}

// Clamp restricts x to [-1, 1] so that accumulated floating point error
// (1.0000001 and the like) never turns an acos or asin into NaN.
func Clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// Mul returns the Hamilton product a·b.
func Mul(a, b quat.Number) quat.Number {
	return quat.Mul(a, b)
}

// Conj returns the conjugate of q.
func Conj(q quat.Number) quat.Number {
	return quat.Conj(q)
}

// Inverse returns the inverse of q. For unit quaternions this is the
// conjugate; zero quaternions map to the identity.
func Inverse(q quat.Number) quat.Number {
	n := Dot(q, q)
	if n < epsilon {
		return Identity
	}
	return quat.Scale(1/n, quat.Conj(q))
}

// Normalize scales q to unit length. A quaternion too short to carry a
// direction is replaced by the identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n < epsilon {
		return Identity
	}
	return quat.Scale(1/n, q)
}

// Canonical returns whichever of q and -q has a non-negative scalar part.
// When the scalar part is exactly zero the first non-zero vector component
// is made positive so the choice stays deterministic.
func Canonical(q quat.Number) quat.Number {
	switch {
	case q.Real > 0:
		return q
	case q.Real < 0:
		return quat.Scale(-1, q)
	}
	for _, c := range [3]float64{q.Imag, q.Jmag, q.Kmag} {
		if c > 0 {
			return q
		}
		if c < 0 {
			return quat.Scale(-1, q)
		}
	}
	return q
}

// Dot returns the four-dimensional dot product of a and b.
func Dot(a, b quat.Number) float64 {
	return a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
}

// Angle returns the rotation angle of the unit quaternion q in radians,
// in [0, π]. q and -q give the same angle.
func Angle(q quat.Number) float64 {
	return 2 * math.Acos(math.Abs(Clamp(q.Real)))
}

// Equal reports whether a and b describe the same rotation within tol,
// treating q and -q as equal.
func Equal(a, b quat.Number, tol float64) bool {
	return 1-math.Abs(Dot(Normalize(a), Normalize(b))) <= tol
}

// Vector returns the vector part of q.
func Vector(q quat.Number) r3.Vec {
	return r3.Vec{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
}

// Rotate applies the rotation q to v, computing q·v·q*. For an orientation
// this takes crystal coordinates to sample coordinates.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	p := Mul(Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return Vector(p)
}
