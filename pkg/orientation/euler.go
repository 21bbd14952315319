package orientation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Euler holds Bunge (ZXZ, passive) Euler angles in radians.
//
// Phi1 and Phi2 lie in [0, 2π), Phi in [0, π].
type Euler struct {
	Phi1 float64
	Phi  float64
	Phi2 float64
}

// EulerFromDegrees builds Euler angles from values given in degrees.
func EulerFromDegrees(phi1, phi, phi2 float64) Euler {
	return Euler{Phi1: phi1 * DegToRad, Phi: phi * DegToRad, Phi2: phi2 * DegToRad}
}

// Degrees returns the three angles in degrees.
func (e Euler) Degrees() [3]float64 {
	return [3]float64{e.Phi1 * RadToDeg, e.Phi * RadToDeg, e.Phi2 * RadToDeg}
}

// EulerToQuaternion converts Bunge Euler angles to a unit quaternion with
// non-negative scalar part. The quaternion is the active rotation that
// carries crystal directions into the sample frame, the transpose of the
// passive matrix g. Crystal symmetry therefore acts on it from the right.
func EulerToQuaternion(e Euler) quat.Number {
	sigma := 0.5 * (e.Phi1 + e.Phi2)
	delta := 0.5 * (e.Phi1 - e.Phi2)
	c := math.Cos(0.5 * e.Phi)
	s := math.Sin(0.5 * e.Phi)

	q := quat.Number{
		Real: c * math.Cos(sigma),
		Imag: s * math.Cos(delta),
		Jmag: s * math.Sin(delta),
		Kmag: c * math.Sin(sigma),
	}
	return Canonical(q)
}

// QuaternionToEuler converts a quaternion to Bunge Euler angles.
//
// At Phi = 0 and Phi = π only the sum (respectively difference) of Phi1
// and Phi2 is defined; the whole rotation is then assigned to Phi1 and
// Phi2 is reported as zero.
func QuaternionToEuler(q quat.Number) Euler {
	q = Normalize(q)
	// The angle formulas below are written for the passive form.
	q0, q1, q2, q3 := q.Real, -q.Imag, -q.Jmag, -q.Kmag

	q03 := q0*q0 + q3*q3
	q12 := q1*q1 + q2*q2
	chi := math.Sqrt(q03 * q12)

	var e Euler
	switch {
	case chi < epsilon && q12 < epsilon:
		e.Phi1 = math.Atan2(-2*q0*q3, q0*q0-q3*q3)
	case chi < epsilon:
		e.Phi1 = math.Atan2(2*q1*q2, q1*q1-q2*q2)
		e.Phi = math.Pi
	default:
		e.Phi1 = math.Atan2((q1*q3-q0*q2)/chi, (-q0*q1-q2*q3)/chi)
		e.Phi = math.Atan2(2*chi, q03-q12)
		e.Phi2 = math.Atan2((q0*q2+q1*q3)/chi, (q2*q3-q0*q1)/chi)
	}

	e.Phi1 = wrapTwoPi(e.Phi1)
	e.Phi2 = wrapTwoPi(e.Phi2)
	return e
}

// wrapTwoPi maps an angle into [0, 2π).
func wrapTwoPi(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}
