package orientation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// AxisAngle is a rotation by Angle radians, in [0, π], about the unit
// vector Axis. The null rotation uses the axis (0, 0, 1).
type AxisAngle struct {
	Axis  r3.Vec
	Angle float64
}

// Rodrigues is a Rodrigues-Frank vector: the rotation axis scaled by
// tan(ω/2). It is unbounded as ω approaches π.
type Rodrigues struct {
	r3.Vec
}

// Angle returns the rotation angle encoded by r in radians.
func (r Rodrigues) Angle() float64 {
	return 2 * math.Atan(r3.Norm(r.Vec))
}

// Homochoric is the axis scaled by (3/4 (ω - sin ω))^(1/3). The mapping is
// volume preserving, so equal cells in homochoric space hold equal volumes
// of orientation space.
type Homochoric struct {
	r3.Vec
}

// HomochoricRadius is the length of the homochoric vector of a rotation by π.
var HomochoricRadius = HomochoricMagnitude(math.Pi)

// QuaternionToAxisAngle converts q to axis-angle form.
func QuaternionToAxisAngle(q quat.Number) AxisAngle {
	q = Canonical(Normalize(q))
	v := Vector(q)
	n := r3.Norm(v)
	if n < epsilon {
		return AxisAngle{Axis: r3.Vec{Z: 1}}
	}
	return AxisAngle{
		Axis:  r3.Scale(1/n, v),
		Angle: 2 * math.Acos(Clamp(q.Real)),
	}
}

// AxisAngleToQuaternion converts an axis-angle pair to a unit quaternion
// with non-negative scalar part. The axis does not need to be normalized.
func AxisAngleToQuaternion(a AxisAngle) quat.Number {
	n := r3.Norm(a.Axis)
	if n < epsilon || math.Abs(a.Angle) < epsilon {
		return Identity
	}
	s := math.Sin(0.5*a.Angle) / n
	return Canonical(quat.Number{
		Real: math.Cos(0.5 * a.Angle),
		Imag: a.Axis.X * s,
		Jmag: a.Axis.Y * s,
		Kmag: a.Axis.Z * s,
	})
}

// QuaternionToRodrigues converts q to a Rodrigues vector. The second
// result is false for rotations by π (scalar part below 1e-12), where the
// vector is infinite; callers must handle that case themselves.
func QuaternionToRodrigues(q quat.Number) (Rodrigues, bool) {
	q = Canonical(Normalize(q))
	if q.Real < epsilon {
		return Rodrigues{}, false
	}
	return Rodrigues{r3.Scale(1/q.Real, Vector(q))}, true
}

// RodriguesToQuaternion converts a Rodrigues vector to a unit quaternion.
func RodriguesToQuaternion(r Rodrigues) quat.Number {
	s := 1 / math.Sqrt(1+r3.Dot(r.Vec, r.Vec))
	return quat.Number{Real: s, Imag: r.X * s, Jmag: r.Y * s, Kmag: r.Z * s}
}

// HomochoricMagnitude returns the homochoric vector length of a rotation by
// omega radians.
func HomochoricMagnitude(omega float64) float64 {
	return math.Cbrt(0.75 * (omega - math.Sin(omega)))
}

// AxisAngleToHomochoric converts an axis-angle pair to a homochoric vector.
func AxisAngleToHomochoric(a AxisAngle) Homochoric {
	n := r3.Norm(a.Axis)
	if n < epsilon {
		return Homochoric{}
	}
	return Homochoric{r3.Scale(HomochoricMagnitude(a.Angle)/n, a.Axis)}
}

// HomochoricToAxisAngle inverts AxisAngleToHomochoric. Vectors longer than
// HomochoricRadius are treated as rotations by π.
func HomochoricToAxisAngle(h Homochoric) AxisAngle {
	m := r3.Norm(h.Vec)
	if m < epsilon {
		return AxisAngle{Axis: r3.Vec{Z: 1}}
	}
	return AxisAngle{Axis: r3.Scale(1/m, h.Vec), Angle: homochoricAngle(m)}
}

// QuaternionToHomochoric converts q to a homochoric vector.
func QuaternionToHomochoric(q quat.Number) Homochoric {
	return AxisAngleToHomochoric(QuaternionToAxisAngle(q))
}

// HomochoricToQuaternion converts a homochoric vector to a unit quaternion.
func HomochoricToQuaternion(h Homochoric) quat.Number {
	return AxisAngleToQuaternion(HomochoricToAxisAngle(h))
}

// homochoricAngle solves 3/4 (ω - sin ω) = m³ for ω in [0, π]. The left
// side is monotonic there, so Newton steps are kept inside a shrinking
// bracket and replaced by bisection whenever they would leave it.
func homochoricAngle(m float64) float64 {
	target := m * m * m
	if target >= 0.75*math.Pi {
		return math.Pi
	}

	lo, hi := 0.0, math.Pi
	w := math.Min(2*m, math.Pi)
	for i := 0; i < 100; i++ {
		g := 0.75*(w-math.Sin(w)) - target
		if g == 0 {
			break
		}
		if g > 0 {
			hi = w
		} else {
			lo = w
		}

		d := 0.75 * (1 - math.Cos(w))
		next := 0.5 * (lo + hi)
		if d > 0 {
			if n := w - g/d; n > lo && n < hi {
				next = n
			}
		}
		if math.Abs(next-w) < 1e-15 {
			w = next
			break
		}
		w = next
	}
	return w
}
