package orientation

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// QuaternionToMatrix returns the passive orientation matrix g of q, which
// takes sample coordinates to crystal coordinates. It is the transpose of
// the rotation Rotate applies.
func QuaternionToMatrix(q quat.Number) *mat.Dense {
	q = Normalize(q)
	q0, q1, q2, q3 := q.Real, q.Imag, q.Jmag, q.Kmag
	qbar := q0*q0 - (q1*q1 + q2*q2 + q3*q3)

	return mat.NewDense(3, 3, []float64{
		qbar + 2*q1*q1, 2 * (q1*q2 + q0*q3), 2 * (q1*q3 - q0*q2),
		2 * (q1*q2 - q0*q3), qbar + 2*q2*q2, 2 * (q2*q3 + q0*q1),
		2 * (q1*q3 + q0*q2), 2 * (q2*q3 - q0*q1), qbar + 2*q3*q3,
	})
}

// MatrixToQuaternion converts a passive orientation matrix to a unit
// quaternion with non-negative scalar part; it inverts QuaternionToMatrix.
// The branch is chosen on the largest diagonal term so the square root
// argument stays well away from zero.
func MatrixToQuaternion(m mat.Matrix) quat.Number {
	if r, c := m.Dims(); r != 3 || c != 3 {
		panic("orientation: rotation matrix must be 3x3")
	}
	m00, m01, m02 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	m10, m11, m12 := m.At(1, 0), m.At(1, 1), m.At(1, 2)
	m20, m21, m22 := m.At(2, 0), m.At(2, 1), m.At(2, 2)

	var q quat.Number
	switch tr := m00 + m11 + m22; {
	case tr > 0:
		s := 2 * math.Sqrt(tr+1)
		q = quat.Number{Real: 0.25 * s, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: 0.25 * s, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: 0.25 * s, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: 0.25 * s}
	}
	// q is the active rotation of m; the orientation is its inverse.
	return Canonical(Normalize(quat.Conj(q)))
}

// EulerToMatrix returns the passive Bunge orientation matrix of e.
func EulerToMatrix(e Euler) *mat.Dense {
	return QuaternionToMatrix(EulerToQuaternion(e))
}
