// Package synth builds synthetic orientation data: uniformly random
// orientations and Voronoi microstructures on a voxel grid.
//
// Every function takes an explicit random source so results are
// reproducible from a seed.
package synth

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"grainseg/pkg/orientation"
)

// RandomOrientation draws a unit quaternion uniformly from SO(3) using
// Shoemake's subgroup algorithm.
func RandomOrientation(src rand.Source) quat.Number {
	u := distuv.Uniform{Min: 0, Max: 1, Src: src}
	u1, u2, u3 := u.Rand(), u.Rand(), u.Rand()

	a, b := math.Sqrt(1-u1), math.Sqrt(u1)
	return orientation.Canonical(quat.Number{
		Real: a * math.Sin(2*math.Pi*u2),
		Imag: a * math.Cos(2*math.Pi*u2),
		Jmag: b * math.Sin(2*math.Pi*u3),
		Kmag: b * math.Cos(2*math.Pi*u3),
	})
}

// RandomOrientations draws n independent uniform orientations.
func RandomOrientations(n int, src rand.Source) []quat.Number {
	out := make([]quat.Number, n)
	for i := range out {
		out[i] = RandomOrientation(src)
	}
	return out
}

// Perturb rotates q by an angle drawn uniformly from [0, maxDeg] degrees
// about a uniformly random axis.
func Perturb(q quat.Number, maxDeg float64, src rand.Source) quat.Number {
	if maxDeg <= 0 {
		return q
	}
	angle := distuv.Uniform{Min: 0, Max: maxDeg * orientation.DegToRad, Src: src}
	z := distuv.Uniform{Min: -1, Max: 1, Src: src}.Rand()
	phi := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: src}.Rand()
	s := math.Sqrt(1 - z*z)

	d := orientation.AxisAngleToQuaternion(orientation.AxisAngle{
		Axis:  r3.Vec{X: s * math.Cos(phi), Y: s * math.Sin(phi), Z: z},
		Angle: angle.Rand(),
	})
	return orientation.Normalize(orientation.Mul(q, d))
}
