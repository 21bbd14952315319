package symmetry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// FoldToSector maps a misorientation axis into the fundamental sector of
// class c so that equivalent axes compare equal. Components are made
// non-negative first; the class rule then permutes them or folds the
// azimuth of the basal projection into a wedge. The result has the same
// length as the input.
func FoldToSector(axis r3.Vec, c Class) r3.Vec {
	x, y, z := c.info().fold(math.Abs(axis.X), math.Abs(axis.Y), math.Abs(axis.Z))
	return r3.Vec{X: x, Y: y, Z: z}
}

func identityFold(a, b, c float64) (float64, float64, float64) {
	return a, b, c
}

// sortDescending orders the components so that a >= b >= c.
func sortDescending(a, b, c float64) (float64, float64, float64) {
	if a < b {
		a, b = b, a
	}
	if b < c {
		b, c = c, b
	}
	if a < b {
		a, b = b, a
	}
	return a, b, c
}

// cycleLargestFirst applies the cyclic permutation that puts the largest
// component first; only cyclic permutations are symmetries of m-3.
func cycleLargestFirst(a, b, c float64) (float64, float64, float64) {
	switch {
	case b > a && b >= c:
		return b, c, a
	case c > a && c > b:
		return c, a, b
	}
	return a, b, c
}

// azimuthFold returns a fold that reduces the azimuth of (a, b) into
// [0, wedge] degrees. With mirror set, odd sectors are reflected so that
// the fold is continuous across sector boundaries; otherwise sectors are
// simply translated.
//
// The azimuth is taken with atan2, so an axis with a == 0 lies at 90°, a
// sector boundary, instead of dividing by zero. An axis along c (a = b = 0)
// has no azimuth and is returned unchanged.
func azimuthFold(wedge float64, mirror bool) func(a, b, c float64) (float64, float64, float64) {
	return func(a, b, c float64) (float64, float64, float64) {
		rho := math.Hypot(a, b)
		if rho < 1e-12 {
			return a, b, c
		}

		phi := math.Atan2(b, a) * 180 / math.Pi
		sector := math.Floor(phi / wedge)
		if mirror && int(sector)%2 == 1 {
			phi = wedge*(sector+1) - phi
		} else {
			phi -= wedge * sector
		}

		rad := phi * math.Pi / 180
		return rho * math.Cos(rad), rho * math.Sin(rad), c
	}
}
