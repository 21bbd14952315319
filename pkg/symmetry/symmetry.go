// Package symmetry holds the rotational symmetry operators of the eleven
// Laue classes and the rules that fold a misorientation axis into each
// class's fundamental sector.
//
// A Class is a small integer tag; all per-class data lives in a constant
// table indexed by it. The tables are built once at package initialization
// and never modified, so every function here is safe for concurrent use.
package symmetry

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/num/quat"

	"grainseg/pkg/orientation"
)

// Class identifies a Laue class.
type Class int

const (
	// Unknown marks a phase whose symmetry is not known. Orientations of
	// an Unknown phase cannot be compared.
	Unknown Class = iota
	CubicHigh
	CubicLow
	HexagonalHigh
	HexagonalLow
	TrigonalHigh
	TrigonalLow
	TetragonalHigh
	TetragonalLow
	Orthorhombic
	Monoclinic
	Triclinic

	numClasses
)

// classInfo is the constant data describing one Laue class.
type classInfo struct {
	name      string
	laue      string
	operators []quat.Number
	// maxAngle is the largest possible disorientation in degrees
	maxAngle float64
	fold     func(a, b, c float64) (float64, float64, float64)
}

var table [numClasses]classInfo

func init() {
	r := math.Sqrt2 / 2

	cubicLow := []quat.Number{
		{Real: 1},
		{Imag: 1},
		{Jmag: 1},
		{Kmag: 1},
		{Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5},
		{Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: -0.5},
		{Real: 0.5, Imag: 0.5, Jmag: -0.5, Kmag: 0.5},
		{Real: 0.5, Imag: 0.5, Jmag: -0.5, Kmag: -0.5},
		{Real: 0.5, Imag: -0.5, Jmag: 0.5, Kmag: 0.5},
		{Real: 0.5, Imag: -0.5, Jmag: 0.5, Kmag: -0.5},
		{Real: 0.5, Imag: -0.5, Jmag: -0.5, Kmag: 0.5},
		{Real: 0.5, Imag: -0.5, Jmag: -0.5, Kmag: -0.5},
	}
	cubicHigh := append(append([]quat.Number{}, cubicLow...),
		// fourfolds about x, y, z
		quat.Number{Real: r, Imag: r},
		quat.Number{Real: r, Imag: -r},
		quat.Number{Real: r, Jmag: r},
		quat.Number{Real: r, Jmag: -r},
		quat.Number{Real: r, Kmag: r},
		quat.Number{Real: r, Kmag: -r},
		// twofolds about <110>
		quat.Number{Imag: r, Jmag: r},
		quat.Number{Imag: -r, Jmag: r},
		quat.Number{Jmag: r, Kmag: r},
		quat.Number{Jmag: -r, Kmag: r},
		quat.Number{Imag: r, Kmag: r},
		quat.Number{Imag: -r, Kmag: r},
	)

	orthorhombic := []quat.Number{{Real: 1}, {Imag: 1}, {Jmag: 1}, {Kmag: 1}}

	table = [numClasses]classInfo{
		Unknown: {name: "Unknown", laue: "?", maxAngle: math.Inf(1), fold: identityFold},
		CubicHigh: {
			name: "CubicHigh", laue: "m-3m", operators: cubicHigh,
			maxAngle: 62.7994, fold: sortDescending,
		},
		CubicLow: {
			name: "CubicLow", laue: "m-3", operators: cubicLow,
			maxAngle: 90, fold: cycleLargestFirst,
		},
		HexagonalHigh: {
			name: "HexagonalHigh", laue: "6/mmm",
			operators: append(cyclic(6), dihedral(6)...),
			maxAngle:  93.8436, fold: azimuthFold(30, true),
		},
		HexagonalLow: {
			name: "HexagonalLow", laue: "6/m", operators: cyclic(6),
			maxAngle: 180, fold: azimuthFold(60, false),
		},
		TrigonalHigh: {
			name: "TrigonalHigh", laue: "-3m",
			operators: append(cyclic(3), dihedral(3)...),
			maxAngle:  104.4775, fold: azimuthFold(60, true),
		},
		TrigonalLow: {
			name: "TrigonalLow", laue: "-3", operators: cyclic(3),
			maxAngle: 180, fold: identityFold,
		},
		TetragonalHigh: {
			name: "TetragonalHigh", laue: "4/mmm",
			operators: append(cyclic(4), dihedral(4)...),
			maxAngle:  98.4200, fold: azimuthFold(45, true),
		},
		TetragonalLow: {
			name: "TetragonalLow", laue: "4/m", operators: cyclic(4),
			maxAngle: 180, fold: identityFold,
		},
		Orthorhombic: {
			name: "Orthorhombic", laue: "mmm", operators: orthorhombic,
			maxAngle: 120, fold: identityFold,
		},
		Monoclinic: {
			name: "Monoclinic", laue: "2/m", operators: []quat.Number{{Real: 1}, {Jmag: 1}},
			maxAngle: 180, fold: identityFold,
		},
		Triclinic: {
			name: "Triclinic", laue: "-1", operators: []quat.Number{{Real: 1}},
			maxAngle: 180, fold: identityFold,
		},
	}
}

// cyclic returns the n rotations by k·360°/n about the c axis (z).
func cyclic(n int) []quat.Number {
	ops := make([]quat.Number, n)
	for k := range ops {
		half := math.Pi * float64(k) / float64(n)
		ops[k] = quat.Number{Real: math.Cos(half), Kmag: math.Sin(half)}
	}
	return ops
}

// dihedral returns the n twofold rotations about basal-plane axes spaced
// 180°/n apart, starting on the x axis.
func dihedral(n int) []quat.Number {
	ops := make([]quat.Number, n)
	for k := range ops {
		a := math.Pi * float64(k) / float64(n)
		ops[k] = quat.Number{Imag: math.Cos(a), Jmag: math.Sin(a)}
	}
	return ops
}

func (c Class) info() *classInfo {
	if c < 0 || c >= numClasses {
		panic(fmt.Sprintf("symmetry: invalid class %d", int(c)))
	}
	return &table[c]
}

// Valid reports whether c is a known, comparable Laue class.
func (c Class) Valid() bool {
	return c > Unknown && c < numClasses
}

// String returns the class name, e.g. "CubicHigh".
func (c Class) String() string {
	if c < 0 || c >= numClasses {
		return fmt.Sprintf("Class(%d)", int(c))
	}
	return table[c].name
}

// Laue returns the Hermann-Mauguin symbol of the Laue group, e.g. "m-3m".
func (c Class) Laue() string {
	return c.info().laue
}

// Operators returns the symmetry operators of c in their fixed order. The
// returned slice is shared and must not be modified. Unknown has none.
func Operators(c Class) []quat.Number {
	return c.info().operators
}

// Count returns the number of symmetry operators of c.
func Count(c Class) int {
	return len(c.info().operators)
}

// Operator returns the i-th operator of c. It panics when i is out of range.
func Operator(c Class, i int) quat.Number {
	ops := c.info().operators
	if i < 0 || i >= len(ops) {
		panic(fmt.Sprintf("symmetry: operator index %d out of range for %s (%d operators)", i, c, len(ops)))
	}
	return ops[i]
}

// MaxDisorientation returns the largest disorientation angle, in degrees,
// that two orientations of class c can have. Unknown returns +Inf.
func MaxDisorientation(c Class) float64 {
	return c.info().maxAngle
}

// Extent returns the homochoric radius reached at the class's maximum
// disorientation. Every component of a reduced misorientation's homochoric
// vector lies in [0, Extent(c)].
func Extent(c Class) float64 {
	a := MaxDisorientation(c)
	if math.IsInf(a, 1) {
		return orientation.HomochoricRadius
	}
	return orientation.HomochoricMagnitude(a * orientation.DegToRad)
}

// Classes returns every comparable class in declaration order.
func Classes() []Class {
	out := make([]Class, 0, numClasses-1)
	for c := CubicHigh; c < numClasses; c++ {
		out = append(out, c)
	}
	return out
}

// Parse returns the class named s. Both class names ("HexagonalHigh") and
// Laue symbols ("6/mmm") are accepted, case-insensitively.
func Parse(s string) (Class, error) {
	for c := Unknown; c < numClasses; c++ {
		if strings.EqualFold(s, table[c].name) || s == table[c].laue {
			return c, nil
		}
	}
	switch strings.ToLower(s) {
	case "cubic":
		return CubicHigh, nil
	case "hexagonal":
		return HexagonalHigh, nil
	case "trigonal":
		return TrigonalHigh, nil
	case "tetragonal":
		return TetragonalHigh, nil
	}
	return Unknown, fmt.Errorf("unknown crystal class %q", s)
}
