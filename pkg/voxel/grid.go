// Package voxel describes structured 2D and 3D voxel grids and the
// per-voxel orientation data that lives on them.
package voxel

import (
	"fmt"

	"grainseg/pkg/errors"
)

// Grid is a structured grid of Dims[0] x Dims[1] x Dims[2] voxels stored in
// row-major order: x varies fastest, z slowest. A 2D map is a grid with
// Dims[2] == 1.
type Grid struct {
	// Dims holds the number of voxels along x, y and z
	Dims [3]int

	// Resolution is the physical edge length of a voxel along each axis
	Resolution [3]float64

	// Origin is the physical position of the grid's lower corner
	Origin [3]float64

	// Periodic marks axes whose opposite faces are joined
	Periodic [3]bool
}

// NewGrid returns a non-periodic grid with unit resolution.
func NewGrid(nx, ny, nz int) Grid {
	return Grid{
		Dims:       [3]int{nx, ny, nz},
		Resolution: [3]float64{1, 1, 1},
	}
}

// Validate checks that every extent and resolution is positive.
func (g Grid) Validate() error {
	for axis := 0; axis < 3; axis++ {
		if g.Dims[axis] < 1 {
			return errors.New(errors.ErrCodeInvalidGrid, "extent along axis %d is %d, must be at least 1", axis, g.Dims[axis])
		}
		if !(g.Resolution[axis] > 0) {
			return errors.New(errors.ErrCodeInvalidGrid, "resolution along axis %d is %v, must be positive", axis, g.Resolution[axis])
		}
	}
	return nil
}

// Len returns the number of voxels.
func (g Grid) Len() int {
	return g.Dims[0] * g.Dims[1] * g.Dims[2]
}

// Is2D reports whether the grid is a single z layer.
func (g Grid) Is2D() bool {
	return g.Dims[2] == 1
}

// Index returns the linear index of voxel (x, y, z). It panics when the
// coordinates are outside the grid.
func (g Grid) Index(x, y, z int) int {
	if x < 0 || y < 0 || z < 0 || x >= g.Dims[0] || y >= g.Dims[1] || z >= g.Dims[2] {
		panic(fmt.Sprintf("voxel: coordinates (%d, %d, %d) outside grid %v", x, y, z, g.Dims))
	}
	return x + g.Dims[0]*(y+g.Dims[1]*z)
}

// Coords returns the coordinates of linear index i. It panics when i is
// outside the grid.
func (g Grid) Coords(i int) (x, y, z int) {
	if i < 0 || i >= g.Len() {
		panic(fmt.Sprintf("voxel: index %d outside grid of %d voxels", i, g.Len()))
	}
	x = i % g.Dims[0]
	y = (i / g.Dims[0]) % g.Dims[1]
	z = i / (g.Dims[0] * g.Dims[1])
	return x, y, z
}

// Center returns the physical position of the center of voxel i.
func (g Grid) Center(i int) [3]float64 {
	x, y, z := g.Coords(i)
	c := [3]int{x, y, z}
	var p [3]float64
	for axis := range p {
		p[axis] = g.Origin[axis] + (float64(c[axis])+0.5)*g.Resolution[axis]
	}
	return p
}

// VoxelVolume returns the physical volume of one voxel. For 2D grids the
// z resolution is ignored and the result is an area.
func (g Grid) VoxelVolume() float64 {
	v := g.Resolution[0] * g.Resolution[1]
	if !g.Is2D() {
		v *= g.Resolution[2]
	}
	return v
}

// Neighbors appends the face neighbours of voxel i to buf and returns it:
// up to six in 3D, four in 2D, in the order -x, +x, -y, +y, -z, +z. Axes of
// extent 1 contribute nothing. Steps across a boundary are dropped unless
// that axis is periodic, in which case they wrap; a wrapped neighbour that
// coincides with the opposite one is listed once.
func (g Grid) Neighbors(i int, buf []int) []int {
	c := [3]int{}
	c[0], c[1], c[2] = g.Coords(i)
	stride := [3]int{1, g.Dims[0], g.Dims[0] * g.Dims[1]}

	for axis := 0; axis < 3; axis++ {
		n := g.Dims[axis]
		if n == 1 {
			continue
		}
		lower, upper := -1, -1
		switch {
		case c[axis] > 0:
			lower = i - stride[axis]
		case g.Periodic[axis]:
			lower = i + (n-1)*stride[axis]
		}
		switch {
		case c[axis] < n-1:
			upper = i + stride[axis]
		case g.Periodic[axis]:
			upper = i - (n-1)*stride[axis]
		}
		if lower >= 0 {
			buf = append(buf, lower)
		}
		if upper >= 0 && upper != lower {
			buf = append(buf, upper)
		}
	}
	return buf
}
