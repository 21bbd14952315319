package misorientation

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"grainseg/internal/parallel"
	"grainseg/pkg/voxel"
)

// ReduceAll returns the fundamental-zone representative of every voxel's
// orientation, splitting the grid into contiguous index ranges processed by
// up to workers goroutines (workers < 1 uses every CPU). The field is only
// read.
func ReduceAll(f *voxel.Field, workers int) []quat.Number {
	out := make([]quat.Number, len(f.Quats))
	parallel.For(len(f.Quats), workers, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = ReduceToFundamentalZone(f.Quats[i], f.Class(i))
		}
	})
	return out
}

// NeighborAngles returns, for every voxel, the disorientation angle in
// degrees to its +x, +y and +z face neighbours. Periodic axes wrap. NaN
// marks a missing neighbour (grid boundary or an axis of extent 1) and
// Incomparable marks a pair where either voxel is unusable or the two
// classes differ. A periodic axis of extent 2 has a single pair per row,
// reported once from its lower voxel.
func NeighborAngles(f *voxel.Field, workers int) [][3]float64 {
	g := f.Grid
	out := make([][3]float64, g.Len())
	stride := [3]int{1, g.Dims[0], g.Dims[0] * g.Dims[1]}

	parallel.For(g.Len(), workers, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			x, y, z := g.Coords(i)
			c := [3]int{x, y, z}
			for axis := 0; axis < 3; axis++ {
				j := -1
				switch {
				case g.Dims[axis] == 1:
				case c[axis] < g.Dims[axis]-1:
					j = i + stride[axis]
				case g.Periodic[axis] && g.Dims[axis] > 2:
					j = i - (g.Dims[axis]-1)*stride[axis]
				}
				if j < 0 {
					out[i][axis] = math.NaN()
					continue
				}
				out[i][axis] = pairAngle(f, i, j)
			}
		}
	})
	return out
}

// KernelAverage returns the kernel average misorientation of every voxel:
// the mean disorientation, in degrees, to those face neighbours that are
// comparable and no more than maxAngle away. Voxels that are unusable or
// have no such neighbour get 0.
func KernelAverage(f *voxel.Field, maxAngle float64, workers int) []float64 {
	out := make([]float64, f.Grid.Len())
	parallel.For(len(out), workers, func(_, lo, hi int) {
		buf := make([]int, 0, 6)
		for i := lo; i < hi; i++ {
			if !f.Usable(i) {
				continue
			}
			sum, n := 0.0, 0
			buf = f.Grid.Neighbors(i, buf[:0])
			for _, j := range buf {
				a := pairAngle(f, i, j)
				if a <= maxAngle {
					sum += a
					n++
				}
			}
			if n > 0 {
				out[i] = sum / float64(n)
			}
		}
	})
	return out
}

// pairAngle is the disorientation between voxels i and j, or Incomparable
// when either is unusable or they belong to different phases.
func pairAngle(f *voxel.Field, i, j int) float64 {
	if !f.Usable(i) || !f.Usable(j) || f.Phase(i) != f.Phase(j) {
		return Incomparable
	}
	return Angle(f.Quats[i], f.Quats[j], f.Class(i))
}
