package synth

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/stat/distuv"

	"grainseg/pkg/errors"
	"grainseg/pkg/symmetry"
	"grainseg/pkg/voxel"
)

// seed is a grain nucleus in physical coordinates.
type seed struct {
	X, Y, Z float64
	Grain   int
}

// Compare implements the kdtree.Comparable interface
func (p seed) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(seed)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p seed) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p seed) Distance(c kdtree.Comparable) float64 {
	q := c.(seed)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

// seeds satisfies kdtree.Interface
type seeds []seed

func (p seeds) Index(i int) kdtree.Comparable         { return p[i] }
func (p seeds) Len() int                              { return len(p) }
func (p seeds) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p seeds) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(seedPlane{seeds: p, Dim: d}, kdtree.MedianOfRandoms(seedPlane{seeds: p, Dim: d}, 100))
}

// seedPlane implements sort.Interface and kdtree.SortSlicer for seeds
type seedPlane struct {
	seeds
	kdtree.Dim
}

func (p seedPlane) Less(i, j int) bool {
	return p.seeds[i].Compare(p.seeds[j], p.Dim) < 0
}

func (p seedPlane) Slice(start, end int) kdtree.SortSlicer {
	return seedPlane{seeds: p.seeds[start:end], Dim: p.Dim}
}

func (p seedPlane) Swap(i, j int) {
	p.seeds[i], p.seeds[j] = p.seeds[j], p.seeds[i]
}

// VoronoiParams describes a synthetic microstructure.
type VoronoiParams struct {
	Grains int
	Class  symmetry.Class
	// Scatter perturbs every voxel by up to this many degrees about a
	// random axis. Zero gives perfectly uniform grains.
	Scatter float64
}

// Microstructure is a synthetic orientation field together with the
// ground truth it was built from.
type Microstructure struct {
	Field *voxel.Field

	// Grain holds the generating grain of every voxel.
	Grain []int

	// Orientations and Centers describe each grain.
	Orientations []quat.Number
	Centers      [][3]float64
}

// Voronoi places p.Grains nuclei uniformly in the grid's physical box,
// gives each a uniformly random orientation, and assigns every voxel the
// orientation of its nearest nucleus. Distances do not wrap across
// periodic axes. On a 2D grid nuclei lie in the voxel plane.
func Voronoi(g voxel.Grid, p VoronoiParams, src rand.Source) (*Microstructure, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if p.Grains < 1 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "need at least one grain, got %d", p.Grains)
	}
	if !p.Class.Valid() {
		return nil, errors.New(errors.ErrCodeUnknownClass, "synthetic microstructure needs a known crystal class")
	}

	var axis [3]distuv.Uniform
	for d := range axis {
		lo := g.Origin[d]
		hi := lo + float64(g.Dims[d])*g.Resolution[d]
		axis[d] = distuv.Uniform{Min: lo, Max: hi, Src: src}
	}
	planeZ := g.Center(0)[2]

	m := &Microstructure{
		Grain:        make([]int, g.Len()),
		Orientations: RandomOrientations(p.Grains, src),
		Centers:      make([][3]float64, p.Grains),
	}
	pts := make(seeds, p.Grains)
	for k := range pts {
		c := [3]float64{axis[0].Rand(), axis[1].Rand(), axis[2].Rand()}
		if g.Is2D() {
			c[2] = planeZ
		}
		m.Centers[k] = c
		pts[k] = seed{X: c[0], Y: c[1], Z: c[2], Grain: k}
	}
	tree := kdtree.New(pts, false)

	f := &voxel.Field{
		Grid:    g,
		Quats:   make([]quat.Number, g.Len()),
		Classes: []symmetry.Class{symmetry.Unknown, p.Class},
	}
	for i := range f.Quats {
		c := g.Center(i)
		got, _ := tree.Nearest(seed{X: c[0], Y: c[1], Z: c[2]})
		k := got.(seed).Grain
		m.Grain[i] = k
		f.Quats[i] = Perturb(m.Orientations[k], p.Scatter, src)
	}
	m.Field = f
	return m, nil
}
