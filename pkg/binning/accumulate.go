package binning

import (
	"gonum.org/v1/gonum/num/quat"

	"grainseg/internal/parallel"
	"grainseg/pkg/misorientation"
	"grainseg/pkg/symmetry"
)

// Boundary is one misorientation sample for the MDF.
type Boundary struct {
	Phase  int
	Result misorientation.Result
	// Weight is the sample's contribution, e.g. shared boundary area.
	// Zero counts as one.
	Weight float64
}

// Oriented is one orientation sample for the ODF.
type Oriented struct {
	Phase  int
	Q      quat.Number
	Weight float64 // zero counts as one
}

// Distribution holds one histogram per phase. Phases[p] is nil for the
// background entry and for phases whose class is Unknown.
type Distribution struct {
	Bins    Bins
	Phases  []*Histogram
	Skipped int // samples that were incomparable or had no usable phase
}

func newDistribution(classes []symmetry.Class, b Bins) *Distribution {
	d := &Distribution{Bins: b, Phases: make([]*Histogram, len(classes))}
	for p := 1; p < len(classes); p++ {
		if classes[p].Valid() {
			d.Phases[p] = NewHistogram(b)
		}
	}
	return d
}

// Histogram returns the histogram of phase p, or nil.
func (d *Distribution) Histogram(p int) *Histogram {
	if p <= 0 || p >= len(d.Phases) {
		return nil
	}
	return d.Phases[p]
}

func (d *Distribution) merge(o *Distribution) {
	for p, h := range d.Phases {
		if h == nil {
			continue
		}
		// partials share one layout; a mismatch is a programming error
		if err := h.Merge(o.Phases[p]); err != nil {
			panic(err)
		}
	}
	d.Skipped += o.Skipped
}

// AccumulateMDF bins misorientation samples into per-phase histograms.
// classes maps a phase index to its Laue class. Each worker fills its own
// histograms over a disjoint slice of samples and the partial results are
// summed at the end.
func AccumulateMDF(samples []Boundary, classes []symmetry.Class, b Bins, workers int) (*Distribution, error) {
	return accumulate(len(samples), classes, b, workers, func(i int) (int, int, float64, bool) {
		s := samples[i]
		if s.Phase <= 0 || s.Phase >= len(classes) {
			return 0, 0, 0, false
		}
		bin, ok := MisorientationBin(s.Result, classes[s.Phase], b)
		return s.Phase, bin, s.Weight, ok
	})
}

// AccumulateODF bins orientation samples into per-phase histograms, in
// the same way as AccumulateMDF.
func AccumulateODF(samples []Oriented, classes []symmetry.Class, b Bins, workers int) (*Distribution, error) {
	return accumulate(len(samples), classes, b, workers, func(i int) (int, int, float64, bool) {
		s := samples[i]
		if s.Phase <= 0 || s.Phase >= len(classes) {
			return 0, 0, 0, false
		}
		bin, ok := OrientationBin(s.Q, classes[s.Phase], b)
		return s.Phase, bin, s.Weight, ok
	})
}

func accumulate(n int, classes []symmetry.Class, b Bins, workers int, sample func(i int) (phase, bin int, w float64, ok bool)) (*Distribution, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	locals := make([]*Distribution, parallel.Workers(workers, n))
	for k := range locals {
		locals[k] = newDistribution(classes, b)
	}
	parallel.For(n, workers, func(worker, lo, hi int) {
		d := locals[worker]
		for i := lo; i < hi; i++ {
			p, bin, w, ok := sample(i)
			if !ok {
				d.Skipped++
				continue
			}
			if w == 0 {
				w = 1
			}
			d.Phases[p].Add(bin, w)
		}
	})

	out := locals[0]
	for _, d := range locals[1:] {
		out.merge(d)
	}
	return out, nil
}
