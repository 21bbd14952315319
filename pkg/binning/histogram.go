package binning

import (
	"gonum.org/v1/gonum/floats"

	"grainseg/pkg/errors"
)

// Histogram is a weighted count per flat bin.
type Histogram struct {
	Bins   Bins
	Counts []float64
}

// NewHistogram returns an empty histogram with layout b. It panics if b is
// invalid; use Bins.Validate on untrusted layouts.
func NewHistogram(b Bins) *Histogram {
	if err := b.Validate(); err != nil {
		panic(err)
	}
	return &Histogram{Bins: b, Counts: make([]float64, b.Len())}
}

// Add adds weight w to bin i.
func (h *Histogram) Add(i int, w float64) {
	h.Counts[i] += w
}

// Merge adds every count of o into h.
func (h *Histogram) Merge(o *Histogram) error {
	if o.Bins != h.Bins {
		return errors.New(errors.ErrCodeInvalidBins, "cannot merge layout %v into %v", o.Bins, h.Bins)
	}
	floats.Add(h.Counts, o.Counts)
	return nil
}

// Total returns the sum of all counts.
func (h *Histogram) Total() float64 {
	return floats.Sum(h.Counts)
}

// Normalized returns a copy of the counts scaled to sum to one. An empty
// histogram yields all zeros.
func (h *Histogram) Normalized() []float64 {
	out := make([]float64, len(h.Counts))
	copy(out, h.Counts)
	if total := floats.Sum(out); total > 0 {
		floats.Scale(1/total, out)
	}
	return out
}

// Peak returns the flat index and count of the fullest bin; ties go to the
// lowest index.
func (h *Histogram) Peak() (int, float64) {
	i := floats.MaxIdx(h.Counts)
	return i, h.Counts[i]
}
