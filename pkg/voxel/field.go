package voxel

import (
	"gonum.org/v1/gonum/num/quat"

	"grainseg/pkg/errors"
	"grainseg/pkg/symmetry"
)

// Field is the per-voxel orientation data of a grid.
type Field struct {
	Grid Grid

	// Quats holds one orientation per voxel
	Quats []quat.Number

	// Phases holds the phase index of each voxel. Phase 0 is background.
	// A nil slice puts every voxel in phase 1.
	Phases []int

	// Mask marks voxels that may be assigned to a feature. A nil slice
	// means every voxel is usable.
	Mask []bool

	// Classes maps a phase index to its Laue class; Classes[0] is the
	// background entry and is never consulted.
	Classes []symmetry.Class
}

// Validate checks that the per-voxel slices match the grid.
func (f *Field) Validate() error {
	if err := f.Grid.Validate(); err != nil {
		return err
	}
	n := f.Grid.Len()
	if len(f.Quats) != n {
		return errors.New(errors.ErrCodeInvalidInput, "have %d orientations for %d voxels", len(f.Quats), n)
	}
	if f.Phases != nil && len(f.Phases) != n {
		return errors.New(errors.ErrCodeInvalidInput, "have %d phases for %d voxels", len(f.Phases), n)
	}
	if f.Mask != nil && len(f.Mask) != n {
		return errors.New(errors.ErrCodeInvalidInput, "have %d mask values for %d voxels", len(f.Mask), n)
	}
	if len(f.Classes) < 2 {
		return errors.New(errors.ErrCodeInvalidInput, "phase table needs a background entry and at least one phase, have %d entries", len(f.Classes))
	}
	return nil
}

// Phase returns the phase index of voxel i.
func (f *Field) Phase(i int) int {
	if f.Phases == nil {
		return 1
	}
	return f.Phases[i]
}

// Class returns the Laue class of voxel i, or Unknown when its phase has
// no table entry.
func (f *Field) Class(i int) symmetry.Class {
	p := f.Phase(i)
	if p <= 0 || p >= len(f.Classes) {
		return symmetry.Unknown
	}
	return f.Classes[p]
}

// Usable reports whether voxel i may belong to a feature: it is not masked
// out and its phase is a non-background entry of the phase table.
func (f *Field) Usable(i int) bool {
	if f.Mask != nil && !f.Mask[i] {
		return false
	}
	p := f.Phase(i)
	return p > 0 && p < len(f.Classes)
}

// NumPhases returns the number of phase table entries, background included.
func (f *Field) NumPhases() int {
	return len(f.Classes)
}
