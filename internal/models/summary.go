// Package models holds the report types produced by an analysis run.
package models

// FeatureSummary describes one segmented feature
type FeatureSummary struct {
	// ID is the feature's label in the feature-ID array
	ID int32

	// Phase is the phase index shared by every member voxel
	Phase int

	// Voxels is the number of member voxels
	Voxels int

	// Size is the physical volume in 3D or area in 2D
	Size float64

	// Diameter is the equivalent sphere diameter in 3D or the equivalent
	// circle diameter in 2D
	Diameter float64

	// Euler holds the average orientation as Bunge angles in degrees
	Euler [3]float64

	// Centroid is the mean voxel center. Periodic wrap is not unfolded.
	Centroid [3]float64

	// Neighbors is the number of distinct features sharing a face with
	// this one
	Neighbors int
}

// PhaseSummary aggregates the features of one phase
type PhaseSummary struct {
	// Phase is the index into the phase table; 0 is background and never
	// summarized.
	Phase int

	// Class is the name of the phase's Laue class
	Class string

	// Features is the number of features assigned to the phase
	Features int

	// Voxels is the number of voxels in those features
	Voxels int

	// MeanDiameter and StdDiameter are equivalent diameters in physical
	// units, taken over the phase's features
	MeanDiameter float64
	StdDiameter  float64

	// Boundaries is the number of feature pairs of this phase sharing at
	// least one face
	Boundaries int
}
