package segmentation

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/num/quat"

	"grainseg/pkg/voxel"
)

// Feature is one sealed feature. Its member voxel indices are
// Result.Members[Start : Start+Length].
type Feature struct {
	ID      int32
	Phase   int
	Start   int
	Length  int
	Average quat.Number
}

// Result is the outcome of a segmentation pass.
type Result struct {
	Grid voxel.Grid

	// FeatureIDs holds one ID per voxel; 0 means unassigned.
	FeatureIDs []int32

	// Features is ordered by ID: Features[k].ID == k+1.
	Features []Feature

	// Members is the arena of member voxel indices for all features.
	Members []int
}

// FeatureCount returns the number of features.
func (r *Result) FeatureCount() int {
	return len(r.Features)
}

// Feature returns the feature with the given ID. It panics if id is out of
// range.
func (r *Result) Feature(id int32) *Feature {
	if id < 1 || int(id) > len(r.Features) {
		panic(fmt.Sprintf("segmentation: feature id %d out of range [1, %d]", id, len(r.Features)))
	}
	return &r.Features[id-1]
}

// MembersOf returns the voxel indices of feature id. The slice aliases the
// arena and must not be modified.
func (r *Result) MembersOf(id int32) []int {
	ft := r.Feature(id)
	return r.Members[ft.Start : ft.Start+ft.Length]
}

// AssignedVoxels returns how many voxels belong to a feature.
func (r *Result) AssignedVoxels() int {
	return len(r.Members)
}

// Sizes returns the voxel count per ID; index 0 counts unassigned voxels.
func (r *Result) Sizes() []int {
	sizes := make([]int, len(r.Features)+1)
	for _, ft := range r.Features {
		sizes[ft.ID] = ft.Length
	}
	sizes[0] = len(r.FeatureIDs) - len(r.Members)
	return sizes
}

// RandomizeIDs relabels the features with a uniform random permutation of
// 1..FeatureCount drawn from src. Membership is unchanged; Features is
// reordered so that it stays indexed by ID.
func (r *Result) RandomizeIDs(src rand.Source) {
	n := len(r.Features)
	if n < 2 {
		return
	}
	perm := rand.New(src).Perm(n)

	relabel := make([]int32, n+1)
	for old := 1; old <= n; old++ {
		relabel[old] = int32(perm[old-1] + 1)
	}
	for i, id := range r.FeatureIDs {
		r.FeatureIDs[i] = relabel[id]
	}

	features := make([]Feature, n)
	for _, ft := range r.Features {
		ft.ID = relabel[ft.ID]
		features[ft.ID-1] = ft
	}
	r.Features = features
}

// Validate checks that the result is a strict partition: every ID is in
// [0, FeatureCount], each feature's arena range lists exactly the voxels
// carrying its ID, and Features is indexed by ID.
func (r *Result) Validate() error {
	n := len(r.Features)
	counts := make([]int, n+1)
	for i, id := range r.FeatureIDs {
		if id < 0 || int(id) > n {
			return fmt.Errorf("voxel %d has feature id %d outside [0, %d]", i, id, n)
		}
		counts[id]++
	}

	seen := make([]bool, len(r.FeatureIDs))
	total := 0
	for k, ft := range r.Features {
		if int(ft.ID) != k+1 {
			return fmt.Errorf("feature at position %d has id %d", k, ft.ID)
		}
		if ft.Start < 0 || ft.Length < 1 || ft.Start+ft.Length > len(r.Members) {
			return fmt.Errorf("feature %d has arena range [%d, %d) outside [0, %d)", ft.ID, ft.Start, ft.Start+ft.Length, len(r.Members))
		}
		for _, v := range r.Members[ft.Start : ft.Start+ft.Length] {
			if seen[v] {
				return fmt.Errorf("voxel %d is listed twice", v)
			}
			seen[v] = true
			if r.FeatureIDs[v] != ft.ID {
				return fmt.Errorf("feature %d lists voxel %d, which has id %d", ft.ID, v, r.FeatureIDs[v])
			}
		}
		if counts[ft.ID] != ft.Length {
			return fmt.Errorf("feature %d has %d members but %d voxels carry its id", ft.ID, ft.Length, counts[ft.ID])
		}
		total += ft.Length
	}
	if total != len(r.Members) {
		return fmt.Errorf("features cover %d arena entries, arena has %d", total, len(r.Members))
	}
	return nil
}
