package visualization

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"grainseg/pkg/errors"
	"grainseg/pkg/orientation"
	"grainseg/pkg/segmentation"
	"grainseg/pkg/symmetry"
	"grainseg/pkg/voxel"
)

// twoBlocks builds a 4x3x2 map split at x = 2, with voxel 0 masked out.
func twoBlocks(t *testing.T) (*segmentation.Result, *voxel.Field) {
	t.Helper()
	other := orientation.AxisAngleToQuaternion(orientation.AxisAngle{Axis: r3.Vec{X: 1}, Angle: 30 * orientation.DegToRad})
	g := voxel.NewGrid(4, 3, 2)
	f := &voxel.Field{
		Grid:    g,
		Quats:   make([]quat.Number, g.Len()),
		Mask:    make([]bool, g.Len()),
		Classes: []symmetry.Class{symmetry.Unknown, symmetry.CubicHigh},
	}
	for i := range f.Quats {
		x, _, _ := g.Coords(i)
		f.Quats[i] = orientation.Identity
		if x >= 2 {
			f.Quats[i] = other
		}
		f.Mask[i] = i != 0
	}
	res, err := segmentation.Segment(f, segmentation.Params{Tolerance: 5})
	if err != nil {
		t.Fatal(err)
	}
	return res, f
}

func sameColor(a, b color.Color) bool {
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

func TestExtractSliceFeatures(t *testing.T) {
	res, f := twoBlocks(t)
	v := NewViewer(res, f, nil)

	img, err := v.ExtractSlice("z", 0, ModeFeatures)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("z slice is %dx%d, want 4x3", b.Dx(), b.Dy())
	}
	if !sameColor(img.At(0, 0), color.Black) {
		t.Error("masked voxel should be black")
	}
	if !sameColor(img.At(1, 0), img.At(0, 2)) {
		t.Error("voxels of one feature have different colors")
	}
	if sameColor(img.At(1, 0), img.At(2, 0)) {
		t.Error("neighbouring features share a color")
	}
	if !sameColor(img.At(3, 2), FeatureColor(2)) {
		t.Error("feature 2 not painted with FeatureColor(2)")
	}

	x, err := v.ExtractSlice("x", 3, ModeFeatures)
	if err != nil {
		t.Fatal(err)
	}
	if b := x.Bounds(); b.Dx() != 2 || b.Dy() != 3 {
		t.Errorf("x slice is %dx%d, want 2x3", b.Dx(), b.Dy())
	}
	y, err := v.ExtractSlice("Y", 1, ModeFeatures)
	if err != nil {
		t.Fatal(err)
	}
	if b := y.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("y slice is %dx%d, want 4x2", b.Dx(), b.Dy())
	}
}

func TestExtractSliceEuler(t *testing.T) {
	res, f := twoBlocks(t)
	v := NewViewer(res, f, nil)

	img, err := v.ExtractSlice("z", 1, ModeEuler)
	if err != nil {
		t.Fatal(err)
	}
	if !sameColor(img.At(0, 0), color.RGBA{A: 255}) {
		t.Errorf("identity orientation rendered as %v", img.At(0, 0))
	}
	if !sameColor(img.At(2, 0), img.At(3, 2)) {
		t.Error("equal orientations rendered differently")
	}
	if sameColor(img.At(0, 0), img.At(2, 0)) {
		t.Error("different orientations rendered alike")
	}

	z0, _ := v.ExtractSlice("z", 0, ModeEuler)
	if !sameColor(z0.At(0, 0), color.Black) {
		t.Error("masked voxel should be black")
	}
}

func TestExtractSliceKAM(t *testing.T) {
	res, f := twoBlocks(t)

	if _, err := NewViewer(res, f, nil).ExtractSlice("z", 0, ModeKAM); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("missing KAM: err = %v", err)
	}

	kam := make([]float64, f.Grid.Len())
	kam[f.Grid.Index(1, 1, 0)] = 2
	kam[f.Grid.Index(2, 1, 0)] = 1
	v := NewViewer(res, f, kam)
	img, err := v.ExtractSlice("z", 0, ModeKAM)
	if err != nil {
		t.Fatal(err)
	}
	if !sameColor(img.At(1, 1), color.Gray{Y: 255}) {
		t.Errorf("largest KAM rendered as %v", img.At(1, 1))
	}
	if !sameColor(img.At(2, 1), color.Gray{Y: 128}) {
		t.Errorf("half KAM rendered as %v", img.At(2, 1))
	}
	if !sameColor(img.At(3, 1), color.Gray{Y: 0}) {
		t.Errorf("zero KAM rendered as %v", img.At(3, 1))
	}
}

func TestExtractSliceErrors(t *testing.T) {
	res, f := twoBlocks(t)
	v := NewViewer(res, f, nil)

	for _, tt := range []struct {
		axis string
		pos  int
	}{
		{"x", 4}, {"y", 3}, {"z", 2}, {"z", -1}, {"w", 0},
	} {
		if _, err := v.ExtractSlice(tt.axis, tt.pos, ModeFeatures); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("ExtractSlice(%q, %d): err = %v", tt.axis, tt.pos, err)
		}
	}
}

func TestSaveSliceSequence(t *testing.T) {
	res, f := twoBlocks(t)
	v := NewViewer(res, f, nil)
	dir := filepath.Join(t.TempDir(), "slices")

	n, err := v.SaveSliceSequence("x", dir, "png", ModeFeatures)
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("wrote %d slices, want 4", n)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("%d files in output directory, want 4", len(entries))
	}

	file, err := os.Open(filepath.Join(dir, "features_x_003.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatal(err)
	}
	if !sameColor(img.At(0, 0), FeatureColor(2)) {
		t.Errorf("decoded pixel %v, want feature 2's color", img.At(0, 0))
	}

	if _, err := v.SaveSliceSequence("q", dir, "png", ModeFeatures); err == nil {
		t.Error("expected an error for an invalid axis")
	}
}

func TestSaveSliceJPEG(t *testing.T) {
	res, f := twoBlocks(t)
	v := NewViewer(res, f, nil)
	img, err := v.ExtractSlice("z", 0, ModeFeatures)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "slice.jpg")
	if err := v.SaveSlice(img, path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("file does not start with a JPEG marker")
	}
}

func TestSaveSliceTIFFScaled(t *testing.T) {
	res, f := twoBlocks(t)
	v := NewViewer(res, f, nil)
	v.Scale = 3
	dir := t.TempDir()

	if _, err := v.SaveSliceSequence("z", dir, "tif", ModeFeatures); err != nil {
		t.Fatal(err)
	}
	file, err := os.Open(filepath.Join(dir, "features_z_001.tif"))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	img, err := tiff.Decode(file)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 9 {
		t.Fatalf("scaled slice is %dx%d, want 12x9", b.Dx(), b.Dy())
	}
	// voxel (2, 1) covers pixels [6, 9) x [3, 6)
	for _, p := range [][2]int{{6, 3}, {8, 5}} {
		if !sameColor(img.At(p[0], p[1]), FeatureColor(2)) {
			t.Errorf("pixel %v = %v, want feature 2's color", p, img.At(p[0], p[1]))
		}
	}
	if !sameColor(img.At(5, 3), FeatureColor(1)) {
		t.Errorf("pixel (5, 3) = %v, want feature 1's color", img.At(5, 3))
	}
}

func TestUpscale(t *testing.T) {
	res, f := twoBlocks(t)
	img, err := NewViewer(res, f, nil).ExtractSlice("z", 0, ModeFeatures)
	if err != nil {
		t.Fatal(err)
	}
	if Upscale(img, 1) != img {
		t.Error("factor 1 should return the input")
	}
	big := Upscale(img, 2)
	if b := big.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Fatalf("upscaled is %dx%d, want 8x6", b.Dx(), b.Dy())
	}
	if !sameColor(big.At(1, 1), color.Black) || !sameColor(big.At(7, 5), img.At(3, 2)) {
		t.Error("upscaled pixels do not match their source voxels")
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeFeatures, ModeEuler, ModeKAM} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("ipf"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}
