// Package visualization renders planar sections of a segmented orientation
// map as images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/num/quat"

	"grainseg/pkg/errors"
	"grainseg/pkg/orientation"
	"grainseg/pkg/segmentation"
	"grainseg/pkg/voxel"
)

// Mode selects the quantity a slice shows.
type Mode int

const (
	// ModeFeatures paints each feature in its own color; unassigned voxels
	// are black.
	ModeFeatures Mode = iota
	// ModeEuler maps the Bunge angles (phi1, Phi, phi2) of the reduced
	// orientation to red, green and blue.
	ModeEuler
	// ModeKAM shows the kernel average misorientation in gray levels,
	// scaled to the largest value in the map.
	ModeKAM
)

var modeNames = [...]string{"features", "euler", "kam"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode returns the mode named s.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidConfig, "unknown slice mode %q (want features, euler or kam)", s)
}

// goldenAngle spreads consecutive feature IDs around the hue circle.
const goldenAngle = 137.50776405003785

// Viewer extracts planar sections from a segmented map.
type Viewer struct {
	// Scale enlarges saved slices by an integer factor; values below 2
	// keep one pixel per voxel.
	Scale int

	grid   voxel.Grid
	ids    []int32
	field  *voxel.Field
	kam    []float64
	kamMax float64
}

// NewViewer creates a viewer over a segmentation result, the field it was
// computed from, and optionally the per-voxel kernel average misorientation.
// kam may be nil when ModeKAM is not used.
func NewViewer(res *segmentation.Result, field *voxel.Field, kam []float64) *Viewer {
	v := &Viewer{
		grid:  res.Grid,
		ids:   res.FeatureIDs,
		field: field,
		kam:   kam,
	}
	if len(kam) > 0 {
		v.kamMax = floats.Max(kam)
	}
	return v
}

// ExtractSlice renders the plane perpendicular to axis at position. An x
// slice is laid out (z, y), a y slice (x, z) and a z slice (x, y).
func (v *Viewer) ExtractSlice(axis string, position int, mode Mode) (image.Image, error) {
	if position < 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "position must be non-negative")
	}
	if mode == ModeKAM && len(v.kam) != v.grid.Len() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no kernel average misorientation to render")
	}
	nx, ny, nz := v.grid.Dims[0], v.grid.Dims[1], v.grid.Dims[2]

	var img *image.RGBA
	switch axis {
	case "x", "X":
		if position >= nx {
			return nil, errors.New(errors.ErrCodeInvalidInput, "position %d exceeds width %d", position, nx)
		}
		img = image.NewRGBA(image.Rect(0, 0, nz, ny))
		for y := 0; y < ny; y++ {
			for z := 0; z < nz; z++ {
				img.Set(z, y, v.colorAt(v.grid.Index(position, y, z), mode))
			}
		}

	case "y", "Y":
		if position >= ny {
			return nil, errors.New(errors.ErrCodeInvalidInput, "position %d exceeds height %d", position, ny)
		}
		img = image.NewRGBA(image.Rect(0, 0, nx, nz))
		for z := 0; z < nz; z++ {
			for x := 0; x < nx; x++ {
				img.Set(x, z, v.colorAt(v.grid.Index(x, position, z), mode))
			}
		}

	case "z", "Z":
		if position >= nz {
			return nil, errors.New(errors.ErrCodeInvalidInput, "position %d exceeds depth %d", position, nz)
		}
		img = image.NewRGBA(image.Rect(0, 0, nx, ny))
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				img.Set(x, y, v.colorAt(v.grid.Index(x, y, position), mode))
			}
		}

	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

func (v *Viewer) colorAt(i int, mode Mode) color.Color {
	switch mode {
	case ModeEuler:
		if !v.field.Usable(i) {
			return color.Black
		}
		return eulerColor(v.field.Quats[i])
	case ModeKAM:
		if !v.field.Usable(i) || v.kamMax <= 0 {
			return color.Black
		}
		return color.Gray{Y: uint8(math.Round(255 * v.kam[i] / v.kamMax))}
	default:
		return FeatureColor(v.ids[i])
	}
}

// FeatureColor returns the display color of feature id. ID 0 is black.
func FeatureColor(id int32) color.Color {
	if id <= 0 {
		return color.Black
	}
	hue := math.Mod(float64(id)*goldenAngle, 360)
	r, g, b := colorful.Hsv(hue, 0.65, 0.95).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func eulerColor(q quat.Number) color.Color {
	d := orientation.QuaternionToEuler(q).Degrees()
	return color.RGBA{
		R: channel(d[0] / 360),
		G: channel(d[1] / 180),
		B: channel(d[2] / 360),
		A: 255,
	}
}

func channel(f float64) uint8 {
	return uint8(math.Round(255 * math.Max(0, math.Min(1, f))))
}

// Upscale enlarges img by factor with nearest-neighbour sampling so voxel
// edges stay sharp. A factor below 2 returns img unchanged.
func Upscale(img image.Image, factor int) image.Image {
	if factor < 2 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// SaveSlice writes img, enlarged by v.Scale, as PNG, or as JPEG or TIFF
// when the filename has that extension.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	img = Upscale(img, v.Scale)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	case ".tif", ".tiff":
		return tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return png.Encode(file, img)
	}
}

// SaveSliceSequence renders every slice along axis into outputDir and
// returns the number of files written. format is the file extension
// without the dot ("png", "jpg" or "tif").
func (v *Viewer) SaveSliceSequence(axis, outputDir, format string, mode Mode) (int, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.grid.Dims[0]
	case "y", "Y":
		maxPos = v.grid.Dims[1]
	case "z", "Z":
		maxPos = v.grid.Dims[2]
	default:
		return 0, errors.New(errors.ErrCodeInvalidInput, "invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos, mode)
		if err != nil {
			return pos, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s_%03d.%s", mode, strings.ToLower(axis), pos, format))
		if err := v.SaveSlice(img, filename); err != nil {
			return pos, err
		}
	}

	return maxPos, nil
}
