// Package config provides configuration loading and management for grainseg.
// It handles loading configuration from YAML or TOML files and provides
// default values.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"grainseg/pkg/errors"
	"grainseg/pkg/segmentation"
	"grainseg/pkg/symmetry"
	"grainseg/pkg/visualization"
)

// Config represents the application configuration
type Config struct {
	// Grid geometry of the analysed field
	Grid struct {
		// Dims is the number of voxels along x, y and z; z = 1 gives a 2D map
		Dims [3]int `yaml:"dims" toml:"dims"`

		// Resolution is the physical voxel edge length per axis
		Resolution [3]float64 `yaml:"resolution" toml:"resolution"`

		// Periodic joins opposite faces along each axis
		Periodic [3]bool `yaml:"periodic" toml:"periodic"`
	} `yaml:"grid" toml:"grid"`

	// Synthetic microstructure parameters
	Synthetic struct {
		// Grains is the number of Voronoi nuclei
		Grains int `yaml:"grains" toml:"grains"`

		// Class names the Laue class, e.g. "CubicHigh" or "6/mmm"
		Class string `yaml:"class" toml:"class"`

		// Scatter is the per-voxel orientation noise in degrees
		Scatter float64 `yaml:"scatter" toml:"scatter"`

		// Seed makes runs reproducible
		Seed uint64 `yaml:"seed" toml:"seed"`
	} `yaml:"synthetic" toml:"synthetic"`

	// Segmentation parameters
	Segmentation struct {
		// Tolerance is the misorientation threshold in degrees
		Tolerance float64 `yaml:"tolerance" toml:"tolerance"`

		// Reference is "neighbor", "seed" or "average"
		Reference string `yaml:"reference" toml:"reference"`

		// MaxFeatures aborts runaway segmentations; 0 disables the limit
		MaxFeatures int `yaml:"maxFeatures" toml:"maxFeatures"`

		// RandomizeIDs shuffles feature labels after segmentation
		RandomizeIDs bool `yaml:"randomizeIds" toml:"randomizeIds"`

		// KAMThreshold bounds the kernel average; 0 uses Tolerance
		KAMThreshold float64 `yaml:"kamThreshold" toml:"kamThreshold"`
	} `yaml:"segmentation" toml:"segmentation"`

	// Binning parameters
	Binning struct {
		// Bins is the number of bins per homochoric axis
		Bins [3]int `yaml:"bins" toml:"bins"`
	} `yaml:"binning" toml:"binning"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores" toml:"numCores"`
	} `yaml:"processing" toml:"processing"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose" toml:"verbose"`

		// Features is how many feature rows to print; 0 prints none
		Features int `yaml:"features" toml:"features"`

		// SliceDir receives rendered slice images; empty disables them
		SliceDir string `yaml:"sliceDir" toml:"sliceDir"`

		// SliceAxis is the axis the slices are perpendicular to
		SliceAxis string `yaml:"sliceAxis" toml:"sliceAxis"`

		// SliceMode is "features", "euler" or "kam"
		SliceMode string `yaml:"sliceMode" toml:"sliceMode"`

		// SliceFormat is the image file extension: png, jpg or tif
		SliceFormat string `yaml:"sliceFormat" toml:"sliceFormat"`

		// SliceScale enlarges each voxel to SliceScale x SliceScale pixels
		SliceScale int `yaml:"sliceScale" toml:"sliceScale"`
	} `yaml:"output" toml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Grid.Dims = [3]int{32, 32, 32}
	cfg.Grid.Resolution = [3]float64{1, 1, 1}

	cfg.Synthetic.Grains = 40
	cfg.Synthetic.Class = symmetry.CubicHigh.String()
	cfg.Synthetic.Scatter = 0.5
	cfg.Synthetic.Seed = 1

	cfg.Segmentation.Tolerance = 5
	cfg.Segmentation.Reference = segmentation.ReferenceNeighbor.String()

	cfg.Binning.Bins = [3]int{18, 18, 18}

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	cfg.Output.Features = 10
	cfg.Output.SliceAxis = "z"
	cfg.Output.SliceMode = visualization.ModeFeatures.String()
	cfg.Output.SliceFormat = "png"
	cfg.Output.SliceScale = 1

	return cfg
}

// isTOML reports whether path should be read and written as TOML
func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML or, for a .toml extension,
// TOML file. If the file doesn't exist, it returns the default configuration.
// Values missing from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if isTOML(configPath) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "error parsing config file %s", configPath)
	}

	return cfg, nil
}

// SaveConfig saves the configuration as YAML, or as TOML for a .toml path
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := Marshal(cfg, configPath)
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Marshal encodes cfg in the format implied by configPath's extension
func Marshal(cfg *Config, configPath string) ([]byte, error) {
	if isTOML(configPath) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, fmt.Errorf("error marshaling config: %w", err)
		}
		return buf.Bytes(), nil
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("error marshaling config: %w", err)
	}
	return data, nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks the values that have no safe interpretation
func (c *Config) Validate() error {
	for axis := 0; axis < 3; axis++ {
		if c.Grid.Dims[axis] < 1 {
			return errors.New(errors.ErrCodeInvalidConfig, "grid.dims[%d] must be at least 1, got %d", axis, c.Grid.Dims[axis])
		}
		if !(c.Grid.Resolution[axis] > 0) {
			return errors.New(errors.ErrCodeInvalidConfig, "grid.resolution[%d] must be positive, got %v", axis, c.Grid.Resolution[axis])
		}
		if c.Binning.Bins[axis] < 1 {
			return errors.New(errors.ErrCodeInvalidConfig, "binning.bins[%d] must be at least 1, got %d", axis, c.Binning.Bins[axis])
		}
	}
	if c.Synthetic.Grains < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "synthetic.grains must be at least 1, got %d", c.Synthetic.Grains)
	}
	if cls, err := symmetry.Parse(c.Synthetic.Class); err != nil || !cls.Valid() {
		return errors.New(errors.ErrCodeInvalidConfig, "synthetic.class %q is not a known Laue class", c.Synthetic.Class)
	}
	if c.Synthetic.Scatter < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "synthetic.scatter must not be negative, got %v", c.Synthetic.Scatter)
	}
	if t := c.Segmentation.Tolerance; !(t > 0 && t <= 180) {
		return errors.New(errors.ErrCodeInvalidConfig, "segmentation.tolerance must be in (0, 180], got %v", t)
	}
	if _, err := segmentation.ParseReference(c.Segmentation.Reference); err != nil {
		return err
	}
	if c.Segmentation.MaxFeatures < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "segmentation.maxFeatures must not be negative, got %d", c.Segmentation.MaxFeatures)
	}
	if c.Output.Features < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "output.features must not be negative, got %d", c.Output.Features)
	}
	switch strings.ToLower(c.Output.SliceAxis) {
	case "x", "y", "z":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "output.sliceAxis must be x, y or z, got %q", c.Output.SliceAxis)
	}
	if _, err := visualization.ParseMode(c.Output.SliceMode); err != nil {
		return err
	}
	switch strings.ToLower(c.Output.SliceFormat) {
	case "png", "jpg", "jpeg", "tif", "tiff":
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "output.sliceFormat must be png, jpg or tif, got %q", c.Output.SliceFormat)
	}
	if c.Output.SliceScale < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "output.sliceScale must be at least 1, got %d", c.Output.SliceScale)
	}
	return nil
}
