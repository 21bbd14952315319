package config

import (
	"os"
	"path/filepath"
	"testing"

	"grainseg/pkg/errors"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Segmentation.Tolerance != DefaultConfig().Segmentation.Tolerance {
		t.Errorf("tolerance = %v, want the default", cfg.Segmentation.Tolerance)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"grainseg.yaml", "grainseg.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)

			cfg := DefaultConfig()
			cfg.Grid.Dims = [3]int{20, 10, 1}
			cfg.Grid.Periodic = [3]bool{true, false, false}
			cfg.Synthetic.Class = "6/mmm"
			cfg.Synthetic.Seed = 1234
			cfg.Segmentation.Tolerance = 2.5
			cfg.Segmentation.Reference = "average"
			cfg.Binning.Bins = [3]int{4, 5, 6}
			cfg.Output.Verbose = true
			cfg.Output.SliceDir = "slices"
			cfg.Output.SliceMode = "kam"

			if err := SaveConfig(cfg, path); err != nil {
				t.Fatalf("SaveConfig failed: %v", err)
			}
			got, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if got.Grid != cfg.Grid || got.Synthetic != cfg.Synthetic ||
				got.Segmentation != cfg.Segmentation || got.Binning != cfg.Binning ||
				got.Processing != cfg.Processing || got.Output != cfg.Output {
				t.Errorf("round trip changed the config:\n got %+v\nwant %+v", got, cfg)
			}
		})
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yaml")
	if err := os.WriteFile(path, []byte("segmentation:\n  tolerance: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Segmentation.Tolerance != 3 {
		t.Errorf("tolerance = %v, want 3", cfg.Segmentation.Tolerance)
	}
	if cfg.Binning.Bins != DefaultConfig().Binning.Bins {
		t.Errorf("bins = %v, want the default", cfg.Binning.Bins)
	}

	tomlPath := filepath.Join(dir, "partial.toml")
	if err := os.WriteFile(tomlPath, []byte("[grid]\ndims = [8, 8, 1]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig(tomlPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.Dims != [3]int{8, 8, 1} || cfg.Grid.Resolution != [3]float64{1, 1, 1} {
		t.Errorf("grid = %+v", cfg.Grid)
	}
}

func TestMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("grid: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero dim", func(c *Config) { c.Grid.Dims[1] = 0 }},
		{"negative resolution", func(c *Config) { c.Grid.Resolution[2] = -1 }},
		{"zero bins", func(c *Config) { c.Binning.Bins[0] = 0 }},
		{"no grains", func(c *Config) { c.Synthetic.Grains = 0 }},
		{"unknown class", func(c *Config) { c.Synthetic.Class = "quasicrystal" }},
		{"Unknown class name", func(c *Config) { c.Synthetic.Class = "Unknown" }},
		{"negative scatter", func(c *Config) { c.Synthetic.Scatter = -1 }},
		{"zero tolerance", func(c *Config) { c.Segmentation.Tolerance = 0 }},
		{"huge tolerance", func(c *Config) { c.Segmentation.Tolerance = 190 }},
		{"bad reference", func(c *Config) { c.Segmentation.Reference = "median" }},
		{"negative max features", func(c *Config) { c.Segmentation.MaxFeatures = -3 }},
		{"negative features", func(c *Config) { c.Output.Features = -1 }},
		{"bad slice axis", func(c *Config) { c.Output.SliceAxis = "w" }},
		{"bad slice mode", func(c *Config) { c.Output.SliceMode = "ipf" }},
		{"bad slice format", func(c *Config) { c.Output.SliceFormat = "bmp" }},
		{"zero slice scale", func(c *Config) { c.Output.SliceScale = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("got %v, want INVALID_CONFIG", err)
			}
		})
	}
}
