// Package config loads marker locator settings from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"marker-locator/internal/contour"
	"marker-locator/internal/raster"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrUnknownExtension is returned for config files that are neither YAML
// nor TOML.
var ErrUnknownExtension = errors.New("unknown config file extension")

// Config is the complete locator configuration.
type Config struct {
	Markers  MarkersConfig  `yaml:"markers" toml:"markers"`
	Contours ContoursConfig `yaml:"contours" toml:"contours"`
	Sink     SinkConfig     `yaml:"sink" toml:"sink"`
	Output   OutputConfig   `yaml:"output" toml:"output"`
	Watch    WatchConfig    `yaml:"watch" toml:"watch"`
}

// MarkersConfig controls marker post-processing.
type MarkersConfig struct {
	Expected         int  `yaml:"expected" toml:"expected"`                   // markers in the printed grid
	OverlapThreshold int  `yaml:"overlap_threshold" toml:"overlap_threshold"` // dedupe distance in pixels
	Tolerance        int  `yaml:"tolerance" toml:"tolerance"`
	MaxDistance      int  `yaml:"max_distance" toml:"max_distance"`
	HighAccuracy     bool `yaml:"high_accuracy" toml:"high_accuracy"` // 5x5 color sampling
}

// ContoursConfig mirrors contour.Params.
type ContoursConfig struct {
	MinArea       float64 `yaml:"min_area" toml:"min_area"`
	MaxArea       float64 `yaml:"max_area" toml:"max_area"`
	EpsilonFactor float64 `yaml:"epsilon_factor" toml:"epsilon_factor"`
	BlurSize      int     `yaml:"blur_size" toml:"blur_size"`
	CannyLow      float32 `yaml:"canny_low" toml:"canny_low"`
	CannyHigh     float32 `yaml:"canny_high" toml:"canny_high"`
	DilateSize    int     `yaml:"dilate_size" toml:"dilate_size"`
}

// SinkConfig bounds the JPEG conversion stage.
type SinkConfig struct {
	MemoryLimit int `yaml:"memory_limit" toml:"memory_limit"`
	JPEGScale   int `yaml:"jpeg_scale" toml:"jpeg_scale"`
}

// OutputConfig selects what gets written per frame. Empty paths disable
// the corresponding output.
type OutputConfig struct {
	ResultsFile string `yaml:"results_file" toml:"results_file"`
	SidecarFile string `yaml:"sidecar_file" toml:"sidecar_file"`
	BitmapDir   string `yaml:"bitmap_dir" toml:"bitmap_dir"`
	ArchiveFile string `yaml:"archive_file" toml:"archive_file"`
	Annotate    bool   `yaml:"annotate" toml:"annotate"`
	Colors      bool   `yaml:"colors" toml:"colors"`
}

// WatchConfig configures the incoming frame watcher.
type WatchConfig struct {
	InputDir string `yaml:"input_dir" toml:"input_dir"`
	SettleMS int    `yaml:"settle_ms" toml:"settle_ms"` // quiet period before a new file is read
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	p := contour.DefaultParams()
	return &Config{
		Markers: MarkersConfig{
			Expected:         20,
			OverlapThreshold: 10,
			Tolerance:        10,
			MaxDistance:      100,
			HighAccuracy:     true,
		},
		Contours: ContoursConfig{
			MinArea:       p.MinArea,
			MaxArea:       p.MaxArea,
			EpsilonFactor: p.EpsilonFactor,
			BlurSize:      p.BlurSize,
			CannyLow:      p.CannyLow,
			CannyHigh:     p.CannyHigh,
			DilateSize:    p.DilateSize,
		},
		Sink: SinkConfig{
			MemoryLimit: raster.DefaultMemoryLimit,
			JPEGScale:   1,
		},
		Output: OutputConfig{
			ResultsFile: "results.txt",
		},
		Watch: WatchConfig{
			SettleMS: 200,
		},
	}
}

// Load reads a configuration file on top of the defaults. The format is
// chosen by extension: .yaml/.yml or .toml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path in the format implied by its extension.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(c)
		data = buf.Bytes()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownExtension, ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	m := c.Markers
	if m.Expected <= 0 {
		return fmt.Errorf("markers.expected must be positive, got %d", m.Expected)
	}
	if m.OverlapThreshold < 0 || m.Tolerance < 0 {
		return fmt.Errorf("markers thresholds must not be negative")
	}
	if m.MaxDistance <= 0 {
		return fmt.Errorf("markers.max_distance must be positive, got %d", m.MaxDistance)
	}

	k := c.Contours
	if k.MinArea < 0 || k.MaxArea < k.MinArea {
		return fmt.Errorf("contours area range [%g, %g] is invalid", k.MinArea, k.MaxArea)
	}
	if k.EpsilonFactor <= 0 {
		return fmt.Errorf("contours.epsilon_factor must be positive")
	}
	if k.BlurSize <= 0 || k.BlurSize%2 == 0 {
		return fmt.Errorf("contours.blur_size must be a positive odd number, got %d", k.BlurSize)
	}
	if k.DilateSize <= 0 {
		return fmt.Errorf("contours.dilate_size must be positive, got %d", k.DilateSize)
	}

	if c.Sink.MemoryLimit < 0 {
		return fmt.Errorf("sink.memory_limit must not be negative")
	}
	switch c.Sink.JPEGScale {
	case 0, 1, 2, 4, 8:
	default:
		return fmt.Errorf("sink.jpeg_scale must be 1, 2, 4 or 8, got %d", c.Sink.JPEGScale)
	}
	if c.Watch.SettleMS < 0 {
		return fmt.Errorf("watch.settle_ms must not be negative")
	}
	// Saved bitmaps in the watched directory would be picked up as new frames.
	if c.Watch.InputDir != "" && c.Output.BitmapDir != "" && sameDir(c.Watch.InputDir, c.Output.BitmapDir) {
		return fmt.Errorf("output.bitmap_dir must differ from watch.input_dir (%s)", c.Watch.InputDir)
	}
	return nil
}

func sameDir(a, b string) bool {
	if absA, err := filepath.Abs(a); err == nil {
		a = absA
	}
	if absB, err := filepath.Abs(b); err == nil {
		b = absB
	}
	return filepath.Clean(a) == filepath.Clean(b)
}

// ContourParams converts the contour section for the detector.
func (c *Config) ContourParams() contour.Params {
	k := c.Contours
	return contour.Params{
		MinArea:       k.MinArea,
		MaxArea:       k.MaxArea,
		EpsilonFactor: k.EpsilonFactor,
		BlurSize:      k.BlurSize,
		CannyLow:      k.CannyLow,
		CannyHigh:     k.CannyHigh,
		DilateSize:    k.DilateSize,
	}
}
