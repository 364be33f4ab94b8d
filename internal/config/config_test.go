package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20, cfg.Markers.Expected)
	assert.Equal(t, 10, cfg.Markers.OverlapThreshold)
	assert.Equal(t, 10, cfg.Markers.Tolerance)
	assert.Equal(t, 100, cfg.Markers.MaxDistance)
	assert.True(t, cfg.Markers.HighAccuracy)
	assert.Equal(t, 400.0, cfg.Contours.MinArea)
	assert.Equal(t, 1700.0, cfg.Contours.MaxArea)
	assert.Equal(t, 8<<20, cfg.Sink.MemoryLimit)

	p := cfg.ContourParams()
	assert.Equal(t, 0.03, p.EpsilonFactor)
	assert.Equal(t, float32(30), p.CannyLow)
	assert.Equal(t, float32(60), p.CannyHigh)
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "locator.yaml", `
markers:
  expected: 16
  high_accuracy: false
contours:
  max_area: 2500
output:
  annotate: true
  bitmap_dir: out
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 16, cfg.Markers.Expected)
	assert.False(t, cfg.Markers.HighAccuracy)
	assert.Equal(t, 10, cfg.Markers.OverlapThreshold)
	assert.Equal(t, 2500.0, cfg.Contours.MaxArea)
	assert.Equal(t, 400.0, cfg.Contours.MinArea)
	assert.True(t, cfg.Output.Annotate)
	assert.Equal(t, "out", cfg.Output.BitmapDir)
	assert.Equal(t, "results.txt", cfg.Output.ResultsFile)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "locator.toml", `
[markers]
expected = 12
tolerance = 4

[sink]
jpeg_scale = 2
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Markers.Expected)
	assert.Equal(t, 4, cfg.Markers.Tolerance)
	assert.Equal(t, 2, cfg.Sink.JPEGScale)
	assert.Equal(t, 100, cfg.Markers.MaxDistance)
}

func TestLoadErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		file string
		body string
	}{
		{"extension", "locator.ini", "expected=1"},
		{"syntax", "locator.yaml", "markers: [unterminated"},
		{"even_blur", "locator.yaml", "contours:\n  blur_size: 4\n"},
		{"area_range", "locator.toml", "[contours]\nmin_area = 900.0\nmax_area = 100.0\n"},
		{"scale", "locator.yml", "sink:\n  jpeg_scale: 3\n"},
		{"expected", "locator.yml", "markers:\n  expected: 0\n"},
		{"bitmaps_in_input", "locator.yaml", "watch:\n  input_dir: frames\noutput:\n  bitmap_dir: ./frames/\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.file, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"cfg.yaml", "cfg.toml"} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Markers.Expected = 9
			cfg.Output.ArchiveFile = "frames.arc"

			path := filepath.Join(t.TempDir(), "sub", name)
			require.NoError(t, cfg.Save(path))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}

	assert.ErrorIs(t, Default().Save(filepath.Join(t.TempDir(), "cfg.json")), ErrUnknownExtension)
}

func TestValidateBitmapDir(t *testing.T) {
	cfg := Default()
	cfg.Watch.InputDir = "frames"
	cfg.Output.BitmapDir = "frames/saved"
	assert.NoError(t, cfg.Validate())

	abs, err := filepath.Abs("frames")
	require.NoError(t, err)
	cfg.Output.BitmapDir = abs
	assert.ErrorContains(t, cfg.Validate(), "bitmap_dir")
}
