package config

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() (*flag.FlagSet, *Flags) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs, BindFlags(fs)
}

func TestFlagsDefaults(t *testing.T) {
	fs, f := newFlagSet()
	require.NoError(t, fs.Parse(nil))
	cfg, err := f.Load(fs)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "c.yaml", "markers:\n  expected: 30\n  tolerance: 7\noutput:\n  colors: true\n")

	fs, f := newFlagSet()
	require.NoError(t, fs.Parse([]string{"-config", path, "-expected", "24", "-annotate", "-bitmaps", "out"}))
	cfg, err := f.Load(fs)
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.Markers.Expected)
	assert.Equal(t, 7, cfg.Markers.Tolerance)
	assert.True(t, cfg.Output.Colors)
	assert.True(t, cfg.Output.Annotate)
	assert.Equal(t, "out", cfg.Output.BitmapDir)
}

func TestFlagsInvalidOverride(t *testing.T) {
	fs, f := newFlagSet()
	require.NoError(t, fs.Parse([]string{"-jpeg-scale", "5"}))
	_, err := f.Load(fs)
	assert.Error(t, err)
}
