package results

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"marker-locator/internal/marker"
	"marker-locator/internal/raster"
	"marker-locator/pkg/colorutil"
	"marker-locator/pkg/geometry"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []marker.Marker{
	{Center: geometry.Pt(12, 40), Color: colorutil.Triple{1, 2, 3}},
	{Center: geometry.Pt(60, 41), Color: colorutil.Triple{200, 100, 50}},
	{Center: geometry.Pt(36, 40), Synthetic: true},
}

func TestWriterPlain(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, false)
	require.NoError(t, w.WriteFrame(sample))
	require.NoError(t, w.WriteFrame(sample[:1]))

	assert.Equal(t, "12 40\n60 41\n36 40\n\n12 40\n", buf.String())
	assert.Equal(t, 2, w.Frames())
}

func TestWriterColors(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	require.NoError(t, w.WriteFrame(sample[:2]))
	assert.Equal(t, "12 40 1 2 3\n60 41 200 100 50\n", buf.String())
}

func TestReadFrames(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, true)
	require.NoError(t, w.WriteFrame(sample))
	require.NoError(t, w.WriteFrame(sample[1:2]))

	frames, err := ReadFrames(&buf)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	require.Len(t, frames[0], 3)
	assert.Equal(t, geometry.Pt(60, 41), frames[0][1].Center)
	assert.Equal(t, colorutil.Triple{200, 100, 50}, frames[0][1].Color)
	assert.True(t, frames[0][1].HasColor)
	assert.Equal(t, colorutil.Triple{}, frames[0][2].Color)

	plain, err := ReadFrames(strings.NewReader("1 2\n\n\n3 4\n5 6\n"))
	require.NoError(t, err)
	require.Len(t, plain, 2)
	assert.False(t, plain[1][0].HasColor)
	assert.Equal(t, geometry.Pt(5, 6), plain[1][1].Center)
}

func TestReadFramesErrors(t *testing.T) {
	for _, in := range []string{"1 2 3\n", "a b\n", "1 2 3 4 300\n"} {
		_, err := ReadFrames(strings.NewReader(in))
		assert.ErrorIs(t, err, raster.ErrMalformedInput, in)
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sc, err := NewSidecar(&buf, "")
	require.NoError(t, err)
	_, err = uuid.Parse(sc.RunID())
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, sc.Write(FrameReport{
			RunID:       "ignored",
			Frame:       i,
			Source:      "frame.jpg",
			Width:       320,
			Height:      240,
			Markers:     sample,
			Missing:     1,
			Spacing:     marker.Spacing(sample),
			ProcessedAt: at,
		}))
	}

	reports, err := ReadSidecar(&buf)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	for i, r := range reports {
		assert.Equal(t, sc.RunID(), r.RunID)
		assert.Equal(t, i, r.Frame)
		assert.Equal(t, sample, r.Markers)
		assert.True(t, at.Equal(r.ProcessedAt))
		assert.Equal(t, 2, r.Spacing.Count)
	}
}

func TestSidecarRejectsBadRunID(t *testing.T) {
	_, err := NewSidecar(&bytes.Buffer{}, "not-a-uuid")
	assert.Error(t, err)
}
