// Package results writes per-frame marker lists as plain text records and
// as a CBOR sidecar stream.
package results

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"marker-locator/internal/marker"
	"marker-locator/internal/raster"
	"marker-locator/pkg/colorutil"
	"marker-locator/pkg/geometry"
)

// Writer emits one "x y" line per marker, or "x y c0 c1 c2" when colors
// are enabled, with a blank line between frames.
type Writer struct {
	w      *bufio.Writer
	colors bool
	frames int
}

// NewWriter creates a text result writer.
func NewWriter(w io.Writer, colors bool) *Writer {
	return &Writer{w: bufio.NewWriter(w), colors: colors}
}

// WriteFrame writes the markers of one frame and flushes.
func (r *Writer) WriteFrame(ms []marker.Marker) error {
	if r.frames > 0 {
		if err := r.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	r.frames++

	for _, m := range ms {
		var err error
		if r.colors {
			_, err = fmt.Fprintf(r.w, "%d %d %d %d %d\n", m.Center.X, m.Center.Y, m.Color[0], m.Color[1], m.Color[2])
		} else {
			_, err = fmt.Fprintf(r.w, "%d %d\n", m.Center.X, m.Center.Y)
		}
		if err != nil {
			return err
		}
	}
	return r.w.Flush()
}

// Frames returns the number of frames written.
func (r *Writer) Frames() int {
	return r.frames
}

// Record is one parsed text line.
type Record struct {
	Center   geometry.PointInt
	Color    colorutil.Triple
	HasColor bool
}

// ReadFrames parses the text form back into frames. Consecutive blank
// lines do not create empty frames.
func ReadFrames(r io.Reader) ([][]Record, error) {
	var (
		frames  [][]Record
		current []Record
		lineNo  int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if current != nil {
				frames = append(frames, current)
				current = nil
			}
			continue
		}

		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		current = append(current, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	if current != nil {
		frames = append(frames, current)
	}
	return frames, nil
}

func parseLine(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 && len(fields) != 5 {
		return Record{}, fmt.Errorf("%w: want 2 or 5 fields, got %d", raster.ErrMalformedInput, len(fields))
	}

	var rec Record
	var err error
	if rec.Center.X, err = strconv.Atoi(fields[0]); err != nil {
		return Record{}, fmt.Errorf("%w: %v", raster.ErrMalformedInput, err)
	}
	if rec.Center.Y, err = strconv.Atoi(fields[1]); err != nil {
		return Record{}, fmt.Errorf("%w: %v", raster.ErrMalformedInput, err)
	}
	if len(fields) == 5 {
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseUint(fields[2+i], 10, 8)
			if err != nil {
				return Record{}, fmt.Errorf("%w: %v", raster.ErrMalformedInput, err)
			}
			rec.Color[i] = uint8(v)
		}
		rec.HasColor = true
	}
	return rec, nil
}
