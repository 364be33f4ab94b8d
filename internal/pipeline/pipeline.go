// Package pipeline runs a captured frame through conversion, contour
// extraction and marker post-processing.
package pipeline

import (
	"errors"
	"fmt"
	"log"

	"marker-locator/internal/config"
	"marker-locator/internal/contour"
	"marker-locator/internal/jpegtile"
	"marker-locator/internal/marker"
	"marker-locator/internal/raster"
	"marker-locator/pkg/geometry"
)

// Result holds everything computed for one frame.
type Result struct {
	Raster     raster.Buffer
	Quads      [][]geometry.PointInt // accepted candidate quads
	Candidates int                   // quads returned by the extractor
	Markers    []marker.Marker       // deduplicated detections
	Missing    []marker.Marker       // interpolated markers
	Spacing    marker.SpacingStats
}

// All returns the detected markers followed by the interpolated ones.
func (r *Result) All() []marker.Marker {
	out := make([]marker.Marker, 0, len(r.Markers)+len(r.Missing))
	out = append(out, r.Markers...)
	return append(out, r.Missing...)
}

// MissingCenters returns the centers of the interpolated markers.
func (r *Result) MissingCenters() []geometry.PointInt {
	out := make([]geometry.PointInt, len(r.Missing))
	for i, m := range r.Missing {
		out[i] = m.Center
	}
	return out
}

// Pipeline turns frames into marker lists.
type Pipeline struct {
	cfg       *config.Config
	extractor contour.Extractor
}

// New creates a pipeline. A nil extractor uses the OpenCV detector with
// the configured contour parameters.
func New(cfg *config.Config, ex contour.Extractor) *Pipeline {
	if ex == nil {
		ex = contour.NewDetector(cfg.ContourParams())
	}
	return &Pipeline{cfg: cfg, extractor: ex}
}

// Rasterize converts a frame into a raster the detector can read. JPEG
// frames are decoded through an 888 sink; uncompressed frames are
// normalized.
func (p *Pipeline) Rasterize(f raster.Frame) (raster.Buffer, error) {
	if f.Format != raster.FormatJPEG {
		return raster.Normalize(f)
	}
	sink := raster.NewSink888(raster.WithMemoryLimit(p.cfg.Sink.MemoryLimit))
	if err := jpegtile.Decode(f.Data, sink, jpegtile.Options{Scale: p.cfg.Sink.JPEGScale}); err != nil {
		sink.Release()
		return raster.Buffer{}, err
	}
	return sink.Raster()
}

// Process runs the full chain on one frame.
func (p *Pipeline) Process(f raster.Frame) (*Result, error) {
	buf, err := p.Rasterize(f)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}

	quads, err := p.extractor.Extract(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to extract contours: %w", err)
	}

	res := &Result{Raster: buf, Candidates: len(quads)}
	mc := p.cfg.Markers
	for _, q := range quads {
		if err := marker.ValidateQuad(q); err != nil {
			continue
		}
		m, err := marker.New(q, buf, mc.HighAccuracy)
		if err != nil {
			log.Printf("Pipeline: skipping quad: %v", err)
			continue
		}
		res.Quads = append(res.Quads, q)
		res.Markers = append(res.Markers, m)
	}

	res.Markers = marker.Deduplicate(res.Markers, mc.OverlapThreshold)

	missing, err := marker.FindMissing(res.Markers, mc.Expected, mc.Tolerance, mc.MaxDistance)
	switch {
	case errors.Is(err, raster.ErrMalformedInput):
		log.Printf("Pipeline: only %d markers, cannot interpolate", len(res.Markers))
	case err != nil:
		return nil, err
	default:
		res.Missing = missing
	}
	res.Spacing = marker.Spacing(res.Markers)

	if n := len(res.Missing); n > 0 {
		log.Printf("Pipeline: there are %d missing squares", n)
	}
	log.Printf("Pipeline: %d candidates, %d markers, %d interpolated (spacing mean %.1f, sd %.1f)",
		res.Candidates, len(res.Markers), len(res.Missing), res.Spacing.Mean, res.Spacing.StdDev)
	return res, nil
}
