package pipeline

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"marker-locator/internal/archive"
	"marker-locator/internal/bmp"
	"marker-locator/internal/config"
	"marker-locator/internal/contour"
	"marker-locator/internal/raster"
	"marker-locator/internal/results"
)

// Runner processes frame files and writes the configured outputs.
type Runner struct {
	cfg      *config.Config
	pipeline *Pipeline

	text    *results.Writer
	sidecar *results.Sidecar
	archive *archive.Writer
	closers []io.Closer

	frames int
}

// NewRunner opens every output named in cfg.Output. Empty paths are
// skipped.
func NewRunner(cfg *config.Config, p *Pipeline) (*Runner, error) {
	r := &Runner{cfg: cfg, pipeline: p}
	out := cfg.Output

	if out.ResultsFile != "" {
		f, err := createFile(out.ResultsFile)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, f)
		r.text = results.NewWriter(f, out.Colors)
	}
	if out.SidecarFile != "" {
		f, err := createFile(out.SidecarFile)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.closers = append(r.closers, f)
		sc, err := results.NewSidecar(f, "")
		if err != nil {
			r.Close()
			return nil, err
		}
		r.sidecar = sc
		log.Printf("Runner: run %s", sc.RunID())
	}
	if out.ArchiveFile != "" {
		if err := ensureDir(out.ArchiveFile); err != nil {
			r.Close()
			return nil, err
		}
		a, err := archive.Create(out.ArchiveFile)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.archive = a
	}
	if out.BitmapDir != "" {
		if err := os.MkdirAll(out.BitmapDir, 0o755); err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to create bitmap dir: %w", err)
		}
	}
	return r, nil
}

// Frames returns the number of frames handled so far.
func (r *Runner) Frames() int {
	return r.frames
}

// HandleFile loads a frame file and runs it. Its signature matches
// watch.Handler.
func (r *Runner) HandleFile(path string) error {
	f, err := raster.LoadFrame(path)
	if err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	_, err = r.Handle(name, f)
	return err
}

// Handle processes one frame and writes its outputs. The frame is archived
// before processing so a frame that fails detection can be replayed.
func (r *Runner) Handle(name string, f raster.Frame) (*Result, error) {
	start := time.Now()
	if r.archive != nil {
		if err := r.archive.Add(archive.Entry{Name: name, CapturedAt: start, Frame: f}); err != nil {
			return nil, fmt.Errorf("failed to archive frame: %w", err)
		}
	}

	res, err := r.pipeline.Process(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	idx := r.frames
	r.frames++

	if r.text != nil {
		if err := r.text.WriteFrame(res.All()); err != nil {
			return res, fmt.Errorf("failed to write results: %w", err)
		}
	}
	if r.sidecar != nil {
		err := r.sidecar.Write(results.FrameReport{
			Frame:       idx,
			Source:      name,
			Width:       res.Raster.Width,
			Height:      res.Raster.Height,
			Candidates:  res.Candidates,
			Markers:     res.All(),
			Missing:     len(res.Missing),
			Spacing:     res.Spacing,
			ProcessedAt: start,
		})
		if err != nil {
			return res, err
		}
	}
	if dir := r.cfg.Output.BitmapDir; dir != "" {
		if err := r.writeBitmaps(dir, name, f, res); err != nil {
			return res, err
		}
	}

	log.Printf("Runner: %s processed in %v", name, time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (r *Runner) writeBitmaps(dir, name string, f raster.Frame, res *Result) error {
	data, err := bmp.EncodeFrame(f)
	if err != nil {
		// YUV frames have no container form; the results are still valid.
		log.Printf("Runner: not saving %s as bitmap: %v", name, err)
	} else if err := os.WriteFile(filepath.Join(dir, name+".bmp"), data, 0o644); err != nil {
		return fmt.Errorf("failed to save bitmap: %w", err)
	}

	if !r.cfg.Output.Annotate {
		return nil
	}
	annotated, err := contour.Annotate(res.Raster, res.Quads, res.MissingCenters())
	if err != nil {
		return fmt.Errorf("failed to annotate frame: %w", err)
	}
	data, err = bmp.Encode(annotated)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, name+"_processed.bmp"), data, 0o644); err != nil {
		return fmt.Errorf("failed to save annotated bitmap: %w", err)
	}
	return nil
}

// Close flushes and closes every output.
func (r *Runner) Close() error {
	var first error
	if r.archive != nil {
		if err := r.archive.Close(); err != nil && first == nil {
			first = err
		}
	}
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	return nil
}

func createFile(path string) (*os.File, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
