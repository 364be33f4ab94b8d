// Command markerscan runs marker detection on frame files or on the frames
// of an archive and prints the results.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"marker-locator/internal/archive"
	"marker-locator/internal/config"
	"marker-locator/internal/pipeline"
	"marker-locator/internal/raster"
)

type namedFrame struct {
	name  string
	frame raster.Frame
}

func main() {
	flags := config.BindFlags(flag.CommandLine)
	fromArchive := flag.String("from-archive", "", "Replay the frames of an archive file")
	writeConfig := flag.String("write-config", "", "Write the effective config to this file and exit")
	flag.Parse()

	cfg, err := flags.Load(flag.CommandLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *writeConfig != "" {
		if err := cfg.Save(*writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", *writeConfig)
		return
	}

	frames, err := collect(*fromArchive, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load frames: %v\n", err)
		os.Exit(1)
	}
	if len(frames) == 0 {
		fmt.Println("Usage: markerscan [-config locator.yaml] [-annotate -bitmaps dir] <frame files...>")
		fmt.Println("       markerscan -from-archive frames.arc")
		os.Exit(1)
	}

	// Replaying an archive into itself would truncate it.
	if *fromArchive != "" && cfg.Output.ArchiveFile == *fromArchive {
		cfg.Output.ArchiveFile = ""
	}

	p := pipeline.New(cfg, nil)
	params := cfg.ContourParams()
	fmt.Printf("Detection parameters:\n")
	fmt.Printf("  Area: %.0f - %.0f px, epsilon %.2f\n", params.MinArea, params.MaxArea, params.EpsilonFactor)
	fmt.Printf("  Blur %d, Canny %.0f/%.0f, dilate %d\n", params.BlurSize, params.CannyLow, params.CannyHigh, params.DilateSize)
	fmt.Printf("  Expected %d markers, overlap %d, tolerance %d, max distance %d\n",
		cfg.Markers.Expected, cfg.Markers.OverlapThreshold, cfg.Markers.Tolerance, cfg.Markers.MaxDistance)

	runner, err := pipeline.NewRunner(cfg, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open outputs: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, nf := range frames {
		fmt.Printf("\n%s: %dx%d %s\n", nf.name, nf.frame.Width, nf.frame.Height, nf.frame.Format)
		res, err := runner.Handle(nf.name, nf.frame)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Detection failed: %v\n", err)
			failed++
			continue
		}

		fmt.Printf("%6s %6s %16s %s\n", "X", "Y", "Color", "Kind")
		for _, m := range res.All() {
			kind := "detected"
			if m.Synthetic {
				kind = "interpolated"
			}
			fmt.Printf("%6d %6d %16s %s\n", m.Center.X, m.Center.Y, m.Color, kind)
		}
		fmt.Printf("Total: %d markers (%d candidates, %d interpolated)\n",
			len(res.All()), res.Candidates, len(res.Missing))
	}

	if err := runner.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close outputs: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func collect(archivePath string, paths []string) ([]namedFrame, error) {
	var out []namedFrame
	if archivePath != "" {
		entries, err := archive.ReadFile(archivePath)
		if err != nil {
			return nil, err
		}
		names := archive.Names(len(entries), "frame", "")
		for i, e := range entries {
			name := e.Name
			if name == "" {
				name = names[i]
			}
			out = append(out, namedFrame{name: name, frame: e.Frame})
		}
	}
	for _, path := range paths {
		f, err := raster.LoadFrame(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		out = append(out, namedFrame{name: name, frame: f})
	}
	return out, nil
}
