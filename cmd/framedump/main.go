// Command framedump lists the frames stored in an archive and can extract
// them as bitmap files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"marker-locator/internal/archive"
	"marker-locator/internal/bmp"
)

func main() {
	path := flag.String("archive", "", "Path to the frame archive")
	extract := flag.String("extract", "", "Directory to write each frame as a bitmap")
	limit := flag.Int("limit", 0, "Stop after this many frames (0 for all)")
	flag.Parse()

	if *path == "" {
		fmt.Println("Usage: framedump -archive frames.arc [-extract dir] [-limit n]")
		os.Exit(1)
	}

	entries, err := archive.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read archive: %v\n", err)
		os.Exit(1)
	}
	if *limit > 0 && len(entries) > *limit {
		entries = entries[:*limit]
	}

	if *extract != "" {
		if err := os.MkdirAll(*extract, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output dir: %v\n", err)
			os.Exit(1)
		}
	}
	names := archive.Names(len(entries), "frame", ".bmp")

	fmt.Printf("%-4s %-20s %-25s %10s %-10s %10s\n", "#", "Name", "Captured", "Size", "Format", "Bytes")
	for i, e := range entries {
		f := e.Frame
		fmt.Printf("%-4d %-20s %-25s %10s %-10s %10d\n",
			i, e.Name, e.CapturedAt.Format("2006-01-02 15:04:05.000"),
			fmt.Sprintf("%dx%d", f.Width, f.Height), f.Format, f.Len())

		if *extract == "" {
			continue
		}
		data, err := bmp.EncodeFrame(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  skipping: %v\n", err)
			continue
		}
		name := names[i]
		if e.Name != "" {
			name = e.Name + ".bmp"
		}
		if err := os.WriteFile(filepath.Join(*extract, name), data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write bitmap: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("\nTotal: %d frames\n", len(entries))
}
