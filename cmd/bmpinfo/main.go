// Command bmpinfo prints the header fields of bitmap files.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	bmphdr "marker-locator/internal/bmp"

	"golang.org/x/image/bmp"
)

func main() {
	verify := flag.Bool("verify", false, "Also decode the pixels with a reference reader (8 and 24 bpp)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Println("Usage: bmpinfo [-verify] <file.bmp...>")
		os.Exit(1)
	}

	failed := false
	for _, path := range flag.Args() {
		if err := describe(path, *verify); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func describe(path string, verify bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	h, err := bmphdr.DecodeHeader(data)
	if err != nil {
		return err
	}

	w, ht := h.Dimensions()
	order := "bottom-up"
	if h.TopDown() {
		order = "top-down"
	}
	fmt.Printf("%s:\n", path)
	fmt.Printf("  Size:        %dx%d, %d bpp, %s\n", w, ht, h.BitCount, order)
	fmt.Printf("  File size:   %d (actual %d)\n", h.FileSize, len(data))
	fmt.Printf("  Pixel data:  offset %d, %d bytes\n", h.PixelOffset, h.ImageSize)
	fmt.Printf("  Compression: %d\n", h.Compression)
	fmt.Printf("  Resolution:  %dx%d px/m\n", h.XPelsPerMeter, h.YPelsPerMeter)
	if h.Compression == 3 {
		fmt.Printf("  Masks:       %#06x %#06x %#06x\n", h.Masks[0], h.Masks[1], h.Masks[2])
	}
	if int(h.FileSize) != len(data) {
		fmt.Printf("  WARNING: header file size does not match\n")
	}

	if verify && h.BitCount != 16 {
		img, err := bmp.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("reference decode failed: %w", err)
		}
		fmt.Printf("  Verified:    %v\n", img.Bounds())
	}
	return nil
}
