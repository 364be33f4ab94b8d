// Package raster provides frame and raster buffer types and the tile sink
// that converts decoder output into a flat raster.
package raster

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared by the conversion and encoding stages.
var (
	ErrAllocation        = errors.New("destination buffer could not be allocated")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	ErrMalformedInput    = errors.New("malformed input")
)

// PixelFormat identifies how a frame's bytes encode pixels.
type PixelFormat int

const (
	FormatUnknown PixelFormat = iota
	FormatGray8               // 1 byte per pixel
	FormatRGB565              // 2 bytes per pixel, 5-6-5 packed
	FormatRGB888              // 3 bytes per pixel, stored B,G,R
	FormatJPEG                // compressed
	FormatYUV422              // 2 bytes per pixel, chroma subsampled
)

func (f PixelFormat) String() string {
	switch f {
	case FormatGray8:
		return "GRAYSCALE"
	case FormatRGB565:
		return "RGB565"
	case FormatRGB888:
		return "RGB888"
	case FormatJPEG:
		return "JPEG"
	case FormatYUV422:
		return "YUV422"
	default:
		return "UNKNOWN"
	}
}

// BytesPerPixel returns the raster width of one pixel, or 0 for formats
// that have no flat raster representation.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case FormatGray8:
		return 1
	case FormatRGB565:
		return 2
	case FormatRGB888:
		return 3
	default:
		return 0
	}
}

// ParseFormat parses a format name as printed by String. Matching is case
// insensitive and accepts a few common aliases.
func ParseFormat(s string) (PixelFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gray", "grey", "gray8", "grayscale", "greyscale":
		return FormatGray8, nil
	case "rgb565", "565":
		return FormatRGB565, nil
	case "rgb888", "bgr888", "888", "rgb":
		return FormatRGB888, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "yuv422", "yuyv":
		return FormatYUV422, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}
