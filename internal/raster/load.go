package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// LoadFrame reads a frame from disk. JPEG files stay compressed so they go
// through the tile conversion path; other image files are decoded into
// gray or B,G,R frames.
func LoadFrame(path string) (Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read frame: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".jpg" || ext == ".jpeg" {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return Frame{}, fmt.Errorf("failed to read JPEG header: %w", err)
		}
		return Frame{Width: cfg.Width, Height: cfg.Height, Format: FormatJPEG, Data: data}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img), nil
}

// FromImage converts a decoded image into a frame. Gray images become
// Gray8 frames; everything else becomes an RGB888 frame in B,G,R order.
func FromImage(img image.Image) Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if gray, ok := img.(*image.Gray); ok {
		data := make([]byte, w*h)
		for y := 0; y < h; y++ {
			off := gray.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(data[y*w:(y+1)*w], gray.Pix[off:off+w])
		}
		return Frame{Width: w, Height: h, Format: FormatGray8, Data: data}
	}

	data := make([]byte, w*h*3)
	i := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			data[i] = uint8(b >> 8)
			data[i+1] = uint8(g >> 8)
			data[i+2] = uint8(r >> 8)
			i += 3
		}
	}
	return Frame{Width: w, Height: h, Format: FormatRGB888, Data: data}
}

// SupportedFormats returns the list of image file extensions LoadFrame
// understands.
func SupportedFormats() []string {
	return []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
