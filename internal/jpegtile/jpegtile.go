// Package jpegtile adapts a whole-image JPEG decoder to the streaming tile
// protocol consumed by raster sinks.
package jpegtile

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"marker-locator/internal/raster"
)

// TileSize is the edge length of the blocks handed to the sink, matching
// the largest MCU of a 4:2:0 baseline stream.
const TileSize = 16

// Options controls a decode.
type Options struct {
	// Scale divides both output dimensions. Valid values are 1, 2, 4 and 8;
	// 0 means 1.
	Scale int
}

func (o Options) scale() (int, error) {
	switch o.Scale {
	case 0, 1:
		return 1, nil
	case 2, 4, 8:
		return o.Scale, nil
	default:
		return 0, fmt.Errorf("%w: jpeg scale %d", raster.ErrMalformedInput, o.Scale)
	}
}

// Decode decompresses data and delivers it to w as an extent event, a
// sequence of TileSize×TileSize blocks of R,G,B pixels in raster order,
// and an end event. The first error returned by w aborts the decode.
func Decode(data []byte, w raster.TileWriter, opts Options) error {
	scale, err := opts.scale()
	if err != nil {
		return err
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: failed to decode JPEG: %v", raster.ErrMalformedInput, err)
	}

	b := img.Bounds()
	width := b.Dx() / scale
	height := b.Dy() / scale
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: %dx%d image too small for scale 1/%d",
			raster.ErrMalformedInput, b.Dx(), b.Dy(), scale)
	}

	if err := raster.Dispatch(w, 0, 0, width, height, nil); err != nil {
		return err
	}

	tile := make([]byte, TileSize*TileSize*3)
	for ty := 0; ty < height; ty += TileSize {
		th := min(TileSize, height-ty)
		for tx := 0; tx < width; tx += TileSize {
			tw := min(TileSize, width-tx)
			fillTile(tile, img, b.Min, tx, ty, tw, th, scale)
			if err := raster.Dispatch(w, tx, ty, tw, th, tile[:tw*th*3]); err != nil {
				return err
			}
		}
	}

	return raster.Dispatch(w, width, height, 0, 0, nil)
}

// DecodeConfig returns the output dimensions Decode would report for data
// at the given scale, without decoding the scan.
func DecodeConfig(data []byte, opts Options) (width, height int, err error) {
	scale, err := opts.scale()
	if err != nil {
		return 0, 0, err
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: failed to read JPEG header: %v", raster.ErrMalformedInput, err)
	}
	return cfg.Width / scale, cfg.Height / scale, nil
}

// fillTile writes a tw×th block at output position (tx, ty). When scaling,
// each output pixel is the mean of its scale×scale source block.
func fillTile(dst []byte, img image.Image, origin image.Point, tx, ty, tw, th, scale int) {
	at := pixelReader(img)
	n := uint32(scale * scale)
	i := 0
	for y := ty; y < ty+th; y++ {
		for x := tx; x < tx+tw; x++ {
			var sr, sg, sb uint32
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					r, g, b := at(origin.X+x*scale+dx, origin.Y+y*scale+dy)
					sr += uint32(r)
					sg += uint32(g)
					sb += uint32(b)
				}
			}
			dst[i] = uint8(sr / n)
			dst[i+1] = uint8(sg / n)
			dst[i+2] = uint8(sb / n)
			i += 3
		}
	}
}

// pixelReader returns an 8-bit R,G,B accessor for img. The two types
// image/jpeg produces are read from their planes directly.
func pixelReader(img image.Image) func(x, y int) (r, g, b uint8) {
	switch m := img.(type) {
	case *image.YCbCr:
		return func(x, y int) (uint8, uint8, uint8) {
			yi := m.YOffset(x, y)
			ci := m.COffset(x, y)
			return color.YCbCrToRGB(m.Y[yi], m.Cb[ci], m.Cr[ci])
		}
	case *image.Gray:
		return func(x, y int) (uint8, uint8, uint8) {
			v := m.Pix[m.PixOffset(x, y)]
			return v, v, v
		}
	default:
		return func(x, y int) (uint8, uint8, uint8) {
			r, g, b, _ := img.At(x, y).RGBA()
			return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
		}
	}
}
