package bmp

import (
	"fmt"

	"marker-locator/internal/jpegtile"
	"marker-locator/internal/raster"
)

// Encode produces a complete bitmap file for buf. Gray rasters get a
// 256-entry ramp palette, 565 rasters a bit-field mask table, and 888
// rasters no color table. The pixel plane is copied verbatim.
func Encode(buf raster.Buffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("failed to encode bitmap: %w", err)
	}

	bpp := buf.BPP()
	h := headerFor(buf.Width, buf.Height, bpp)
	out := make([]byte, h.FileSize)
	h.put(out)
	if bpp == 1 {
		writePalette(out[HeaderSize:])
	}
	copy(out[h.PixelOffset:], buf.Pix)
	return out, nil
}

// EncodeFrame produces a bitmap file for a captured frame. Gray and 888
// frames are copied verbatim, sensor-order 565 frames are expanded to 24
// bpp, and JPEG frames are decoded straight into the pixel area of the
// output. Other formats return ErrUnsupportedFormat and no data.
func EncodeFrame(f raster.Frame) ([]byte, error) {
	switch f.Format {
	case raster.FormatGray8, raster.FormatRGB888:
		buf, err := f.Raster()
		if err != nil {
			return nil, fmt.Errorf("failed to encode bitmap: %w", err)
		}
		return Encode(buf)

	case raster.FormatRGB565:
		src, err := f.Raster()
		if err != nil {
			return nil, fmt.Errorf("failed to encode bitmap: %w", err)
		}
		h := headerFor(f.Width, f.Height, 3)
		out := make([]byte, h.FileSize)
		h.put(out)
		raster.ExpandSensor565(out[HeaderSize:], src.Pix, f.Width*f.Height)
		return out, nil

	case raster.FormatJPEG:
		return EncodeJPEG(f.Data, raster.DefaultMemoryLimit)

	default:
		return nil, fmt.Errorf("failed to encode bitmap: %w: %s", raster.ErrUnsupportedFormat, f.Format)
	}
}

// EncodeJPEG decodes into an 888 sink that reserves room for the header,
// then writes the header in front of the pixels. limit caps the sink
// allocation; 0 disables the cap.
func EncodeJPEG(data []byte, limit int) ([]byte, error) {
	sink := raster.NewSink888(
		raster.WithHeaderReserve(HeaderSize),
		raster.WithMemoryLimit(limit),
	)
	if err := jpegtile.Decode(data, sink, jpegtile.Options{}); err != nil {
		sink.Release()
		return nil, fmt.Errorf("failed to encode bitmap: %w", err)
	}
	buf, err := sink.Take()
	if err != nil {
		return nil, fmt.Errorf("failed to encode bitmap: %w", err)
	}

	w, hgt := sink.Size()
	h := headerFor(w, hgt, 3)
	h.put(buf)
	return buf, nil
}

func writePalette(dst []byte) {
	for i := 0; i < 256; i++ {
		v := byte(i)
		dst[i*4] = v
		dst[i*4+1] = v
		dst[i*4+2] = v
		dst[i*4+3] = 0
	}
}
