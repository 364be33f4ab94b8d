package raster

import (
	"encoding/binary"
	"fmt"

	"marker-locator/pkg/colorutil"
	"marker-locator/pkg/geometry"
)

// Frame is a captured image as delivered by the acquisition stage.
// RGB565 frames are in sensor byte order (high byte first).
type Frame struct {
	Width  int         `cbor:"width"`
	Height int         `cbor:"height"`
	Format PixelFormat `cbor:"format"`
	Data   []byte      `cbor:"data"`
}

// Len returns the number of bytes in the frame buffer.
func (f Frame) Len() int {
	return len(f.Data)
}

// Raster aliases an uncompressed frame as a raster buffer without copying.
// The frame must outlive the returned buffer and must not be modified
// while the buffer is in use.
func (f Frame) Raster() (Buffer, error) {
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 || f.Format == FormatYUV422 {
		return Buffer{}, fmt.Errorf("%w: %s frame has no raster form", ErrUnsupportedFormat, f.Format)
	}
	need := f.Width * f.Height * bpp
	if f.Width <= 0 || f.Height <= 0 || len(f.Data) < need {
		return Buffer{}, fmt.Errorf("%w: %dx%d %s frame has %d bytes, need %d",
			ErrMalformedInput, f.Width, f.Height, f.Format, len(f.Data), need)
	}
	return Buffer{Width: f.Width, Height: f.Height, Format: f.Format, Pix: f.Data[:need]}, nil
}

// Buffer is an uncompressed, row-major raster with no row padding.
type Buffer struct {
	Width  int
	Height int
	Format PixelFormat
	Pix    []byte
}

// BPP returns the bytes per pixel of the buffer's format.
func (b Buffer) BPP() int {
	return b.Format.BytesPerPixel()
}

// Stride returns the number of bytes in one row.
func (b Buffer) Stride() int {
	return b.Width * b.BPP()
}

// Bounds returns the pixel rectangle covered by the buffer.
func (b Buffer) Bounds() geometry.RectInt {
	return geometry.RectInt{Width: b.Width, Height: b.Height}
}

// Offset returns the index of the first byte of pixel (x, y).
func (b Buffer) Offset(x, y int) int {
	return y*b.Stride() + x*b.BPP()
}

// Validate checks that the buffer is one of the flat raster formats and
// that its length matches its dimensions exactly.
func (b Buffer) Validate() error {
	bpp := b.BPP()
	if bpp == 0 || b.Format == FormatYUV422 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, b.Format)
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: raster size %dx%d", ErrMalformedInput, b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height*bpp {
		return fmt.Errorf("%w: raster %dx%dx%d has %d bytes",
			ErrMalformedInput, b.Width, b.Height, bpp, len(b.Pix))
	}
	return nil
}

// At returns the channel triple stored at (x, y). Gray pixels repeat the
// gray value; 565 pixels are read low byte first and unpacked.
func (b Buffer) At(x, y int) colorutil.Triple {
	i := b.Offset(x, y)
	switch b.BPP() {
	case 1:
		v := b.Pix[i]
		return colorutil.Triple{v, v, v}
	case 2:
		c0, c1, c2 := colorutil.Unpack565(binary.LittleEndian.Uint16(b.Pix[i:]))
		return colorutil.Triple{c0, c1, c2}
	default:
		return colorutil.Triple{b.Pix[i], b.Pix[i+1], b.Pix[i+2]}
	}
}

// ExpandSensor565 converts the first pixels sensor-order 565 values of src into
// 3-byte pixels in dst. Channels come out in reverse packing order, so a
// sensor R,G,B frame becomes B,G,R.
func ExpandSensor565(dst, src []byte, pixels int) {
	for i := 0; i < pixels; i++ {
		a, b, c := colorutil.Unpack565(binary.BigEndian.Uint16(src[i*2:]))
		o := dst[i*3 : i*3+3]
		o[0] = c
		o[1] = b
		o[2] = a
	}
}

// Normalize returns a 3-byte-per-pixel or gray raster for an uncompressed
// frame. RGB888 and gray frames are aliased; RGB565 frames are expanded
// into a new buffer. Compressed frames must go through a Sink instead.
func Normalize(f Frame) (Buffer, error) {
	switch f.Format {
	case FormatGray8, FormatRGB888:
		return f.Raster()
	case FormatRGB565:
		src, err := f.Raster()
		if err != nil {
			return Buffer{}, err
		}
		out := Buffer{Width: f.Width, Height: f.Height, Format: FormatRGB888}
		out.Pix = make([]byte, f.Width*f.Height*3)
		ExpandSensor565(out.Pix, src.Pix, f.Width*f.Height)
		return out, nil
	default:
		return Buffer{}, fmt.Errorf("%w: cannot normalize %s frame", ErrUnsupportedFormat, f.Format)
	}
}

// To888 returns b as a 3-byte-per-pixel raster. 888 and gray buffers are
// returned unchanged; 565 buffers (low byte first) are unpacked into a new
// buffer with the same channel order.
func (b Buffer) To888() (Buffer, error) {
	if err := b.Validate(); err != nil {
		return Buffer{}, err
	}
	if b.BPP() != 2 {
		return b, nil
	}
	out := Buffer{Width: b.Width, Height: b.Height, Format: FormatRGB888}
	out.Pix = make([]byte, b.Width*b.Height*3)
	for i := 0; i < b.Width*b.Height; i++ {
		c0, c1, c2 := colorutil.Unpack565(binary.LittleEndian.Uint16(b.Pix[i*2:]))
		out.Pix[i*3] = c0
		out.Pix[i*3+1] = c1
		out.Pix[i*3+2] = c2
	}
	return out, nil
}
