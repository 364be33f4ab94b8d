// Package bmp writes raster buffers as uncompressed, top-down Windows
// bitmap files.
package bmp

import (
	"encoding/binary"
	"fmt"

	"marker-locator/internal/raster"
	"marker-locator/pkg/colorutil"
)

const (
	// HeaderSize is the file header plus the 40-byte info header.
	HeaderSize = 54

	infoHeaderSize = 40
	paletteSize    = 256 * 4
	maskTableSize  = 3 * 4

	// 2835 pixels per metre, about 72 DPI.
	resolution = 0x0B13

	compressionRGB       = 0
	compressionBitFields = 3
)

// Header holds the fields of a bitmap file and info header.
type Header struct {
	FileSize        uint32
	PixelOffset     uint32
	Width           int32
	Height          int32 // negative for top-down rows
	Planes          uint16
	BitCount        uint16
	Compression     uint32
	ImageSize       uint32
	XPelsPerMeter   int32
	YPelsPerMeter   int32
	ColorsUsed      uint32
	ColorsImportant uint32

	// Masks are the channel bit masks of a 16 bpp bit-field bitmap.
	Masks [3]uint32
}

// colorTableSize returns the number of bytes between the info header and
// the pixel plane for a raster of bpp bytes per pixel.
func colorTableSize(bpp int) int {
	switch bpp {
	case 1:
		return paletteSize
	case 2:
		return maskTableSize
	default:
		return 0
	}
}

// headerFor builds the header of a top-down bitmap of the given size.
func headerFor(width, height, bpp int) Header {
	table := colorTableSize(bpp)
	plane := width * height * bpp
	h := Header{
		FileSize:      uint32(HeaderSize + table + plane),
		PixelOffset:   uint32(HeaderSize + table),
		Width:         int32(width),
		Height:        -int32(height),
		Planes:        1,
		BitCount:      uint16(bpp * 8),
		Compression:   compressionRGB,
		ImageSize:     uint32(plane),
		XPelsPerMeter: resolution,
		YPelsPerMeter: resolution,
	}
	if bpp == 2 {
		h.Compression = compressionBitFields
		h.Masks = [3]uint32{colorutil.Mask565First, colorutil.Mask565Second, colorutil.Mask565Third}
	}
	return h
}

// put serializes the header into dst, which must hold at least HeaderSize
// bytes. Bit-field masks are written only when Compression says so.
func (h Header) put(dst []byte) {
	le := binary.LittleEndian
	dst[0] = 'B'
	dst[1] = 'M'
	le.PutUint32(dst[2:], h.FileSize)
	le.PutUint32(dst[6:], 0)
	le.PutUint32(dst[10:], h.PixelOffset)

	le.PutUint32(dst[14:], infoHeaderSize)
	le.PutUint32(dst[18:], uint32(h.Width))
	le.PutUint32(dst[22:], uint32(h.Height))
	le.PutUint16(dst[26:], h.Planes)
	le.PutUint16(dst[28:], h.BitCount)
	le.PutUint32(dst[30:], h.Compression)
	le.PutUint32(dst[34:], h.ImageSize)
	le.PutUint32(dst[38:], uint32(h.XPelsPerMeter))
	le.PutUint32(dst[42:], uint32(h.YPelsPerMeter))
	le.PutUint32(dst[46:], h.ColorsUsed)
	le.PutUint32(dst[50:], h.ColorsImportant)

	if h.Compression == compressionBitFields {
		for i, m := range h.Masks {
			le.PutUint32(dst[HeaderSize+i*4:], m)
		}
	}
}

// TopDown reports whether rows are stored first row first.
func (h Header) TopDown() bool {
	return h.Height < 0
}

// Dimensions returns the image width and the absolute row count.
func (h Header) Dimensions() (int, int) {
	height := int(h.Height)
	if height < 0 {
		height = -height
	}
	return int(h.Width), height
}

// DecodeHeader parses the fixed headers at the start of a bitmap file.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: bitmap shorter than %d bytes", raster.ErrMalformedInput, HeaderSize)
	}
	if data[0] != 'B' || data[1] != 'M' {
		return Header{}, fmt.Errorf("%w: missing BM magic", raster.ErrMalformedInput)
	}
	le := binary.LittleEndian
	if size := le.Uint32(data[14:]); size != infoHeaderSize {
		return Header{}, fmt.Errorf("%w: info header size %d", raster.ErrUnsupportedFormat, size)
	}

	h := Header{
		FileSize:        le.Uint32(data[2:]),
		PixelOffset:     le.Uint32(data[10:]),
		Width:           int32(le.Uint32(data[18:])),
		Height:          int32(le.Uint32(data[22:])),
		Planes:          le.Uint16(data[26:]),
		BitCount:        le.Uint16(data[28:]),
		Compression:     le.Uint32(data[30:]),
		ImageSize:       le.Uint32(data[34:]),
		XPelsPerMeter:   int32(le.Uint32(data[38:])),
		YPelsPerMeter:   int32(le.Uint32(data[42:])),
		ColorsUsed:      le.Uint32(data[46:]),
		ColorsImportant: le.Uint32(data[50:]),
	}
	if h.Compression == compressionBitFields {
		if len(data) < HeaderSize+maskTableSize {
			return Header{}, fmt.Errorf("%w: truncated bit-field masks", raster.ErrMalformedInput)
		}
		for i := range h.Masks {
			h.Masks[i] = le.Uint32(data[HeaderSize+i*4:])
		}
	}
	return h, nil
}
