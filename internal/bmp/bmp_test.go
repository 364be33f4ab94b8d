package bmp

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"marker-locator/internal/jpegtile"
	"marker-locator/internal/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xbmp "golang.org/x/image/bmp"
)

func TestEncode888Header(t *testing.T) {
	buf := raster.Buffer{Width: 2, Height: 2, Format: raster.FormatRGB888, Pix: []byte{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}}
	out, err := Encode(buf)
	require.NoError(t, err)

	golden := []byte{
		'B', 'M',
		66, 0, 0, 0, // file size
		0, 0, 0, 0,
		54, 0, 0, 0, // pixel offset
		40, 0, 0, 0,
		2, 0, 0, 0, // width
		0xFE, 0xFF, 0xFF, 0xFF, // -2
		1, 0,
		24, 0,
		0, 0, 0, 0,
		12, 0, 0, 0,
		0x13, 0x0B, 0, 0,
		0x13, 0x0B, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}
	require.Len(t, out, 66)
	assert.Equal(t, golden, out[:HeaderSize])
	assert.Equal(t, buf.Pix, out[HeaderSize:])
}

func TestEncodeGrayPalette(t *testing.T) {
	buf := raster.Buffer{Width: 3, Height: 1, Format: raster.FormatGray8, Pix: []byte{0, 128, 255}}
	out, err := Encode(buf)
	require.NoError(t, err)
	require.Len(t, out, 1078+3)

	h, err := DecodeHeader(out)
	require.NoError(t, err)
	assert.Equal(t, uint32(1081), h.FileSize)
	assert.Equal(t, uint32(1078), h.PixelOffset)
	assert.Equal(t, uint16(8), h.BitCount)
	assert.Equal(t, uint32(compressionRGB), h.Compression)

	for i := 0; i < 256; i++ {
		v := byte(i)
		assert.Equal(t, []byte{v, v, v, 0}, out[HeaderSize+i*4:HeaderSize+i*4+4])
	}
	assert.Equal(t, []byte{0, 128, 255}, out[1078:])
}

func TestEncode565Masks(t *testing.T) {
	buf := raster.Buffer{Width: 2, Height: 3, Format: raster.FormatRGB565, Pix: make([]byte, 12)}
	out, err := Encode(buf)
	require.NoError(t, err)
	require.Len(t, out, 66+12)

	assert.Equal(t, uint32(78), binary.LittleEndian.Uint32(out[2:]))
	assert.Equal(t, uint32(66), binary.LittleEndian.Uint32(out[10:]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(out[28:]))
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(out[30:]))
	assert.Equal(t, uint32(12), binary.LittleEndian.Uint32(out[34:]))
	assert.Equal(t, []byte{
		0x00, 0xF8, 0x00, 0x00,
		0xE0, 0x07, 0x00, 0x00,
		0x1F, 0x00, 0x00, 0x00,
	}, out[54:66])

	h, err := DecodeHeader(out)
	require.NoError(t, err)
	assert.Equal(t, [3]uint32{0xF800, 0x07E0, 0x001F}, h.Masks)
	w, hh := h.Dimensions()
	assert.Equal(t, 2, w)
	assert.Equal(t, 3, hh)
	assert.True(t, h.TopDown())
}

func TestEncodeRejectsBadBuffers(t *testing.T) {
	for _, tc := range []struct {
		name string
		buf  raster.Buffer
	}{
		{"short", raster.Buffer{Width: 2, Height: 2, Format: raster.FormatRGB888, Pix: make([]byte, 11)}},
		{"long", raster.Buffer{Width: 2, Height: 2, Format: raster.FormatRGB888, Pix: make([]byte, 13)}},
		{"yuv", raster.Buffer{Width: 2, Height: 2, Format: raster.FormatYUV422, Pix: make([]byte, 8)}},
		{"empty", raster.Buffer{Format: raster.FormatGray8}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Encode(tc.buf)
			assert.Error(t, err)
			assert.Nil(t, out)
		})
	}
}

// Rows are written without padding, so the standard reader only accepts
// rasters whose row length is a multiple of four bytes.
func TestDecodableByStandardReader(t *testing.T) {
	t.Run("24bit", func(t *testing.T) {
		// B,G,R pixels: red, blue, black, white on a top-down 4x1 raster.
		buf := raster.Buffer{Width: 4, Height: 1, Format: raster.FormatRGB888, Pix: []byte{
			0, 0, 255, 255, 0, 0, 0, 0, 0, 255, 255, 255,
		}}
		out, err := Encode(buf)
		require.NoError(t, err)

		img, err := xbmp.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 4, 1), img.Bounds())
		r, g, b, _ := img.At(0, 0).RGBA()
		assert.Equal(t, []uint32{0xFFFF, 0, 0}, []uint32{r, g, b})
		r, g, b, _ = img.At(1, 0).RGBA()
		assert.Equal(t, []uint32{0, 0, 0xFFFF}, []uint32{r, g, b})
		r, g, b, _ = img.At(3, 0).RGBA()
		assert.Equal(t, []uint32{0xFFFF, 0xFFFF, 0xFFFF}, []uint32{r, g, b})
	})

	t.Run("8bit", func(t *testing.T) {
		buf := raster.Buffer{Width: 4, Height: 2, Format: raster.FormatGray8, Pix: []byte{10, 20, 30, 40, 50, 60, 70, 80}}
		out, err := Encode(buf)
		require.NoError(t, err)

		img, err := xbmp.Decode(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 4, 2), img.Bounds())
		got := color.GrayModel.Convert(img.At(0, 0)).(color.Gray)
		assert.Equal(t, uint8(10), got.Y)
		got = color.GrayModel.Convert(img.At(3, 1)).(color.Gray)
		assert.Equal(t, uint8(80), got.Y)
	})

	t.Run("unaligned_rows_not_padded", func(t *testing.T) {
		buf := raster.Buffer{Width: 2, Height: 1, Format: raster.FormatRGB888, Pix: []byte{1, 2, 3, 4, 5, 6}}
		out, err := Encode(buf)
		require.NoError(t, err)
		assert.Len(t, out, HeaderSize+6)

		_, err = xbmp.Decode(bytes.NewReader(out))
		assert.Error(t, err)
	})
}

func TestEncodeFrame(t *testing.T) {
	t.Run("rgb888_verbatim", func(t *testing.T) {
		f := raster.Frame{Width: 1, Height: 2, Format: raster.FormatRGB888, Data: []byte{1, 2, 3, 4, 5, 6}}
		out, err := EncodeFrame(f)
		require.NoError(t, err)
		assert.Equal(t, f.Data, out[HeaderSize:])
	})

	t.Run("rgb565_expanded", func(t *testing.T) {
		f := raster.Frame{Width: 2, Height: 1, Format: raster.FormatRGB565, Data: []byte{0xF8, 0x00, 0x07, 0xE0}}
		out, err := EncodeFrame(f)
		require.NoError(t, err)
		require.Len(t, out, HeaderSize+6)

		h, err := DecodeHeader(out)
		require.NoError(t, err)
		assert.Equal(t, uint16(24), h.BitCount)
		assert.Equal(t, []byte{0, 0, 0xF8, 0, 0xFC, 0}, out[HeaderSize:])
	})

	t.Run("unsupported", func(t *testing.T) {
		out, err := EncodeFrame(raster.Frame{Width: 2, Height: 1, Format: raster.FormatYUV422, Data: make([]byte, 4)})
		assert.ErrorIs(t, err, raster.ErrUnsupportedFormat)
		assert.Nil(t, out)
	})
}

func TestEncodeFrameJPEGMatchesSinkPath(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 21, 13))
	for y := 0; y < 13; y++ {
		for x := 0; x < 21; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 12), G: uint8(y * 19), B: 77, A: 255})
		}
	}
	var enc bytes.Buffer
	require.NoError(t, jpeg.Encode(&enc, img, &jpeg.Options{Quality: 90}))
	f := raster.Frame{Width: 21, Height: 13, Format: raster.FormatJPEG, Data: enc.Bytes()}

	spliced, err := EncodeFrame(f)
	require.NoError(t, err)

	sink := raster.NewSink888()
	require.NoError(t, jpegtile.Decode(f.Data, sink, jpegtile.Options{}))
	buf, err := sink.Raster()
	require.NoError(t, err)
	separate, err := Encode(buf)
	require.NoError(t, err)

	assert.Equal(t, separate, spliced)
	assert.Len(t, spliced, HeaderSize+21*13*3)
}

func TestEncodeJPEGOverLimit(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	var enc bytes.Buffer
	require.NoError(t, jpeg.Encode(&enc, img, nil))

	out, err := EncodeJPEG(enc.Bytes(), 1024)
	assert.ErrorIs(t, err, raster.ErrAllocation)
	assert.Nil(t, out)
}

func TestDecodeHeaderErrors(t *testing.T) {
	_, err := DecodeHeader(make([]byte, 10))
	assert.ErrorIs(t, err, raster.ErrMalformedInput)

	bad := make([]byte, HeaderSize)
	bad[0], bad[1] = 'P', 'K'
	_, err = DecodeHeader(bad)
	assert.ErrorIs(t, err, raster.ErrMalformedInput)

	out, err := Encode(raster.Buffer{Width: 1, Height: 1, Format: raster.FormatRGB565, Pix: []byte{0, 0}})
	require.NoError(t, err)
	_, err = DecodeHeader(out[:60])
	assert.ErrorIs(t, err, raster.ErrMalformedInput)
}
