package raster

import (
	"encoding/binary"
	"fmt"

	"marker-locator/pkg/colorutil"
)

const maxInt = int(^uint(0) >> 1)

// DefaultMemoryLimit caps a sink allocation at the size of the device's
// external frame memory.
const DefaultMemoryLimit = 8 << 20

// TileWriter is the sink half of a streaming tile decoder. Extent is
// called once with the frame size before any tile; Tile delivers a w×h
// block of 3-byte pixels located at (x, y). Implementations must not keep
// data after Tile returns.
type TileWriter interface {
	Extent(width, height int) error
	Tile(x, y, w, h int, data []byte) error
}

// Dispatch routes one decoder callback onto a TileWriter. A nil data
// block at the origin is the extent event; a nil block anywhere else marks
// the end of the frame and has no effect.
func Dispatch(s TileWriter, x, y, w, h int, data []byte) error {
	if data == nil {
		if x == 0 && y == 0 {
			return s.Extent(w, h)
		}
		return nil
	}
	return s.Tile(x, y, w, h, data)
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithHeaderReserve leaves n bytes in front of the pixel data so a
// container header can be written into the same allocation.
func WithHeaderReserve(n int) SinkOption {
	return func(s *Sink) { s.reserve = n }
}

// WithMemoryLimit caps the allocation made on the extent event.
// A limit of 0 disables the check.
func WithMemoryLimit(n int) SinkOption {
	return func(s *Sink) { s.limit = n }
}

// WithBuffer supplies the destination instead of allocating one. It must
// hold at least width*height*bpp plus the header reserve.
func WithBuffer(dst []byte) SinkOption {
	return func(s *Sink) {
		s.out = dst
		s.supplied = dst != nil
	}
}

// Sink converts decoded tiles into a flat raster. The 888 variant swaps
// the first and third channel; the 565 variant packs each pixel into two
// bytes stored low byte first.
type Sink struct {
	format  PixelFormat
	reserve int
	limit   int

	width    int
	height   int
	out      []byte
	supplied bool
	err      error
}

// NewSink888 returns a sink producing 3-byte C,B,A pixels.
func NewSink888(opts ...SinkOption) *Sink {
	return newSink(FormatRGB888, opts)
}

// NewSink565 returns a sink producing packed 16-bit pixels.
func NewSink565(opts ...SinkOption) *Sink {
	return newSink(FormatRGB565, opts)
}

func newSink(format PixelFormat, opts []SinkOption) *Sink {
	s := &Sink{format: format, limit: DefaultMemoryLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Format returns the pixel format the sink writes.
func (s *Sink) Format() PixelFormat {
	return s.format
}

// Size returns the frame size recorded by the last extent event.
func (s *Sink) Size() (width, height int) {
	return s.width, s.height
}

// Err returns the error that aborted the conversion, if any.
func (s *Sink) Err() error {
	return s.err
}

// Extent records the frame size and allocates the destination if the
// caller did not supply one.
func (s *Sink) Extent(width, height int) error {
	if s.err != nil {
		return s.err
	}
	s.width = width
	s.height = height
	if width <= 0 || height <= 0 {
		return s.fail(fmt.Errorf("%w: invalid frame size %dx%d", ErrAllocation, width, height))
	}

	bpp := s.format.BytesPerPixel()
	if width > (maxInt-s.reserve)/bpp/height {
		return s.fail(fmt.Errorf("%w: %dx%d frame is too large", ErrAllocation, width, height))
	}
	need := width*height*bpp + s.reserve
	if s.supplied {
		if len(s.out) < need {
			return s.fail(fmt.Errorf("%w: supplied buffer has %d bytes, need %d", ErrAllocation, len(s.out), need))
		}
		return nil
	}
	if s.limit > 0 && need > s.limit {
		return s.fail(fmt.Errorf("%w: %dx%d frame needs %d bytes, limit %d", ErrAllocation, width, height, need, s.limit))
	}
	s.out = make([]byte, need)
	return nil
}

// Tile converts one block of decoded pixels into the destination.
func (s *Sink) Tile(x, y, w, h int, data []byte) error {
	if s.err != nil {
		return s.err
	}
	if s.out == nil {
		return s.fail(fmt.Errorf("%w: tile before extent", ErrAllocation))
	}
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > s.width || y+h > s.height {
		return fmt.Errorf("%w: tile %dx%d at (%d,%d) outside %dx%d frame",
			ErrMalformedInput, w, h, x, y, s.width, s.height)
	}
	if len(data) < w*h*3 {
		return fmt.Errorf("%w: tile %dx%d has %d bytes", ErrMalformedInput, w, h, len(data))
	}

	bpp := s.format.BytesPerPixel()
	stride := s.width * bpp
	pix := s.out[s.reserve:]
	for row := 0; row < h; row++ {
		src := data[row*w*3 : (row+1)*w*3]
		start := (y+row)*stride + x*bpp
		dst := pix[start : start+w*bpp]
		if s.format == FormatRGB565 {
			for i := 0; i < w; i++ {
				c := colorutil.Pack565(src[i*3], src[i*3+1], src[i*3+2])
				binary.LittleEndian.PutUint16(dst[i*2:], c)
			}
			continue
		}
		for i := 0; i < w*3; i += 3 {
			dst[i] = src[i+2]
			dst[i+1] = src[i+1]
			dst[i+2] = src[i]
		}
	}
	return nil
}

// Raster hands the converted pixel plane to the caller. The sink keeps no
// reference afterwards.
func (s *Sink) Raster() (Buffer, error) {
	full, err := s.Take()
	if err != nil {
		return Buffer{}, err
	}
	return Buffer{Width: s.width, Height: s.height, Format: s.format, Pix: full[s.reserve:]}, nil
}

// Take hands the whole allocation, header reserve included, to the caller.
func (s *Sink) Take() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.out == nil {
		return nil, fmt.Errorf("%w: no frame decoded", ErrAllocation)
	}
	need := s.width*s.height*s.format.BytesPerPixel() + s.reserve
	full := s.out[:need]
	s.out = nil
	s.supplied = false
	return full, nil
}

// Release drops any partial allocation.
func (s *Sink) Release() {
	s.out = nil
	s.supplied = false
}

func (s *Sink) fail(err error) error {
	s.err = err
	s.out = nil
	s.supplied = false
	return err
}
