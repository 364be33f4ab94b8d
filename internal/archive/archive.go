// Package archive stores raw frames as zstd-compressed CBOR records in an
// append-only file.
package archive

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"marker-locator/internal/raster"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

const magic = "MLFRAME1"

// recordHeaderSize is the 8-byte capture time plus the 4-byte payload size.
const recordHeaderSize = 12

// Entry is one archived frame.
type Entry struct {
	Name       string       `cbor:"name"`
	CapturedAt time.Time    `cbor:"captured_at"`
	Frame      raster.Frame `cbor:"frame"`
}

// Writer appends frames to an archive file.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	enc *zstd.Encoder
	n   int
}

// Create truncates path and starts a new archive.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	enc, err := zstd.NewWriter(
		nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedDefault),
	)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	w := bufio.NewWriterSize(f, 1024*1024)
	if _, err := w.WriteString(magic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: w, enc: enc}, nil
}

// Add appends one frame.
func (a *Writer) Add(e Entry) error {
	payload, err := cbor.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.w == nil {
		return fmt.Errorf("archive writer is closed")
	}

	packed := a.enc.EncodeAll(payload, nil)
	var header [recordHeaderSize]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(e.CapturedAt.UnixNano()))
	binary.LittleEndian.PutUint32(header[8:], uint32(len(packed)))
	if _, err := a.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := a.w.Write(packed); err != nil {
		return err
	}
	a.n++
	return a.w.Flush()
}

// Count returns the number of frames added so far.
func (a *Writer) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}

// Close flushes and closes the archive.
func (a *Writer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.w == nil {
		return nil
	}
	_ = a.enc.Close()
	if err := a.w.Flush(); err != nil {
		_ = a.f.Close()
		a.w = nil
		return err
	}
	err := a.f.Close()
	a.w = nil
	return err
}

// Reader iterates over the frames of an archive.
type Reader struct {
	r   *bufio.Reader
	dec *zstd.Decoder
}

// NewReader checks the archive magic and prepares to read records.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(br, head); err != nil {
		return nil, fmt.Errorf("%w: failed to read archive magic: %v", raster.ErrMalformedInput, err)
	}
	if string(head) != magic {
		return nil, fmt.Errorf("%w: unexpected archive magic %q", raster.ErrMalformedInput, head)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Reader{r: br, dec: dec}, nil
}

// Next returns the next frame, or io.EOF after the last one.
func (a *Reader) Next() (Entry, error) {
	var header [recordHeaderSize]byte
	if _, err := io.ReadFull(a.r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Entry{}, io.EOF
		}
		return Entry{}, fmt.Errorf("%w: truncated record header", raster.ErrMalformedInput)
	}
	size := binary.LittleEndian.Uint32(header[8:])
	packed := make([]byte, size)
	if _, err := io.ReadFull(a.r, packed); err != nil {
		return Entry{}, fmt.Errorf("%w: truncated record payload", raster.ErrMalformedInput)
	}

	payload, err := a.dec.DecodeAll(packed, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: failed to decompress record: %v", raster.ErrMalformedInput, err)
	}
	var e Entry
	if err := cbor.Unmarshal(payload, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: failed to decode record: %v", raster.ErrMalformedInput, err)
	}
	return e, nil
}

// Close releases the decoder.
func (a *Reader) Close() {
	a.dec.Close()
}

// ReadFile loads every frame from an archive file.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	r, err := NewReader(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []Entry
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}
