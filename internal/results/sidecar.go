package results

import (
	"errors"
	"fmt"
	"io"
	"time"

	"marker-locator/internal/marker"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// FrameReport is the structured result of one processed frame.
type FrameReport struct {
	RunID       string              `cbor:"run_id"`
	Frame       int                 `cbor:"frame"`
	Source      string              `cbor:"source,omitempty"`
	Width       int                 `cbor:"width"`
	Height      int                 `cbor:"height"`
	Candidates  int                 `cbor:"candidates"`
	Markers     []marker.Marker     `cbor:"markers"`
	Missing     int                 `cbor:"missing"`
	Spacing     marker.SpacingStats `cbor:"spacing"`
	ProcessedAt time.Time           `cbor:"processed_at"`
}

// NewRunID returns a fresh identifier for a processing run.
func NewRunID() string {
	return uuid.NewString()
}

// Sidecar writes FrameReports as a sequence of CBOR items.
type Sidecar struct {
	runID string
	enc   *cbor.Encoder
}

// NewSidecar creates a sidecar writer stamping every report with runID.
// An empty runID gets a new one.
func NewSidecar(w io.Writer, runID string) (*Sidecar, error) {
	if runID == "" {
		runID = NewRunID()
	} else if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	return &Sidecar{runID: runID, enc: em.NewEncoder(w)}, nil
}

// RunID returns the run identifier written into each report.
func (s *Sidecar) RunID() string {
	return s.runID
}

// Write encodes one report.
func (s *Sidecar) Write(r FrameReport) error {
	r.RunID = s.runID
	if err := s.enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write sidecar record: %w", err)
	}
	return nil
}

// ReadSidecar decodes every report in a sidecar stream.
func ReadSidecar(r io.Reader) ([]FrameReport, error) {
	dec := cbor.NewDecoder(r)
	var out []FrameReport
	for {
		var rep FrameReport
		if err := dec.Decode(&rep); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("failed to read sidecar record %d: %w", len(out), err)
		}
		out = append(out, rep)
	}
}
