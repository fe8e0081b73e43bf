package tracking

import (
	"context"
	"time"

	"fleettrack/internal/models"
)

// PositionSeq is an ordered stream of telemetry samples. Callers pull
// samples one at a time and must Close when done. Implementations
// backed by a store cursor stream lazily; SliceSeq serves the
// in-memory fallback.
type PositionSeq interface {
	// Next returns the next sample. ok is false when the sequence is
	// exhausted or an error occurred; err carries store or validation
	// failures.
	Next() (p models.VehiclePosition, ok bool, err error)
	Close() error
}

// PositionSource is the slice of the telemetry store the reconstructor
// consumes. The store guarantees ascending timestamp order for range
// queries; the reconstructor still verifies it.
type PositionSource interface {
	QueryRange(ctx context.Context, vehicleID string, from, to time.Time) (PositionSeq, error)
}

// SliceSeq adapts an in-memory slice to PositionSeq.
type SliceSeq struct {
	positions []models.VehiclePosition
	idx       int
}

// NewSliceSeq returns a sequence over the given samples.
func NewSliceSeq(positions []models.VehiclePosition) *SliceSeq {
	return &SliceSeq{positions: positions}
}

// Next implements PositionSeq.
func (s *SliceSeq) Next() (models.VehiclePosition, bool, error) {
	if s.idx >= len(s.positions) {
		return models.VehiclePosition{}, false, nil
	}
	p := s.positions[s.idx]
	s.idx++
	return p, true, nil
}

// Close implements PositionSeq. Slice sequences hold no resources.
func (s *SliceSeq) Close() error {
	return nil
}

// Collect drains a sequence into a slice. The sequence is closed
// before returning.
func Collect(seq PositionSeq) ([]models.VehiclePosition, error) {
	defer seq.Close()

	var out []models.VehiclePosition
	for {
		p, ok, err := seq.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, p)
	}
}

// orderedSeq wraps a sequence and fails fast with
// MalformedTelemetryError when timestamps regress. Equal timestamps
// are tolerated.
type orderedSeq struct {
	inner   PositionSeq
	started bool
	lastTS  time.Time
}

func newOrderedSeq(inner PositionSeq) *orderedSeq {
	return &orderedSeq{inner: inner}
}

func (s *orderedSeq) Next() (models.VehiclePosition, bool, error) {
	p, ok, err := s.inner.Next()
	if err != nil || !ok {
		return p, ok, err
	}
	if s.started && p.RecordedAt.Before(s.lastTS) {
		return models.VehiclePosition{}, false, &MalformedTelemetryError{
			VehicleID:  p.VehicleID,
			RecordedAt: p.RecordedAt,
			Reason:     "range query returned samples out of timestamp order",
		}
	}
	s.started = true
	s.lastTS = p.RecordedAt
	return p, true, nil
}

func (s *orderedSeq) Close() error {
	return s.inner.Close()
}
