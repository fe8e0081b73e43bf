package tracking

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned when a range query is issued with
// from after to. It is rejected before any store call.
var ErrInvalidWindow = errors.New("tracking: invalid window: from is after to")

// MalformedTelemetryError reports a sample that violates the telemetry
// invariants, or a store range that came back out of timestamp order.
// It is not retryable; the offending sample is identified.
type MalformedTelemetryError struct {
	VehicleID  string
	RecordedAt time.Time
	Reason     string
}

func (e *MalformedTelemetryError) Error() string {
	return fmt.Sprintf("tracking: malformed telemetry for vehicle %q at %s: %s",
		e.VehicleID, e.RecordedAt.UTC().Format(time.RFC3339), e.Reason)
}

// StoreUnavailableError wraps a transport-level or timeout failure from
// the telemetry store. Callers may retry with backoff; the core never
// retries on its own.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("tracking: telemetry store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the error is a transient store failure
// worth retrying.
func IsRetryable(err error) bool {
	var unavailable *StoreUnavailableError
	return errors.As(err, &unavailable)
}
