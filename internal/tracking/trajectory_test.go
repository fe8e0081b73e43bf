package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleettrack/internal/models"
	"fleettrack/internal/telemetrytest"
)

type fakeSource struct {
	positions []models.VehiclePosition
	err       error
	queries   int
}

func (f *fakeSource) QueryRange(ctx context.Context, vehicleID string, from, to time.Time) (PositionSeq, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.VehiclePosition
	for _, p := range f.positions {
		if p.VehicleID != vehicleID {
			continue
		}
		if p.RecordedAt.Before(from) || p.RecordedAt.After(to) {
			continue
		}
		out = append(out, p)
	}
	return NewSliceSeq(out), nil
}

func TestReconstructRejectsInvalidWindow(t *testing.T) {
	src := &fakeSource{}
	r := NewReconstructor(src, 0)

	from := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	_, err := r.Reconstruct(context.Background(), "v1", from, from.Add(-time.Hour))

	require.ErrorIs(t, err, ErrInvalidWindow)
	assert.Zero(t, src.queries, "store must not be called for an invalid window")
}

func TestReconstructEmptyWindow(t *testing.T) {
	src := &fakeSource{}
	r := NewReconstructor(src, 0)

	at := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	trajectory, err := r.Reconstruct(context.Background(), "v1", at, at)

	require.NoError(t, err)
	assert.Empty(t, trajectory.Positions)
	assert.Empty(t, trajectory.Segments)
	assert.Zero(t, trajectory.Summary.SampleCount)
	assert.Zero(t, trajectory.Summary.MeanSpeedKmh)
}

func TestReconstructSingleSample(t *testing.T) {
	start := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{positions: []models.VehiclePosition{
		telemetrytest.Sample("v1", start, -23.5, -46.6, 42),
	}}
	r := NewReconstructor(src, 0)

	trajectory, err := r.Reconstruct(context.Background(), "v1", start.Add(-time.Hour), start.Add(time.Hour))

	require.NoError(t, err)
	require.Len(t, trajectory.Segments, 1)
	assert.Len(t, trajectory.Segments[0].Positions, 1)
	assert.Zero(t, trajectory.Segments[0].DistanceKm)
	assert.Equal(t, models.ClassMovement, trajectory.Segments[0].Class)
}

func TestReconstructSegmentRoundTrip(t *testing.T) {
	start := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	src := &fakeSource{positions: telemetrytest.Series(
		"v1", start, 5*time.Minute, -23.5, -46.6,
		60, 70, 0, 0, 30, 95, 90, 2,
	)}
	r := NewReconstructor(src, 80)

	trajectory, err := r.Reconstruct(context.Background(), "v1", start, start.Add(time.Hour))
	require.NoError(t, err)

	var rebuilt []models.VehiclePosition
	for _, seg := range trajectory.Segments {
		rebuilt = append(rebuilt, seg.Positions...)
	}
	assert.Equal(t, trajectory.Positions, rebuilt, "segments must reproduce the input exactly")

	// movement, stop, movement, speeding, stop
	classes := make([]models.Classification, 0, len(trajectory.Segments))
	for _, seg := range trajectory.Segments {
		classes = append(classes, seg.Class)
	}
	assert.Equal(t, []models.Classification{
		models.ClassMovement,
		models.ClassStop,
		models.ClassMovement,
		models.ClassSpeeding,
		models.ClassStop,
	}, classes)
}

func TestReconstructFailsFastOnOutOfOrderStore(t *testing.T) {
	start := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	src := &fakeSource{positions: []models.VehiclePosition{
		telemetrytest.Sample("v1", start.Add(10*time.Minute), -23.5, -46.6, 60),
		telemetrytest.Sample("v1", start, -23.5, -46.61, 60),
	}}
	r := NewReconstructor(src, 0)

	_, err := r.Reconstruct(context.Background(), "v1", start.Add(-time.Hour), start.Add(time.Hour))

	var malformed *MalformedTelemetryError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "v1", malformed.VehicleID)
	assert.Equal(t, start, malformed.RecordedAt)
}

func TestReconstructStopThenDrive(t *testing.T) {
	t0 := time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC)
	src := &fakeSource{positions: []models.VehiclePosition{
		telemetrytest.Sample("v1", t0, -23.50, -46.60, 60),
		telemetrytest.Sample("v1", t0.Add(10*time.Minute), -23.48, -46.58, 0),
		telemetrytest.Sample("v1", t0.Add(130*time.Minute), -23.48, -46.58, 0),
	}}
	r := NewReconstructor(src, 0)

	trajectory, err := r.Reconstruct(context.Background(), "v1", t0, t0.Add(3*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 3, trajectory.Summary.SampleCount)
	assert.Equal(t, 1, trajectory.Summary.MovingCount)
	assert.Equal(t, 2, trajectory.Summary.StoppedCount)
	assert.InDelta(t, 20, trajectory.Summary.MeanSpeedKmh, 0.001)

	require.Len(t, trajectory.Segments, 2)
	assert.Equal(t, models.ClassMovement, trajectory.Segments[0].Class)
	assert.Equal(t, models.ClassStop, trajectory.Segments[1].Class)
	assert.Equal(t, t0.Add(10*time.Minute), trajectory.Segments[1].StartTime)
	assert.Zero(t, trajectory.Segments[1].DistanceKm)
	assert.Positive(t, trajectory.Segments[0].DistanceKm)
}

func TestReconstructHonoursCancellation(t *testing.T) {
	start := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	src := &fakeSource{positions: telemetrytest.Stationary("v1", start, time.Minute, -23.5, -46.6, 5)}
	r := NewReconstructor(src, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Reconstruct(ctx, "v1", start, start.Add(time.Hour))
	require.ErrorIs(t, err, context.Canceled)
}

func TestStreamPropagatesStoreFailure(t *testing.T) {
	src := &fakeSource{err: &StoreUnavailableError{Op: "query range", Err: errors.New("connection refused")}}
	r := NewReconstructor(src, 0)

	start := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	_, err := r.Stream(context.Background(), "v1", start, start.Add(time.Hour))

	assert.True(t, IsRetryable(err))
}

func TestClassifySpeedingNeverOverridesStop(t *testing.T) {
	at := time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, models.ClassStop, Classify(telemetrytest.Sample("v1", at, 0, 0, 3), 80))
	assert.Equal(t, models.ClassMovement, Classify(telemetrytest.Sample("v1", at, 0, 0, 79), 80))
	assert.Equal(t, models.ClassSpeeding, Classify(telemetrytest.Sample("v1", at, 0, 0, 81), 80))
	assert.Equal(t, models.ClassStop, Classify(telemetrytest.SampleNoSpeed("v1", at, 0, 0), 80))
}
