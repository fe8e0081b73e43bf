package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fleettrack/internal/models"
	"fleettrack/internal/telemetrytest"
)

func TestSnapshotTalliesStatuses(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	vehicles := []models.Vehicle{
		{ID: "v1", Name: "Truck 1"},
		{ID: "v2", Name: "Truck 2"},
		{ID: "v3", Name: "Truck 3"},
	}
	positions := map[string]*models.VehiclePosition{
		"v1": ptr(telemetrytest.Sample("v1", now.Add(-time.Minute), -23.5, -46.6, 72)),
		"v2": ptr(telemetrytest.Sample("v2", now.Add(-2*time.Minute), -23.4, -46.5, 0)),
		// v3 has no recorded position.
	}

	snapshot := Snapshot(vehicles, positions, now)

	assert.Equal(t, 3, snapshot.TotalVehicles)
	assert.Equal(t, 1, snapshot.EnRoute)
	assert.Equal(t, 1, snapshot.Stopped)
	assert.Equal(t, 1, snapshot.Offline)
	assert.Zero(t, snapshot.Active)
	assert.Equal(t, 1, snapshot.ActiveRoutes)
	assert.Equal(t, now, snapshot.GeneratedAt)

	// Best-effort figures stay zero without trajectory data.
	assert.Zero(t, snapshot.TotalDistanceKm)
	assert.Zero(t, snapshot.MeanRouteDuration)
}

func TestSnapshotEmptyFleet(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	snapshot := Snapshot(nil, nil, now)
	assert.Zero(t, snapshot.TotalVehicles)
	assert.Zero(t, snapshot.Offline)
}

func TestSnapshotWithRouteStats(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	snapshot := Snapshot(nil, nil, now).WithRouteStats([]RouteStats{
		{DistanceKm: 12.5, Duration: time.Hour},
		{DistanceKm: 7.5, Duration: 30 * time.Minute},
		{DistanceKm: 0, Duration: 0}, // vehicle with no usable window
	})

	assert.InDelta(t, 20, snapshot.TotalDistanceKm, 0.001)
	assert.Equal(t, 45*time.Minute, snapshot.MeanRouteDuration)
}
