package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleettrack/internal/livefeed"
	"fleettrack/internal/models"
	"fleettrack/internal/telemetrytest"
	"fleettrack/internal/tracking"
)

type fakePositions struct {
	mu        sync.Mutex
	byVehicle map[string][]models.VehiclePosition
	err       error
}

func newFakePositions() *fakePositions {
	return &fakePositions{byVehicle: make(map[string][]models.VehiclePosition)}
}

func (f *fakePositions) add(positions ...models.VehiclePosition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range positions {
		f.byVehicle[p.VehicleID] = append(f.byVehicle[p.VehicleID], p)
	}
	for id := range f.byVehicle {
		samples := f.byVehicle[id]
		sort.Slice(samples, func(i, j int) bool { return samples[i].RecordedAt.Before(samples[j].RecordedAt) })
	}
}

func (f *fakePositions) Insert(ctx context.Context, p *models.VehiclePosition) error {
	if f.err != nil {
		return f.err
	}
	f.add(*p)
	return nil
}

func (f *fakePositions) LastPosition(ctx context.Context, vehicleID string) (*models.VehiclePosition, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	samples := f.byVehicle[vehicleID]
	if len(samples) == 0 {
		return nil, nil
	}
	last := samples[len(samples)-1]
	return &last, nil
}

func (f *fakePositions) LastPositions(ctx context.Context) (map[string]*models.VehiclePosition, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	latest := make(map[string]*models.VehiclePosition)
	for id, samples := range f.byVehicle {
		last := samples[len(samples)-1]
		latest[id] = &last
	}
	return latest, nil
}

func (f *fakePositions) QueryRange(ctx context.Context, vehicleID string, from, to time.Time) (tracking.PositionSeq, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.VehiclePosition
	for _, p := range f.byVehicle[vehicleID] {
		if p.RecordedAt.Before(from) || p.RecordedAt.After(to) {
			continue
		}
		out = append(out, p)
	}
	return tracking.NewSliceSeq(out), nil
}

type fakeVehicles struct {
	vehicles []models.Vehicle
	err      error
}

func (f *fakeVehicles) List(ctx context.Context) ([]models.Vehicle, error) {
	return f.vehicles, f.err
}

type fakeLive struct {
	mu      sync.Mutex
	last    map[string]models.VehiclePosition
	handler func(models.VehiclePosition)
}

func newFakeLive() *fakeLive {
	return &fakeLive{last: make(map[string]models.VehiclePosition)}
}

func (f *fakeLive) SetLastPosition(ctx context.Context, p models.VehiclePosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last[p.VehicleID] = p
	return nil
}

func (f *fakeLive) LastPosition(ctx context.Context, vehicleID string) (*models.VehiclePosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.last[vehicleID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeLive) SubscribeChanges(ctx context.Context, handler func(models.VehiclePosition)) (livefeed.Unsubscribe, error) {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	return func() {}, nil
}

func (f *fakeLive) notify(p models.VehiclePosition) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	if handler != nil {
		handler(p)
	}
}

type fakeHub struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeHub) Broadcast(payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
}

func (f *fakeHub) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func newTestService(positions *fakePositions, vehicles *fakeVehicles, live *fakeLive, hub *fakeHub, now time.Time) *TrackingService {
	var liveStore LiveStore
	if live != nil {
		liveStore = live
	}
	var broadcaster Broadcaster
	if hub != nil {
		broadcaster = hub
	}
	svc := New(positions, vehicles, liveStore, broadcaster, zap.NewNop(), Options{
		PollInterval: 20 * time.Millisecond,
	})
	svc.now = func() time.Time { return now }
	return svc
}

func TestFleetSnapshot(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	positions := newFakePositions()
	positions.add(
		telemetrytest.Sample("v1", now.Add(-time.Minute), -23.5, -46.6, 72),
		telemetrytest.Sample("v2", now.Add(-2*time.Minute), -23.4, -46.5, 0),
	)
	vehicles := &fakeVehicles{vehicles: []models.Vehicle{{ID: "v1"}, {ID: "v2"}, {ID: "v3"}}}

	svc := newTestService(positions, vehicles, nil, nil, now)
	snapshot, err := svc.FleetSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.EnRoute)
	assert.Equal(t, 1, snapshot.Stopped)
	assert.Equal(t, 1, snapshot.Offline)
	assert.Equal(t, 1, snapshot.ActiveRoutes)
}

func TestVehicleStatusPrefersLiveCache(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	positions := newFakePositions()
	// Stale sample in the relational store.
	positions.add(telemetrytest.Sample("v1", now.Add(-2*time.Hour), -23.5, -46.6, 50))

	live := newFakeLive()
	require.NoError(t, live.SetLastPosition(context.Background(),
		telemetrytest.Sample("v1", now.Add(-time.Minute), -23.5, -46.6, 50)))

	svc := newTestService(positions, &fakeVehicles{}, live, nil, now)

	status, err := svc.VehicleStatus(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, tracking.StatusEnRoute, status)
}

func TestVehicleStatusFallsBackToStore(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	positions := newFakePositions()
	positions.add(telemetrytest.Sample("v1", now.Add(-time.Minute), -23.5, -46.6, 0))

	svc := newTestService(positions, &fakeVehicles{}, newFakeLive(), nil, now)

	status, err := svc.VehicleStatus(context.Background(), "v1")
	require.NoError(t, err)
	assert.Equal(t, tracking.StatusStopped, status)
}

func TestWindowAlerts(t *testing.T) {
	t0 := time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC)
	positions := newFakePositions()
	positions.add(
		telemetrytest.Sample("v1", t0, -23.50, -46.60, 60),
		telemetrytest.Sample("v1", t0.Add(10*time.Minute), -23.48, -46.58, 0),
		telemetrytest.Sample("v1", t0.Add(130*time.Minute), -23.48, -46.58, 0),
	)

	svc := newTestService(positions, &fakeVehicles{}, nil, nil, t0.Add(3*time.Hour))

	alerts, err := svc.WindowAlerts(context.Background(), "v1", t0, t0.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, tracking.AlertProlongedStop, alerts[0].Type)
	assert.Equal(t, t0.Add(10*time.Minute), alerts[0].WindowStart)
}

func TestRecordPositionRefreshesLive(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	positions := newFakePositions()
	live := newFakeLive()
	svc := newTestService(positions, &fakeVehicles{}, live, nil, now)

	sample := telemetrytest.Sample("v1", now, -23.5, -46.6, 30)
	require.NoError(t, svc.RecordPosition(context.Background(), sample))

	stored, err := positions.LastPosition(context.Background(), "v1")
	require.NoError(t, err)
	require.NotNil(t, stored)

	cached, err := live.LastPosition(context.Background(), "v1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, sample.RecordedAt, cached.RecordedAt)
}

func TestRunBroadcastsSnapshots(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	positions := newFakePositions()
	positions.add(telemetrytest.Sample("v1", now.Add(-time.Minute), -23.5, -46.6, 72))
	vehicles := &fakeVehicles{vehicles: []models.Vehicle{{ID: "v1"}}}
	live := newFakeLive()
	hub := &fakeHub{}

	svc := newTestService(positions, vehicles, live, hub, now)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.Run(ctx) }()

	// Poll tick fires first; a change notification forces another
	// recompute without waiting for the next tick.
	waitFor(t, time.Second, func() bool { return hub.count() >= 1 })
	live.notify(telemetrytest.Sample("v1", now, -23.5, -46.6, 80))
	waitFor(t, time.Second, func() bool { return hub.count() >= 2 })
}
