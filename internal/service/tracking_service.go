package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"fleettrack/internal/livefeed"
	"fleettrack/internal/models"
	"fleettrack/internal/tracking"
)

// PositionStore is the telemetry store surface the service consumes.
type PositionStore interface {
	Insert(ctx context.Context, p *models.VehiclePosition) error
	LastPosition(ctx context.Context, vehicleID string) (*models.VehiclePosition, error)
	LastPositions(ctx context.Context) (map[string]*models.VehiclePosition, error)
	QueryRange(ctx context.Context, vehicleID string, from, to time.Time) (tracking.PositionSeq, error)
}

// VehicleStore reads the fleet roster.
type VehicleStore interface {
	List(ctx context.Context) ([]models.Vehicle, error)
}

// LiveStore is the optional hot layer for last positions and change
// notifications.
type LiveStore interface {
	SetLastPosition(ctx context.Context, p models.VehiclePosition) error
	LastPosition(ctx context.Context, vehicleID string) (*models.VehiclePosition, error)
	SubscribeChanges(ctx context.Context, handler func(models.VehiclePosition)) (livefeed.Unsubscribe, error)
}

// Broadcaster pushes payloads to connected dashboards.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Options tunes the service.
type Options struct {
	PollInterval time.Duration
	StoreTimeout time.Duration
	Alerts       tracking.AlertConfig
}

func (o Options) normalized() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 5 * time.Second
	}
	if o.Alerts.SpeedLimitKmh <= 0 {
		o.Alerts.SpeedLimitKmh = tracking.DefaultSpeedLimitKmh
	}
	if o.Alerts.ProlongedStop <= 0 {
		o.Alerts.ProlongedStop = tracking.DefaultProlongedStop
	}
	return o
}

// TrackingService composes the telemetry store and the tracking core
// for the dashboard. All derivation happens in the core; the service
// only fetches inputs, supplies the clock and fans results out.
type TrackingService struct {
	positions     PositionStore
	vehicles      VehicleStore
	live          LiveStore
	hub           Broadcaster
	reconstructor *tracking.Reconstructor
	opts          Options
	logger        *zap.Logger
	now           func() time.Time
}

// New builds the service. live and hub may be nil; the service then
// skips the hot layer and live broadcasting respectively.
func New(positions PositionStore, vehicles VehicleStore, live LiveStore, hub Broadcaster, logger *zap.Logger, opts Options) *TrackingService {
	opts = opts.normalized()
	return &TrackingService{
		positions:     positions,
		vehicles:      vehicles,
		live:          live,
		hub:           hub,
		reconstructor: tracking.NewReconstructor(positions, opts.Alerts.SpeedLimitKmh),
		opts:          opts,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *TrackingService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.StoreTimeout)
}

// FleetSnapshot aggregates current per-vehicle statuses.
func (s *TrackingService) FleetSnapshot(ctx context.Context) (tracking.FleetSnapshot, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	vehicles, err := s.vehicles.List(ctx)
	if err != nil {
		return tracking.FleetSnapshot{}, err
	}
	positions, err := s.positions.LastPositions(ctx)
	if err != nil {
		return tracking.FleetSnapshot{}, err
	}
	return tracking.Snapshot(vehicles, positions, s.now().UTC()), nil
}

// VehicleStatus derives the current status of one vehicle, preferring
// the live cache over the relational store.
func (s *TrackingService) VehicleStatus(ctx context.Context, vehicleID string) (tracking.VehicleStatus, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var last *models.VehiclePosition
	if s.live != nil {
		cached, err := s.live.LastPosition(ctx, vehicleID)
		if err != nil {
			s.logger.Warn("live position lookup failed, falling back to store",
				zap.String("vehicle_id", vehicleID), zap.Error(err))
		} else {
			last = cached
		}
	}
	if last == nil {
		stored, err := s.positions.LastPosition(ctx, vehicleID)
		if err != nil {
			return "", err
		}
		last = stored
	}
	return tracking.DeriveStatus(last, s.now().UTC()), nil
}

// Trajectory reconstructs a vehicle's history over a window.
func (s *TrackingService) Trajectory(ctx context.Context, vehicleID string, from, to time.Time) (*tracking.Trajectory, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.reconstructor.Reconstruct(ctx, vehicleID, from, to)
}

// WindowAlerts scans a reconstructed window for threshold violations.
func (s *TrackingService) WindowAlerts(ctx context.Context, vehicleID string, from, to time.Time) ([]tracking.Alert, error) {
	trajectory, err := s.Trajectory(ctx, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	return tracking.Scan(trajectory.Positions, s.opts.Alerts), nil
}

// RecordPosition persists an incoming sample and refreshes the live
// layer. A live layer failure is logged but never fails the write.
func (s *TrackingService) RecordPosition(ctx context.Context, p models.VehiclePosition) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.positions.Insert(ctx, &p); err != nil {
		return err
	}
	if s.live != nil {
		if err := s.live.SetLastPosition(ctx, p); err != nil {
			s.logger.Warn("failed to refresh live position",
				zap.String("vehicle_id", p.VehicleID), zap.Error(err))
		}
	}
	return nil
}

// Run drives the live dashboard: it recomputes the fleet snapshot on
// the poll interval and immediately after a change notification, and
// broadcasts results over the hub. Each iteration is independent and
// idempotent; failures are logged and the loop keeps going.
func (s *TrackingService) Run(ctx context.Context) error {
	changed := make(chan struct{}, 1)
	if s.live != nil {
		unsubscribe, err := s.live.SubscribeChanges(ctx, func(models.VehiclePosition) {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		if err != nil {
			s.logger.Warn("change subscription unavailable, polling only", zap.Error(err))
		} else {
			defer unsubscribe()
		}
	}

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.publish(ctx)
		case <-changed:
			s.publish(ctx)
		}
	}
}

func (s *TrackingService) publish(ctx context.Context) {
	if s.hub == nil {
		return
	}

	snapshot, err := s.FleetSnapshot(ctx)
	if err != nil {
		s.logger.Warn("fleet snapshot recompute failed", zap.Error(err))
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type":     "fleet_snapshot",
		"snapshot": snapshot,
	})
	if err != nil {
		s.logger.Warn("fleet snapshot encode failed", zap.Error(err))
		return
	}
	s.hub.Broadcast(payload)

	if alerts := s.recentAlerts(ctx); len(alerts) > 0 {
		payload, err := json.Marshal(map[string]interface{}{
			"type":   "alerts",
			"alerts": alerts,
		})
		if err != nil {
			s.logger.Warn("alerts encode failed", zap.Error(err))
			return
		}
		s.hub.Broadcast(payload)
	}
}

// recentAlerts rescans every vehicle's recent window. Repeat findings
// across ticks are expected; dedup belongs to the alert sink.
func (s *TrackingService) recentAlerts(ctx context.Context) []tracking.Alert {
	vehicles, err := s.vehicles.List(ctx)
	if err != nil {
		s.logger.Warn("alert sweep roster fetch failed", zap.Error(err))
		return nil
	}

	now := s.now().UTC()
	from := now.Add(-(s.opts.Alerts.ProlongedStop + 10*time.Minute))

	var alerts []tracking.Alert
	for _, v := range vehicles {
		found, err := s.WindowAlerts(ctx, v.ID, from, now)
		if err != nil {
			s.logger.Warn("alert sweep failed",
				zap.String("vehicle_id", v.ID), zap.Error(err))
			continue
		}
		alerts = append(alerts, found...)
	}
	return alerts
}
