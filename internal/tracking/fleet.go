package tracking

import (
	"time"

	"fleettrack/internal/models"
)

// FleetSnapshot is a point-in-time aggregate over the whole fleet.
// Recomputed on demand, never mutated in place.
type FleetSnapshot struct {
	GeneratedAt       time.Time     `json:"generated_at"`
	TotalVehicles     int           `json:"total_vehicles"`
	Active            int           `json:"active"`
	EnRoute           int           `json:"en_route"`
	Stopped           int           `json:"stopped"`
	Offline           int           `json:"offline"`
	ActiveRoutes      int           `json:"active_routes"`
	TotalDistanceKm   float64       `json:"total_distance_km"`
	MeanRouteDuration time.Duration `json:"mean_route_duration"`
}

// RouteStats carries the per-vehicle trajectory figures the snapshot
// aggregates. Produced by Trajectory.RouteStats.
type RouteStats struct {
	DistanceKm float64
	Duration   time.Duration
}

// Snapshot tallies per-status counts for the fleet at now. A vehicle
// with no recorded position counts as offline. Distance and route
// duration are best-effort figures that need trajectory data; without
// it they stay zero — combine with WithRouteStats for real values.
func Snapshot(vehicles []models.Vehicle, positions map[string]*models.VehiclePosition, now time.Time) FleetSnapshot {
	snapshot := FleetSnapshot{
		GeneratedAt:   now,
		TotalVehicles: len(vehicles),
	}

	for _, v := range vehicles {
		switch DeriveStatus(positions[v.ID], now) {
		case StatusActive:
			snapshot.Active++
		case StatusEnRoute:
			snapshot.EnRoute++
		case StatusStopped:
			snapshot.Stopped++
		case StatusOffline:
			snapshot.Offline++
		}
	}

	snapshot.ActiveRoutes = snapshot.EnRoute
	return snapshot
}

// WithRouteStats returns a copy of the snapshot enriched with
// trajectory-derived totals.
func (s FleetSnapshot) WithRouteStats(stats []RouteStats) FleetSnapshot {
	var durationSum time.Duration
	var routed int

	s.TotalDistanceKm = 0
	for _, r := range stats {
		s.TotalDistanceKm += r.DistanceKm
		if r.Duration > 0 {
			durationSum += r.Duration
			routed++
		}
	}

	s.MeanRouteDuration = 0
	if routed > 0 {
		s.MeanRouteDuration = durationSum / time.Duration(routed)
	}
	return s
}
