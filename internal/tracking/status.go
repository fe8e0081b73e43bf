package tracking

import (
	"time"

	"fleettrack/internal/models"
)

// VehicleStatus is the derived operational state of a vehicle. It is
// never persisted; it is recomputed from the latest sample on every
// read because it depends on the current instant.
type VehicleStatus string

const (
	StatusActive  VehicleStatus = "active"
	StatusEnRoute VehicleStatus = "en_route"
	StatusStopped VehicleStatus = "stopped"
	StatusOffline VehicleStatus = "offline"
)

const (
	// StalenessThreshold is how long a vehicle may go without a new
	// sample before it is considered offline.
	StalenessThreshold = 30 * time.Minute

	// MovingSpeedKmh separates en-route from stopped samples.
	MovingSpeedKmh = 5.0
)

// DeriveStatus maps a vehicle's last known sample and the current
// instant to an operational status. Rules are evaluated in order,
// first match wins. Pure function; callers supply now.
func DeriveStatus(last *models.VehiclePosition, now time.Time) VehicleStatus {
	if last == nil {
		return StatusOffline
	}
	if now.Sub(last.RecordedAt) > StalenessThreshold {
		return StatusOffline
	}
	if !last.HasSpeed() {
		return StatusActive
	}
	if last.SpeedValue() > MovingSpeedKmh {
		return StatusEnRoute
	}
	return StatusStopped
}
