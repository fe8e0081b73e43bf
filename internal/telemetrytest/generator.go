// Package telemetrytest generates synthetic telemetry fixtures for
// tests. Simulated samples never feed production paths; the real
// adapter supplies genuine data.
package telemetrytest

import (
	"time"

	"fleettrack/internal/models"
)

// Speed returns a speed signal pointer.
func Speed(v float64) *float64 {
	return &v
}

// Sample builds one telemetry sample with a speed signal.
func Sample(vehicleID string, at time.Time, lat, lon, speedKmh float64) models.VehiclePosition {
	return models.VehiclePosition{
		VehicleID:  vehicleID,
		Latitude:   lat,
		Longitude:  lon,
		SpeedKmh:   Speed(speedKmh),
		RecordedAt: at,
	}
}

// SampleNoSpeed builds a sample without a speed signal.
func SampleNoSpeed(vehicleID string, at time.Time, lat, lon float64) models.VehiclePosition {
	return models.VehiclePosition{
		VehicleID:  vehicleID,
		Latitude:   lat,
		Longitude:  lon,
		RecordedAt: at,
	}
}

// Series emits one sample per speed value, spaced by interval, moving
// east in small steps from the given origin.
func Series(vehicleID string, start time.Time, interval time.Duration, lat, lon float64, speeds ...float64) []models.VehiclePosition {
	positions := make([]models.VehiclePosition, 0, len(speeds))
	for i, s := range speeds {
		positions = append(positions, Sample(
			vehicleID,
			start.Add(time.Duration(i)*interval),
			lat,
			lon+float64(i)*0.01,
			s,
		))
	}
	return positions
}

// Stationary emits n samples at the same point with zero speed, spaced
// by interval.
func Stationary(vehicleID string, start time.Time, interval time.Duration, lat, lon float64, n int) []models.VehiclePosition {
	positions := make([]models.VehiclePosition, 0, n)
	for i := 0; i < n; i++ {
		positions = append(positions, Sample(vehicleID, start.Add(time.Duration(i)*interval), lat, lon, 0))
	}
	return positions
}
