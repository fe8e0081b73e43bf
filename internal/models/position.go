package models

import "time"

// Classification tags a telemetry sample by movement state.
type Classification string

const (
	ClassMovement Classification = "movement"
	ClassStop     Classification = "stop"
	ClassSpeeding Classification = "speeding"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// VehiclePosition represents a single telemetry sample. Samples are
// immutable once recorded; the store owns them and the tracking core
// only ever reads.
type VehiclePosition struct {
	VehicleID  string         `db:"vehicle_id" json:"vehicle_id"`
	Latitude   float64        `db:"latitude" json:"latitude"`
	Longitude  float64        `db:"longitude" json:"longitude"`
	SpeedKmh   *float64       `db:"speed_kmh" json:"speed_kmh,omitempty"`
	Heading    *float64       `db:"heading" json:"heading,omitempty"`
	RecordedAt time.Time      `db:"recorded_at" json:"recorded_at"`
	Class      Classification `db:"class" json:"class,omitempty"`
}

// Coordinate returns the sample location as a point.
func (p VehiclePosition) Coordinate() Coordinate {
	return Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
}

// SpeedValue returns the reported speed, or 0 when the sample carries
// no speed signal.
func (p VehiclePosition) SpeedValue() float64 {
	if p.SpeedKmh == nil {
		return 0
	}
	return *p.SpeedKmh
}

// HasSpeed reports whether the sample carries a speed signal.
func (p VehiclePosition) HasSpeed() bool {
	return p.SpeedKmh != nil
}
