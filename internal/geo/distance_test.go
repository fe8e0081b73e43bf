package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fleettrack/internal/models"
)

func TestDistanceKmIdenticalPoints(t *testing.T) {
	points := []models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: -23.5505, Longitude: -46.6333},
		{Latitude: 89.9, Longitude: 179.9},
	}
	for _, p := range points {
		assert.Zero(t, DistanceKm(p, p))
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	a := models.Coordinate{Latitude: -23.5505, Longitude: -46.6333}
	b := models.Coordinate{Latitude: -22.9068, Longitude: -43.1729}
	assert.Equal(t, DistanceKm(a, b), DistanceKm(b, a))
}

func TestDistanceKmQuarterGreatCircle(t *testing.T) {
	a := models.Coordinate{Latitude: 0, Longitude: 0}
	b := models.Coordinate{Latitude: 0, Longitude: 90}
	d := DistanceKm(a, b)
	// Quarter of the mean circumference.
	assert.InDelta(t, 10007.5, d, 10007.5*0.01)
}

func TestDistanceKmKnownCityPair(t *testing.T) {
	saoPaulo := models.Coordinate{Latitude: -23.5505, Longitude: -46.6333}
	rio := models.Coordinate{Latitude: -22.9068, Longitude: -43.1729}
	d := DistanceKm(saoPaulo, rio)
	// Roughly 360 km apart.
	assert.InDelta(t, 360, d, 20)
}
