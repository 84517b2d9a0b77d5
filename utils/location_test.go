package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHaversineDistance(t *testing.T) {
	// New York to Los Angeles, roughly 3936 km
	distance := HaversineDistance(40.7128, -74.0060, 34.0522, -118.2437)
	assert.InDelta(t, 3936, distance, 50)

	// Same point
	assert.InDelta(t, 0, HaversineDistance(40.7128, -74.0060, 40.7128, -74.0060), 0.001)

	// Short hop: about 1.1 km across downtown
	short := HaversineDistance(40.7580, -73.9855, 40.7484, -73.9857)
	assert.InDelta(t, 1.07, short, 0.1)
}

func TestEstimateETA(t *testing.T) {
	from := Location{Latitude: 40.7580, Longitude: -73.9855}
	to := Location{Latitude: 40.7484, Longitude: -73.9857}

	eta := EstimateETA(from, to, 30)
	assert.Greater(t, eta, time.Duration(0))
	assert.Less(t, eta, 10*time.Minute)
}

func TestIsLocationValid(t *testing.T) {
	assert.True(t, IsLocationValid(40.7128, -74.0060))
	assert.True(t, IsLocationValid(-90, 180))
	assert.False(t, IsLocationValid(90.1, 0))
	assert.False(t, IsLocationValid(0, -180.5))
}
