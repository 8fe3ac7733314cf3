package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(80.27, 13.08))
	assert.True(t, ValidCoordinate(-180, -90))
	assert.True(t, ValidCoordinate(180, 90))
	assert.False(t, ValidCoordinate(180.1, 0))
	assert.False(t, ValidCoordinate(0, -90.5))
}

func TestHaversine(t *testing.T) {
	// Chennai to Kochi is roughly 550-600 km.
	d := Haversine(13.0827, 80.2707, 9.9312, 76.2673)
	assert.InDelta(t, 560, d, 60)

	assert.Zero(t, Haversine(10, 70, 10, 70))
}

func TestPointInBounds(t *testing.T) {
	assert.True(t, PointInBounds(75, 15, 10, 20, 70, 80))
	assert.True(t, PointInBounds(70, 10, 10, 20, 70, 80), "boundary is inclusive")
	assert.False(t, PointInBounds(69.99, 15, 10, 20, 70, 80))
	assert.False(t, PointInBounds(75, 20.01, 10, 20, 70, 80))
}
