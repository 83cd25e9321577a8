package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKMSamePoint(t *testing.T) {
	assert.InDelta(t, 0, DistanceKM(40.0, -8.0, 40.0, -8.0), 1e-9)
}

func TestDistanceKMKnownPair(t *testing.T) {
	// Lisbon to Porto, roughly 274km apart.
	d := DistanceKM(38.7223, -9.1393, 41.1579, -8.6291)
	assert.InDelta(t, 274, d, 10)
}

func TestProximityWeightBands(t *testing.T) {
	cases := []struct {
		name     string
		distance float64
		want     float64
	}{
		{"touching", 0.0, 6},
		{"90m", 0.09, 6},
		{"200m", 0.2, 5},
		{"400m", 0.4, 4},
		{"900m", 0.9, 3},
		{"1.9km", 1.9, 2},
		{"4.9km", 4.9, 1},
		{"10km", 10, 0},
	}
	base := 10.0
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			// lon offset approximated small enough that DistanceKM(base,base,base,base+delta)
			// is not exact; instead verify via direct band boundary using latitude offset
			// in degrees calibrated to the desired km distance (111.32km per degree latitude).
			lat2 := base + c.distance/111.32
			got := ProximityWeight(base, 0, lat2, 0)
			assert.Equal(t, c.want, got)
		})
	}
}
