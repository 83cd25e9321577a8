package parkingmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/protocol"
)

func envPtr(e protocol.Environment) *protocol.Environment { return &e }
func pricingPtr(p protocol.Pricing) *protocol.Pricing       { return &p }

func TestEnvironmentWeightExactMatch(t *testing.T) {
	assert.Equal(t, 3.0, environmentWeight(protocol.EnvIndoor, envPtr(protocol.EnvIndoor)))
}

func TestEnvironmentWeightPreferredFuzzyMatch(t *testing.T) {
	assert.Equal(t, 2.0, environmentWeight(protocol.EnvIndoorPreferred, envPtr(protocol.EnvIndoor)))
}

func TestEnvironmentWeightMismatch(t *testing.T) {
	assert.Equal(t, 1.0, environmentWeight(protocol.EnvOutdoor, envPtr(protocol.EnvIndoor)))
}

func TestEnvironmentWeightNoPreference(t *testing.T) {
	assert.Equal(t, 0.0, environmentWeight(protocol.EnvOutdoor, nil))
}

func TestPricingWeightBands(t *testing.T) {
	medium := pricingPtr(protocol.PricingMedium) // weight 1.0
	assert.Equal(t, 3.0, pricingWeight(0.5, medium))
	assert.Equal(t, 2.0, pricingWeight(1.4, medium))
	assert.Equal(t, 1.0, pricingWeight(2.0, medium))
}

func TestPricingWeightNoPreference(t *testing.T) {
	assert.Equal(t, 0.0, pricingWeight(5, nil))
}

func TestScoreSumsAllThreeDimensions(t *testing.T) {
	lat, lon := 1.0, 1.0
	s := score(protocol.EnvIndoor, 0.5, 1.0, 1.0, envPtr(protocol.EnvIndoor), pricingPtr(protocol.PricingMedium), &lat, &lon)
	// environment exact match (3) + pricing within budget (3) + same point (6)
	assert.Equal(t, 12.0, s)
}
