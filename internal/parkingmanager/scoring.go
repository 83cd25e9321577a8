package parkingmanager

import (
	"strings"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/geo"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/protocol"
)

// score combines environment, pricing, and proximity weights for one
// zone against a driver's stated preferences. This is the corrected
// form of the original source's calculate_score: the original unpacked
// its five-field registry key into the wrong five parameter names
// (shifting pricing/lat/lon/price_hour down by one slot), so its
// pricing and proximity weights were in practice computed from the
// zone's longitude and price_hour instead of its actual pricing and
// coordinates. Here the key's fields are passed under their own names.
func score(zoneEnv protocol.Environment, zonePriceHour, zoneLat, zoneLon float64, clientEnv *protocol.Environment, clientPricing *protocol.Pricing, clientLat, clientLon *float64) float64 {
	var total float64
	total += environmentWeight(zoneEnv, clientEnv)
	total += pricingWeight(zonePriceHour, clientPricing)
	if clientLat != nil && clientLon != nil {
		total += geo.ProximityWeight(zoneLat, zoneLon, *clientLat, *clientLon)
	}
	return total
}

// environmentWeight scores an exact match as 3, a "-Preferred" fuzzy
// match as 2 (e.g. a client wanting "Outdoor" matching a zone tagged
// "Outdoor-Preferred"), and anything else the client expressed a
// preference for as 1. A client with no preference contributes 0.
func environmentWeight(zoneEnv protocol.Environment, clientEnv *protocol.Environment) float64 {
	if clientEnv == nil {
		return 0
	}
	if zoneEnv == *clientEnv {
		return 3
	}
	clientPrefix, _, _ := strings.Cut(string(*clientEnv), "-")
	if zoneEnv.IsPreferred() && strings.HasPrefix(string(zoneEnv), clientPrefix) {
		return 2
	}
	return 1
}

// pricingWeight scores a zone whose hourly price is at or below the
// client's pricing-class weight as 3, within 1.5x of it as 2, and
// anything pricier as 1. A client with no pricing preference
// contributes 0.
func pricingWeight(zonePriceHour float64, clientPricing *protocol.Pricing) float64 {
	if clientPricing == nil {
		return 0
	}
	clientWeight := clientPricing.Weight()
	switch {
	case zonePriceHour <= clientWeight:
		return 3
	case zonePriceHour <= clientWeight*1.5:
		return 2
	default:
		return 1
	}
}
