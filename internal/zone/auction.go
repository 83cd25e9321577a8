package zone

import (
	"time"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/protocol"
)

// auctionState tracks one in-progress ascending-price auction round,
// grounded on ParkingZoneManager.ListenBehaviour's current_high_bid /
// current_winner / number_of_poors instance state.
type auctionState struct {
	id        string
	driver    protocol.Endpoint
	deadline  time.Time
	startedAt time.Time

	highBid       int
	winner        protocol.Endpoint
	winnerLat     float64
	winnerLon     float64
	poors         int
	bidderCount   int
}

// initialBidMin/Max bound the opening bid announced to spots,
// randrange(10, 25) in the original source.
const (
	initialBidMin = 10
	initialBidMax = 25
)
