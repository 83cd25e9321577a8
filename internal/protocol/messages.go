package protocol

// Body is any typed message payload that can be carried over the wire.
// Encode renders its text form and the Decode* functions parse it back;
// internal/bus passes Body values through as they are, so agent logic
// never touches raw strings.
type Body interface {
	Encode() string
}

// DriverRequest is sent by a Driver to the Parking Manager:
// "Request <env> <price> <lat> <lon>".
type DriverRequest struct {
	Environment   *Environment
	Pricing       *Pricing
	Lat, Lon      float64
}

// RouteReply is the Parking Manager's answer to a DriverRequest: either a
// zone endpoint, or NoSpotAvailable.
type RouteReply struct {
	Zone   Endpoint
	NoSpot bool
}

// ZoneRequest is the bare "Request" a Driver sends to a Zone Manager to
// open an auction.
type ZoneRequest struct{}

// Assignment is a Zone Manager's reply to a Driver once an auction ends:
// "<spot_jid> <price_hour> <env> <lat> <lon>". SpotEndpoint is empty when
// the auction ended with no winner.
type Assignment struct {
	SpotEndpoint Endpoint
	PriceHour    float64
	Environment  Environment
	Lat, Lon     float64
}

// AuctionStart opens an auction round: "AuctionStart <initial_bid>".
type AuctionStart struct {
	InitialBid int
}

// BidRequest solicits a raise: "BidRequest <next_bid>".
type BidRequest struct {
	NextBid int
}

// AuctionEnd closes an auction: "AuctionEnd <winner_bid> <winner_jid>".
type AuctionEnd struct {
	WinnerBid int
	Winner    Endpoint
}

// Bid is a Spot's offer: "Bid <amount> <lat> <lon>".
type Bid struct {
	Amount   int
	Lat, Lon float64
}

// Poor is a Spot's withdrawal from the current auction round.
type Poor struct{}

// StatusUpdate is a Spot's vacancy report: "Vacant", "Vacant <duration>",
// or "Occupied".
type StatusUpdate struct {
	Vacant          bool
	HasDuration     bool
	DurationMinutes float64
}

// ZoneSummary is a Zone Manager's continuous report to the Parking
// Manager: "<vacant_count> <lat> <lon> <price_hour> <environment>".
type ZoneSummary struct {
	VacantCount int
	Lat, Lon    float64
	PriceHour   float64
	Environment Environment
}
