package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned (and never causes a retry) when a message body
// cannot be parsed: wrong arity or an unparseable number. The caller logs
// the offending body and drops the message, leaving agent state unchanged.
var ErrMalformed = errors.New("protocol: malformed message")

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

func tagOptional(tag string, ok bool) string {
	if !ok {
		return "null"
	}
	return tag
}

// --- Encode ---

func (m DriverRequest) Encode() string {
	env := "null"
	if m.Environment != nil {
		env = string(*m.Environment)
	}
	price := "null"
	if m.Pricing != nil {
		price = string(*m.Pricing)
	}
	return fmt.Sprintf("Request %s %s %s %s", env, price, formatFloat(m.Lat), formatFloat(m.Lon))
}

func (m RouteReply) Encode() string {
	if m.NoSpot {
		return "NoSpotAvailable"
	}
	return string(m.Zone)
}

func (ZoneRequest) Encode() string { return "Request" }

func (m Assignment) Encode() string {
	return fmt.Sprintf("%s %s %s %s %s",
		m.SpotEndpoint, formatFloat(m.PriceHour), m.Environment, formatFloat(m.Lat), formatFloat(m.Lon))
}

func (m AuctionStart) Encode() string {
	return fmt.Sprintf("AuctionStart %d", m.InitialBid)
}

func (m BidRequest) Encode() string {
	return fmt.Sprintf("BidRequest %d", m.NextBid)
}

func (m AuctionEnd) Encode() string {
	return fmt.Sprintf("AuctionEnd %d %s", m.WinnerBid, m.Winner)
}

func (m Bid) Encode() string {
	return fmt.Sprintf("Bid %d %s %s", m.Amount, formatFloat(m.Lat), formatFloat(m.Lon))
}

func (Poor) Encode() string { return "Poor" }

func (m StatusUpdate) Encode() string {
	if m.Vacant {
		if m.HasDuration {
			return fmt.Sprintf("Vacant %s", formatFloat(m.DurationMinutes))
		}
		return "Vacant"
	}
	return "Occupied"
}

func (m ZoneSummary) Encode() string {
	return fmt.Sprintf("%d %s %s %s %s", m.VacantCount, formatFloat(m.Lat), formatFloat(m.Lon), formatFloat(m.PriceHour), m.Environment)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// --- Decode: each decoder corresponds to the inbox of one agent role,
// since the wire format is not globally self-describing — a body like
// "2.5" means different things depending on who receives it. This
// preserves the original system's routing-by-position design while
// parsing exactly once at ingress (see Design Notes §9).

// DecodeParkingManagerInbound parses a message arriving at the Parking
// Manager: either a driver's DriverRequest, or a zone's ZoneSummary.
func DecodeParkingManagerInbound(raw string) (Body, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, malformed("empty body")
	}
	if fields[0] == "Request" {
		return decodeDriverRequest(fields)
	}
	return decodeZoneSummary(fields)
}

func decodeDriverRequest(fields []string) (Body, error) {
	// Request <env> <price> <lat> <lon>
	if len(fields) != 5 {
		return nil, malformed("Request: want 5 fields, got %d", len(fields))
	}
	lat, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return nil, malformed("Request: bad lat %q", fields[3])
	}
	lon, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return nil, malformed("Request: bad lon %q", fields[4])
	}
	req := DriverRequest{Lat: lat, Lon: lon}
	if env, ok := ParseEnvironment(fields[1]); ok {
		req.Environment = &env
	}
	if price, ok := ParsePricing(fields[2]); ok {
		req.Pricing = &price
	}
	return req, nil
}

func decodeZoneSummary(fields []string) (Body, error) {
	// <vacant_count> <lat> <lon> <price_hour> <environment>
	if len(fields) < 5 {
		return nil, malformed("ZoneSummary: want 5 fields, got %d", len(fields))
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, malformed("ZoneSummary: bad vacant_count %q", fields[0])
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, malformed("ZoneSummary: bad lat %q", fields[1])
	}
	lon, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, malformed("ZoneSummary: bad lon %q", fields[2])
	}
	price, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return nil, malformed("ZoneSummary: bad price_hour %q", fields[3])
	}
	return ZoneSummary{
		VacantCount: count,
		Lat:         lat,
		Lon:         lon,
		PriceHour:   price,
		Environment: Environment(fields[4]),
	}, nil
}

// DecodeZoneInbound parses a message arriving at a Zone Manager: a bare
// "Request" from a driver, or a Bid/Poor/StatusUpdate from a Spot. The
// first token always disambiguates, per the original dispatch rule: "any
// message whose first token is neither Request, Bid, nor Poor is a status
// update".
func DecodeZoneInbound(raw string) (Body, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, malformed("empty body")
	}
	switch fields[0] {
	case "Request":
		if len(fields) != 1 {
			return nil, malformed("Request: zone manager expects bare Request, got %d fields", len(fields))
		}
		return ZoneRequest{}, nil
	case "Bid":
		if len(fields) != 4 {
			return nil, malformed("Bid: want 4 fields, got %d", len(fields))
		}
		amount, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, malformed("Bid: bad amount %q", fields[1])
		}
		lat, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, malformed("Bid: bad lat %q", fields[2])
		}
		lon, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, malformed("Bid: bad lon %q", fields[3])
		}
		return Bid{Amount: amount, Lat: lat, Lon: lon}, nil
	case "Poor":
		return Poor{}, nil
	default:
		return decodeStatusUpdate(fields)
	}
}

func decodeStatusUpdate(fields []string) (Body, error) {
	switch fields[0] {
	case "Vacant":
		if len(fields) == 1 {
			return StatusUpdate{Vacant: true}, nil
		}
		if len(fields) == 2 {
			d, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				return nil, malformed("Vacant: bad duration %q", fields[1])
			}
			return StatusUpdate{Vacant: true, HasDuration: true, DurationMinutes: d}, nil
		}
		return nil, malformed("Vacant: want 1 or 2 fields, got %d", len(fields))
	case "Occupied":
		if len(fields) != 1 {
			return nil, malformed("Occupied: want 1 field, got %d", len(fields))
		}
		return StatusUpdate{Vacant: false}, nil
	default:
		return nil, malformed("unrecognised status token %q", fields[0])
	}
}

// DecodeSpotInbound parses a message arriving at a Spot: AuctionStart,
// BidRequest, or AuctionEnd, all sent only by the Spot's Zone Manager.
func DecodeSpotInbound(raw string) (Body, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, malformed("empty body")
	}
	switch fields[0] {
	case "AuctionStart":
		if len(fields) != 2 {
			return nil, malformed("AuctionStart: want 2 fields, got %d", len(fields))
		}
		bid, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, malformed("AuctionStart: bad initial_bid %q", fields[1])
		}
		return AuctionStart{InitialBid: bid}, nil
	case "BidRequest":
		if len(fields) != 2 {
			return nil, malformed("BidRequest: want 2 fields, got %d", len(fields))
		}
		bid, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, malformed("BidRequest: bad next_bid %q", fields[1])
		}
		return BidRequest{NextBid: bid}, nil
	case "AuctionEnd":
		// A no-winner AuctionEnd encodes its empty winner as a missing
		// third token.
		if len(fields) != 2 && len(fields) != 3 {
			return nil, malformed("AuctionEnd: want 2 or 3 fields, got %d", len(fields))
		}
		bid, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, malformed("AuctionEnd: bad winner_bid %q", fields[1])
		}
		end := AuctionEnd{WinnerBid: bid}
		if len(fields) == 3 {
			end.Winner = Endpoint(fields[2])
		}
		return end, nil
	default:
		return nil, malformed("unrecognised spot message %q", fields[0])
	}
}

// DecodeRouteReply parses the Parking Manager's reply to a driver.
func DecodeRouteReply(raw string) (RouteReply, error) {
	fields := strings.Fields(raw)
	if len(fields) != 1 {
		return RouteReply{}, malformed("RouteReply: want 1 field, got %d", len(fields))
	}
	if fields[0] == "NoSpotAvailable" {
		return RouteReply{NoSpot: true}, nil
	}
	return RouteReply{Zone: Endpoint(fields[0])}, nil
}

// DecodeAssignment parses a Zone Manager's reply to a driver.
func DecodeAssignment(raw string) (Assignment, error) {
	fields := strings.Fields(raw)
	if len(fields) != 5 {
		return Assignment{}, malformed("Assignment: want 5 fields, got %d", len(fields))
	}
	price, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Assignment{}, malformed("Assignment: bad price_hour %q", fields[1])
	}
	lat, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Assignment{}, malformed("Assignment: bad lat %q", fields[3])
	}
	lon, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return Assignment{}, malformed("Assignment: bad lon %q", fields[4])
	}
	return Assignment{
		SpotEndpoint: Endpoint(fields[0]),
		PriceHour:    price,
		Environment:  Environment(fields[2]),
		Lat:          lat,
		Lon:          lon,
	}, nil
}

var _ = tagOptional // reserved for future null-tag rendering symmetry
