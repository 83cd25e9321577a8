// Package parkingmanager implements the Parking Manager agent: it keeps
// a live registry of every zone's reported vacancy/pricing/location and
// routes a driver's request to the best-scoring zone. Grounded on the
// original source's ParkingManager (ListenBehaviour).
package parkingmanager

import (
	"context"

	"go.uber.org/zap"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/agent"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/bus"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/protocol"
)

// zoneKey is the registry key for one zone's latest report: the
// original source keyed its table on the full tuple (endpoint,
// environment, lat, lon, price_hour) rather than endpoint alone, so a
// zone that changes its price or environment is tracked as a distinct
// entry rather than updating the old one in place. Preserved here for
// fidelity even though every zone in practice keeps a fixed key.
type zoneKey struct {
	endpoint    protocol.Endpoint
	environment protocol.Environment
	lat, lon    float64
	priceHour   float64
}

// ParkingManager is the system's single point of zone registration and
// routing.
type ParkingManager struct {
	*agent.Base

	// order preserves insertion order of registry keys so that equally
	// scored zones are matched in the order they first reported in,
	// since Go map iteration order is randomized otherwise.
	order []zoneKey
	spots map[zoneKey]int
}

// New builds an empty ParkingManager.
func New(base *agent.Base) *ParkingManager {
	return &ParkingManager{
		Base:  base,
		spots: make(map[zoneKey]int),
	}
}

// Start launches the manager's receive loop.
func (p *ParkingManager) Start(ctx context.Context) error {
	return p.Run(ctx, p.loop)
}

func (p *ParkingManager) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-p.Inbox():
			if !ok {
				return
			}
			p.handle(ctx, env)
		}
	}
}

func (p *ParkingManager) handle(ctx context.Context, env bus.Envelope) {
	switch msg := env.Body.(type) {
	case protocol.DriverRequest:
		p.handleDriverRequest(ctx, env.From, msg)
	case protocol.ZoneSummary:
		p.handleZoneSummary(env.From, msg)
	default:
		p.Logger.Warn("parking manager received unexpected message", zap.Any("body", env.Body))
	}
}

func (p *ParkingManager) handleZoneSummary(from protocol.Endpoint, msg protocol.ZoneSummary) {
	key := zoneKey{endpoint: from, environment: msg.Environment, lat: msg.Lat, lon: msg.Lon, priceHour: msg.PriceHour}
	if _, known := p.spots[key]; !known {
		p.order = append(p.order, key)
	}
	p.spots[key] = msg.VacantCount
	p.Logger.Debug("zone summary recorded",
		zap.String("zone", from.String()),
		zap.Int("vacant_count", msg.VacantCount),
	)
}

func (p *ParkingManager) handleDriverRequest(ctx context.Context, from protocol.Endpoint, msg protocol.DriverRequest) {
	zone, ok := p.bestMatch(msg)
	var reply protocol.RouteReply
	if ok {
		reply = protocol.RouteReply{Zone: zone}
	} else {
		reply = protocol.RouteReply{NoSpot: true}
	}
	if err := p.Send(ctx, from, reply); err != nil {
		p.Logger.Warn("failed to reply to driver", zap.Error(err))
	}
}

// bestMatch returns the highest-scoring zone with at least one vacant
// spot, breaking ties by registration order. Reports ok=false when no
// zone currently has a vacant spot.
func (p *ParkingManager) bestMatch(req protocol.DriverRequest) (protocol.Endpoint, bool) {
	var (
		best      protocol.Endpoint
		bestScore float64
		found     bool
	)

	clientLat, clientLon := req.Lat, req.Lon

	for _, key := range p.order {
		vacant := p.spots[key]
		if vacant <= 0 {
			continue
		}
		s := score(key.environment, key.priceHour, key.lat, key.lon, req.Environment, req.Pricing, &clientLat, &clientLon)
		if !found || s > bestScore {
			best = key.endpoint
			bestScore = s
			found = true
		}
	}
	return best, found
}
