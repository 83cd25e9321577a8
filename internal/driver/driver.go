// Package driver implements the Driver agent: it requests a zone match
// from the Parking Manager, then requests a spot from that zone and
// waits for the auction to settle. Grounded on the original source's
// Driver (RequestParkingBehaviour).
package driver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/agent"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/bus"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/protocol"
)

// ErrNoSpotAvailable is returned when the Parking Manager has no zone
// matching the driver's request.
var ErrNoSpotAvailable = fmt.Errorf("driver: no spot available")

// ErrTimeout is returned when the driver's own response timeout elapses
// before a reply arrives. If ctx is done first, ctx.Err() is returned
// instead.
var ErrTimeout = fmt.Errorf("driver: timed out waiting for a reply")

// Result is what the driver ends up with after a successful request.
type Result struct {
	SpotEndpoint protocol.Endpoint
	ZoneEndpoint protocol.Endpoint
	PriceHour    float64
	Environment  protocol.Environment
	Lat, Lon     float64
}

// Driver requests and is assigned a parking spot.
type Driver struct {
	*agent.Base

	ParkingManagerEndpoint protocol.Endpoint
	ResponseTimeout        time.Duration
}

// New builds a Driver.
func New(base *agent.Base, parkingManager protocol.Endpoint, responseTimeout time.Duration) *Driver {
	return &Driver{Base: base, ParkingManagerEndpoint: parkingManager, ResponseTimeout: responseTimeout}
}

// RequestParking runs the full two-hop protocol: ask the Parking
// Manager for a matching zone, then ask that zone for a spot, and
// return once the zone's auction settles.
func (d *Driver) RequestParking(ctx context.Context, env *protocol.Environment, pricing *protocol.Pricing, lat, lon float64) (Result, error) {
	req := protocol.DriverRequest{Environment: env, Pricing: pricing, Lat: lat, Lon: lon}
	if err := d.Send(ctx, d.ParkingManagerEndpoint, req); err != nil {
		return Result{}, fmt.Errorf("driver: sending request to parking manager: %w", err)
	}

	routeEnv, err := d.awaitReply(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("driver: awaiting route reply: %w", err)
	}
	route, ok := routeEnv.Body.(protocol.RouteReply)
	if !ok {
		return Result{}, fmt.Errorf("driver: unexpected reply from parking manager: %T", routeEnv.Body)
	}
	if route.NoSpot {
		return Result{}, ErrNoSpotAvailable
	}

	if err := d.Send(ctx, route.Zone, protocol.ZoneRequest{}); err != nil {
		return Result{}, fmt.Errorf("driver: sending request to zone %s: %w", route.Zone, err)
	}

	assignEnv, err := d.awaitReply(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("driver: awaiting assignment: %w", err)
	}
	assignment, ok := assignEnv.Body.(protocol.Assignment)
	if !ok {
		return Result{}, fmt.Errorf("driver: unexpected reply from zone: %T", assignEnv.Body)
	}
	if assignment.SpotEndpoint.Empty() {
		return Result{}, ErrNoSpotAvailable
	}

	d.Logger.Info("assigned parking spot",
		zap.String("spot", assignment.SpotEndpoint.String()),
		zap.String("zone", assignEnv.From.String()),
	)

	return Result{
		SpotEndpoint: assignment.SpotEndpoint,
		ZoneEndpoint: assignEnv.From,
		PriceHour:    assignment.PriceHour,
		Environment:  assignment.Environment,
		Lat:          assignment.Lat,
		Lon:          assignment.Lon,
	}, nil
}

// awaitReply blocks for the driver's own response timeout (or ctx's
// cancellation, whichever comes first) waiting for exactly one envelope.
func (d *Driver) awaitReply(ctx context.Context) (bus.Envelope, error) {
	timeout := d.ResponseTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case env, ok := <-d.Inbox():
		if !ok {
			return bus.Envelope{}, fmt.Errorf("driver: mailbox closed")
		}
		return env, nil
	case <-timer.C:
		return bus.Envelope{}, ErrTimeout
	case <-ctx.Done():
		return bus.Envelope{}, ctx.Err()
	}
}
