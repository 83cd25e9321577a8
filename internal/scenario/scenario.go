// Package scenario wires a small, fixed topology of agents together for
// demonstration and integration testing, reproducing the original
// source's example.py walkthrough: one parking manager, two zones, one
// spot per zone whose sensor readings are reported first, and a driver
// that then requests a spot.
package scenario

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/agent"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/bus"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/driver"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/parkingmanager"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/protocol"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/spot"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/telemetry"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/zone"
)

// Config controls the timing knobs exposed to scenario callers, mirrored
// from internal/config so this package does not need to import it back.
type Config struct {
	AuctionDeadline time.Duration
	BidPace         time.Duration
}

// Default mirrors the timing used by the original source: a 2-second
// auction deadline and roughly human-paced bidding.
func Default() Config {
	return Config{AuctionDeadline: 2 * time.Second, BidPace: 500 * time.Millisecond}
}

// System is a fully wired, running instance of the default demo
// topology: one parking manager, two zones ("pz1" Outdoor, "pz2"
// Indoor), one spot per zone ("ps1", "ps2"), and one driver ("d1").
type System struct {
	Bus            *bus.Bus
	ParkingManager *parkingmanager.ParkingManager
	Zones          map[protocol.Endpoint]*zone.Zone
	Spots          map[protocol.Endpoint]*spot.Spot
	Driver         *driver.Driver

	cancel context.CancelFunc
}

// Start builds and starts every agent in the demo topology, geographic
// coordinates and pricing taken from the original example.py
// walkthrough (Porto city-center coordinates).
func Start(ctx context.Context, logger *zap.Logger, sink telemetry.Sink, cfg Config) (*System, error) {
	runCtx, cancel := context.WithCancel(ctx)
	b := bus.New(logger, nil)

	pm := parkingmanager.New(agent.NewBase("pm1", b, logger, sink))
	if err := pm.Start(runCtx); err != nil {
		cancel()
		return nil, err
	}

	pz1 := zone.New(agent.NewBase("pz1", b, logger, sink), "pz1", pm.Endpoint,
		41.1776, -8.6077, 2.5, protocol.EnvOutdoor, cfg.AuctionDeadline, rand.NewSource(1), nil)
	pz2 := zone.New(agent.NewBase("pz2", b, logger, sink), "pz2", pm.Endpoint,
		41.1782, -8.6076, 3.0, protocol.EnvIndoor, cfg.AuctionDeadline, rand.NewSource(2), nil)
	for _, z := range []*zone.Zone{pz1, pz2} {
		if err := z.Start(runCtx); err != nil {
			cancel()
			return nil, err
		}
	}

	ps1 := spot.New(agent.NewBase("ps1", b, logger, sink), pz1.Endpoint, 41.1776, -8.6077, cfg.BidPace, rand.NewSource(3), nil)
	ps2 := spot.New(agent.NewBase("ps2", b, logger, sink), pz2.Endpoint, 41.1782, -8.6076, cfg.BidPace, rand.NewSource(4), nil)
	for _, s := range []*spot.Spot{ps1, ps2} {
		if err := s.Start(runCtx); err != nil {
			cancel()
			return nil, err
		}
	}

	d1 := driver.New(agent.NewBase("d1", b, logger, sink), pm.Endpoint, 15*time.Second)

	return &System{
		Bus:            b,
		ParkingManager: pm,
		Zones:          map[protocol.Endpoint]*zone.Zone{"pz1": pz1, "pz2": pz2},
		Spots:          map[protocol.Endpoint]*spot.Spot{"ps1": ps1, "ps2": ps2},
		Driver:         d1,
		cancel:         cancel,
	}, nil
}

// Stop tears down every agent started by Start.
func (s *System) Stop() {
	s.Driver.Stop()
	for _, sp := range s.Spots {
		sp.Stop()
	}
	for _, z := range s.Zones {
		z.Stop()
	}
	s.ParkingManager.Stop()
	s.cancel()
}

// RunWalkthrough reproduces the original example.py demo: spot 1 reports
// vacant, spot 2 reports occupied, then the driver requests an Outdoor,
// Low-priced spot near pz1's coordinates.
func (s *System) RunWalkthrough(ctx context.Context) (driver.Result, error) {
	if err := s.Spots["ps1"].ReportSonar(ctx, 35); err != nil {
		return driver.Result{}, err
	}
	if err := s.Spots["ps2"].ReportSonar(ctx, 15); err != nil {
		return driver.Result{}, err
	}
	time.Sleep(50 * time.Millisecond) // let zone summaries reach the parking manager

	env := protocol.EnvOutdoor
	pricing := protocol.PricingLow
	return s.Driver.RequestParking(ctx, &env, &pricing, 41.1776, -8.6077)
}
