// Package spot implements the Spot agent: a physical parking space that
// reports occupancy to its zone manager and bids in that zone's
// ascending-price auctions, grounded on the original source's
// ParkingSpotModule (InformBehaviour + BidBehaviour).
package spot

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/agent"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/metrics"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/protocol"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/telemetry"
)

// cashMin/cashMax bound a spot's starting budget, randrange(100, 200) in
// the original source.
const (
	cashMin = 100
	cashMax = 200
)

// privateValueMin/Max bound a spot's willingness to pay for a given
// auction round, randrange(30, 45) in the original source.
const (
	privateValueMin = 30
	privateValueMax = 45
)

// bidStepMin/Max bound how much a spot raises its own bid when asked,
// randrange(1, 5) in the original source.
const (
	bidStepMin = 1
	bidStepMax = 5
)

// Spot is one physical parking space.
type Spot struct {
	*agent.Base

	ManagerEndpoint protocol.Endpoint
	Lat, Lon        float64
	BidPace         time.Duration

	rand    *rand.Rand
	metrics *spotMetrics

	mu           sync.Mutex
	cash         int
	privateValue int
	hasBid       bool
	vacant       bool
	timeArrived  *time.Time
}

// spotMetrics are the domain-level Prometheus collectors a Spot reports
// on, as distinct from internal/bus's transport-level send/drop counters.
type spotMetrics struct {
	cash *prometheus.GaugeVec
}

func newSpotMetrics(reg *metrics.Registry) *spotMetrics {
	return &spotMetrics{
		cash: reg.Gauge("spot_cash", "A spot's remaining auction budget", "spot"),
	}
}

// New builds a Spot at (lat, lon) reporting to managerEndpoint. source
// seeds the spot's randomness (cash, private value, bid step) so
// scenarios are reproducible; pass rand.NewSource(time.Now().UnixNano())
// for non-deterministic runs. reg may be nil, in which case the
// process-default metrics registry is used.
func New(base *agent.Base, managerEndpoint protocol.Endpoint, lat, lon float64, bidPace time.Duration, source rand.Source, reg *metrics.Registry) *Spot {
	if reg == nil {
		reg = metrics.Default()
	}
	r := rand.New(source)
	cash := cashMin + r.Intn(cashMax-cashMin)
	s := &Spot{
		Base:            base,
		ManagerEndpoint: managerEndpoint,
		Lat:             lat,
		Lon:             lon,
		BidPace:         bidPace,
		rand:            r,
		metrics:         newSpotMetrics(reg),
		cash:            cash,
		vacant:          true,
	}
	s.metrics.cash.WithLabelValues(base.Endpoint.String()).Set(float64(cash))
	return s
}

// Start launches the spot's receive loop.
func (s *Spot) Start(ctx context.Context) error {
	return s.Run(ctx, s.loop)
}

func (s *Spot) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-s.Inbox():
			if !ok {
				return
			}
			s.handle(ctx, env.Body)
		}
	}
}

func (s *Spot) handle(ctx context.Context, body protocol.Body) {
	switch msg := body.(type) {
	case protocol.AuctionStart:
		s.handleAuctionStart(ctx, msg)
	case protocol.BidRequest:
		s.handleBidRequest(ctx, msg)
	case protocol.AuctionEnd:
		s.handleAuctionEnd(msg)
	default:
		s.Logger.Warn("spot received unexpected message", zap.String("type", fmt.Sprintf("%T", body)))
	}
}

func (s *Spot) handleAuctionStart(ctx context.Context, msg protocol.AuctionStart) {
	s.mu.Lock()
	privateValue := privateValueMin + s.rand.Intn(privateValueMax-privateValueMin)
	if privateValue > s.cash {
		privateValue = s.cash
	}
	s.privateValue = privateValue
	s.hasBid = privateValue > msg.InitialBid
	lat, lon := s.Lat, s.Lon
	s.mu.Unlock()

	if !s.hasBid {
		return
	}
	if err := s.Send(ctx, s.ManagerEndpoint, protocol.Bid{Amount: msg.InitialBid, Lat: lat, Lon: lon}); err != nil {
		s.Logger.Warn("failed to send initial bid", zap.Error(err))
	}
}

func (s *Spot) handleBidRequest(ctx context.Context, msg protocol.BidRequest) {
	s.mu.Lock()
	step := bidStepMin + s.rand.Intn(bidStepMax-bidStepMin)
	newBid := msg.NextBid + step
	canAfford := s.cash >= newBid && newBid <= s.privateValue
	lat, lon := s.Lat, s.Lon
	s.mu.Unlock()

	if !canAfford {
		if err := s.Send(ctx, s.ManagerEndpoint, protocol.Poor{}); err != nil {
			s.Logger.Warn("failed to send poor notice", zap.Error(err))
		}
		return
	}

	if !sleepCancellable(ctx, s.BidPace) {
		return
	}
	if err := s.Send(ctx, s.ManagerEndpoint, protocol.Bid{Amount: newBid, Lat: lat, Lon: lon}); err != nil {
		s.Logger.Warn("failed to send raised bid", zap.Error(err))
	}
}

func (s *Spot) handleAuctionEnd(msg protocol.AuctionEnd) {
	if msg.Winner != s.Endpoint {
		return
	}
	s.mu.Lock()
	s.cash -= msg.WinnerBid
	cash := s.cash
	s.mu.Unlock()

	s.metrics.cash.WithLabelValues(s.Endpoint.String()).Set(float64(cash))

	s.Sink.Record(telemetry.Event{
		Kind:   "spot.auction_won",
		Source: s.Endpoint.String(),
		At:     time.Now(),
		Fields: map[string]interface{}{"winner_bid": msg.WinnerBid, "remaining_cash": cash},
	})
	s.Logger.Info("won auction", zap.Int("bid", msg.WinnerBid), zap.Int("remaining_cash", cash))
}

// ReportSonar translates a raw ultrasonic reading (centimeters) into a
// vacancy report sent to the zone manager, mirroring InformBehaviour: a
// transition from occupied to vacant includes the parked duration when
// an arrival time was recorded.
func (s *Spot) ReportSonar(ctx context.Context, sonarCM int) error {
	vacantNow := sonarCM > protocol.OccupiedThresholdCM

	s.mu.Lock()
	var status protocol.StatusUpdate
	changed := s.vacant != vacantNow
	if vacantNow {
		if changed && s.timeArrived != nil {
			duration := time.Since(*s.timeArrived)
			s.timeArrived = nil
			status = protocol.StatusUpdate{Vacant: true, HasDuration: true, DurationMinutes: duration.Minutes()}
		} else {
			status = protocol.StatusUpdate{Vacant: true}
		}
	} else {
		if changed {
			now := time.Now()
			s.timeArrived = &now
		}
		status = protocol.StatusUpdate{Vacant: false}
	}
	s.vacant = vacantNow
	s.mu.Unlock()

	return s.Send(ctx, s.ManagerEndpoint, status)
}

// sleepCancellable waits for d or ctx cancellation, whichever comes
// first, reporting whether the full delay elapsed. Using a timer here
// instead of time.Sleep keeps the spot's goroutine responsive to Stop.
func sleepCancellable(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
