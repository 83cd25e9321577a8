// Package zone implements the Zone Manager agent: it tracks the vacancy
// of the spots in its zone, runs an English ascending-price auction
// among them on a driver's request, and reports aggregate occupancy to
// the Parking Manager. Grounded on the original source's
// ParkingZoneManager (ListenBehaviour).
package zone

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/agent"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/bus"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/metrics"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/protocol"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/telemetry"
)

// Zone is one parking zone, coordinating the spots registered under it.
type Zone struct {
	*agent.Base

	ID                     string
	ParkingManagerEndpoint protocol.Endpoint
	Lat, Lon               float64
	PriceHour              float64
	Environment            protocol.Environment
	AuctionDeadline        time.Duration

	rand    *rand.Rand
	metrics *zoneMetrics

	mu        sync.Mutex
	spotOrder []protocol.Endpoint
	vacant    map[protocol.Endpoint]bool
	auction   *auctionState
}

// zoneMetrics are the domain-level Prometheus collectors a Zone reports
// on, as distinct from internal/bus's transport-level send/drop counters.
type zoneMetrics struct {
	vacantSpots     *prometheus.GaugeVec
	auctionDuration *prometheus.HistogramVec
	bidsReceived    *prometheus.CounterVec
}

func newZoneMetrics(reg *metrics.Registry) *zoneMetrics {
	return &zoneMetrics{
		vacantSpots: reg.Gauge("zone_vacant_spots", "Currently vacant spots in a zone", "zone"),
		auctionDuration: reg.Histogram("zone_auction_duration_seconds",
			"Time from AuctionStart to AuctionEnd", metrics.LatencyBuckets, "zone"),
		bidsReceived: reg.Counter("zone_bids_received_total", "Bids received by a zone's auction", "zone"),
	}
}

// New builds a Zone. source seeds the opening-bid randomness. reg may be
// nil, in which case the process-default metrics registry is used.
func New(base *agent.Base, id string, parkingManager protocol.Endpoint, lat, lon, priceHour float64, env protocol.Environment, auctionDeadline time.Duration, source rand.Source, reg *metrics.Registry) *Zone {
	if reg == nil {
		reg = metrics.Default()
	}
	return &Zone{
		Base:                   base,
		ID:                     id,
		ParkingManagerEndpoint: parkingManager,
		Lat:                    lat,
		Lon:                    lon,
		PriceHour:              priceHour,
		Environment:            env,
		AuctionDeadline:        auctionDeadline,
		rand:                   rand.New(source),
		metrics:                newZoneMetrics(reg),
		vacant:                 make(map[protocol.Endpoint]bool),
	}
}

// Start launches the zone's receive loop.
func (z *Zone) Start(ctx context.Context) error {
	return z.Run(ctx, z.loop)
}

func (z *Zone) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	syncTimer := func() {
		z.mu.Lock()
		active := z.auction != nil
		var deadline time.Time
		if active {
			deadline = z.auction.deadline
		}
		z.mu.Unlock()

		switch {
		case active && timer == nil:
			timer = time.NewTimer(time.Until(deadline))
			timerC = timer.C
		case !active && timer != nil:
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-z.Inbox():
			if !ok {
				return
			}
			z.handle(ctx, env)
		case <-timerC:
			timer = nil
			timerC = nil
			z.endAuction(ctx)
		}
		syncTimer()
	}
}

func (z *Zone) handle(ctx context.Context, env bus.Envelope) {
	switch msg := env.Body.(type) {
	case protocol.ZoneRequest:
		z.handleZoneRequest(ctx, env.From)
	case protocol.Bid:
		z.handleBid(ctx, env.From, msg)
	case protocol.Poor:
		z.handlePoor(ctx, env.From)
	case protocol.StatusUpdate:
		z.handleStatusUpdate(ctx, env.From, msg)
	default:
		z.Logger.Warn("zone received unexpected message", zap.Any("body", env.Body))
	}
}

// handleZoneRequest opens an auction for a driver, or does nothing if no
// spot in the zone is currently vacant. A request arriving while an
// auction is already running is silently dropped, as is a second
// Request from the same driver racing the first.
func (z *Zone) handleZoneRequest(ctx context.Context, driver protocol.Endpoint) {
	z.mu.Lock()
	if z.auction != nil {
		z.mu.Unlock()
		return
	}
	vacantSpots := z.vacantSpotsLocked()
	if len(vacantSpots) == 0 {
		z.mu.Unlock()
		return
	}
	initialBid := initialBidMin + z.rand.Intn(initialBidMax-initialBidMin)
	z.auction = &auctionState{
		id:          uuid.New().String(),
		driver:      driver,
		deadline:    time.Now().Add(z.AuctionDeadline),
		startedAt:   time.Now(),
		bidderCount: len(vacantSpots),
	}
	auctionID := z.auction.id
	z.mu.Unlock()

	z.Logger.Info("auction opened",
		zap.String("auction_id", auctionID),
		zap.String("driver", driver.String()),
		zap.Int("initial_bid", initialBid),
	)
	if err := z.Broadcast(ctx, vacantSpots, protocol.AuctionStart{InitialBid: initialBid}); err != nil {
		z.Logger.Warn("failed to broadcast auction start", zap.Error(err))
	}
}

// handleBid records a raise if it beats the current high bid and asks
// every vacant spot to raise again. Bids arriving outside an auction, or
// after the auction's deadline fires concurrently, are dropped.
func (z *Zone) handleBid(ctx context.Context, from protocol.Endpoint, msg protocol.Bid) {
	z.mu.Lock()
	if z.auction == nil {
		z.mu.Unlock()
		return
	}
	z.metrics.bidsReceived.WithLabelValues(z.ID).Inc()
	if msg.Amount <= z.auction.highBid {
		z.mu.Unlock()
		return
	}
	z.auction.highBid = msg.Amount
	z.auction.winner = from
	z.auction.winnerLat = msg.Lat
	z.auction.winnerLon = msg.Lon
	newBid := msg.Amount + 1
	vacantSpots := z.vacantSpotsLocked()
	z.mu.Unlock()

	if err := z.Broadcast(ctx, vacantSpots, protocol.BidRequest{NextBid: newBid}); err != nil {
		z.Logger.Warn("failed to broadcast bid request", zap.Error(err))
	}
}

// handlePoor counts a spot's withdrawal and ends the auction immediately
// once every vacant spot has withdrawn, rather than waiting out the
// deadline with no possible further bids.
func (z *Zone) handlePoor(ctx context.Context, from protocol.Endpoint) {
	z.mu.Lock()
	if z.auction == nil {
		z.mu.Unlock()
		return
	}
	z.auction.poors++
	done := z.auction.poors >= z.auction.bidderCount
	z.mu.Unlock()

	z.Logger.Debug("spot withdrew from auction", zap.String("spot", from.String()))
	if done {
		z.endAuction(ctx)
	}
}

func (z *Zone) endAuction(ctx context.Context) {
	z.mu.Lock()
	auction := z.auction
	if auction == nil {
		z.mu.Unlock()
		return
	}
	z.auction = nil
	vacantSpots := z.vacantSpotsLocked()
	z.mu.Unlock()

	z.metrics.auctionDuration.WithLabelValues(z.ID).Observe(time.Since(auction.startedAt).Seconds())

	if err := z.Broadcast(ctx, vacantSpots, protocol.AuctionEnd{WinnerBid: auction.highBid, Winner: auction.winner}); err != nil {
		z.Logger.Warn("failed to broadcast auction end", zap.Error(err))
	}

	assignment := protocol.Assignment{
		SpotEndpoint: auction.winner,
		PriceHour:    z.PriceHour,
		Environment:  z.Environment,
		Lat:          auction.winnerLat,
		Lon:          auction.winnerLon,
	}
	if err := z.Send(ctx, auction.driver, assignment); err != nil {
		z.Logger.Warn("failed to send assignment to driver", zap.Error(err))
	}

	z.Logger.Info("auction closed",
		zap.String("auction_id", auction.id),
		zap.String("winner", auction.winner.String()),
		zap.Int("winning_bid", auction.highBid),
	)
	z.Sink.Record(telemetry.Event{
		Kind:   "zone.auction_ended",
		Source: z.Endpoint.String(),
		At:     time.Now(),
		Fields: map[string]interface{}{"auction_id": auction.id, "winner": auction.winner.String(), "winning_bid": auction.highBid},
	})
}

// handleStatusUpdate folds a spot's vacancy report into the zone's
// occupancy map, reports the new summary to the Parking Manager, and
// publishes the zone's two continuous telemetry topics: the display
// value (vacant count) unconditionally, and the parked topic on every
// Occupied transition ("1") or departure ("0 <duration*price_hour>"),
// mirroring ParkingZoneManager.py's unconditional send_display() and
// its send_price() calls in InformBehaviour.
func (z *Zone) handleStatusUpdate(ctx context.Context, from protocol.Endpoint, msg protocol.StatusUpdate) {
	z.mu.Lock()
	if _, known := z.vacant[from]; !known {
		z.spotOrder = append(z.spotOrder, from)
	}
	z.vacant[from] = msg.Vacant
	vacantCount := 0
	for _, v := range z.vacant {
		if v {
			vacantCount++
		}
	}
	priceHour := z.PriceHour
	z.mu.Unlock()

	z.metrics.vacantSpots.WithLabelValues(z.ID).Set(float64(vacantCount))

	summary := protocol.ZoneSummary{
		VacantCount: vacantCount,
		Lat:         z.Lat,
		Lon:         z.Lon,
		PriceHour:   priceHour,
		Environment: z.Environment,
	}
	if err := z.Send(ctx, z.ParkingManagerEndpoint, summary); err != nil {
		z.Logger.Warn("failed to send zone summary", zap.Error(err))
	}

	z.Sink.PublishDisplayValue(z.ID, vacantCount)

	switch {
	case !msg.Vacant:
		z.Sink.PublishParked(from.String(), "1")
	case msg.HasDuration:
		z.Sink.PublishParked(from.String(), fmt.Sprintf("0 %g", msg.DurationMinutes*priceHour))
	}
}

// vacantSpotsLocked returns the endpoints of every currently-vacant spot
// in deterministic order. Callers must hold z.mu.
func (z *Zone) vacantSpotsLocked() []protocol.Endpoint {
	var out []protocol.Endpoint
	for _, s := range z.spotOrder {
		if z.vacant[s] {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
