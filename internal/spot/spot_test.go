package spot

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/agent"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/bus"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/protocol"
)

func newTestSpot(t *testing.T, b *bus.Bus, endpoint, manager protocol.Endpoint, seed int64) *Spot {
	t.Helper()
	base := agent.NewBase(endpoint, b, nil, nil)
	return New(base, manager, 1.0, 2.0, 0, rand.NewSource(seed), nil)
}

func TestReportSonarVacantToOccupiedTransition(t *testing.T) {
	b := bus.New(nil, nil)
	mailbox := b.Register("zoneA")
	s := newTestSpot(t, b, "spotA", "zoneA", 1)
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, s.ReportSonar(ctx, 5)) // occupied: sonar below threshold
	env := recv(t, mailbox)
	assert.Equal(t, protocol.StatusUpdate{Vacant: false}, env.Body)

	require.NoError(t, s.ReportSonar(ctx, 100)) // vacant again
	env = recv(t, mailbox)
	status := env.Body.(protocol.StatusUpdate)
	assert.True(t, status.Vacant)
	assert.True(t, status.HasDuration)
}

func TestReportSonarNoChangeStaysVacantWithoutDuration(t *testing.T) {
	b := bus.New(nil, nil)
	mailbox := b.Register("zoneA")
	s := newTestSpot(t, b, "spotA", "zoneA", 1)
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, s.ReportSonar(ctx, 100))
	env := recv(t, mailbox)
	assert.Equal(t, protocol.StatusUpdate{Vacant: true}, env.Body)
}

func TestHandleAuctionStartBidsWhenWillingToPay(t *testing.T) {
	b := bus.New(nil, nil)
	mailbox := b.Register("zoneA")
	s := newTestSpot(t, b, "spotA", "zoneA", 42)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.NoError(t, b.Send(context.Background(), "zoneA", s.Endpoint, protocol.AuctionStart{InitialBid: 1}))

	env := recv(t, mailbox)
	bid, ok := env.Body.(protocol.Bid)
	require.True(t, ok)
	assert.Equal(t, 1, bid.Amount)
}

func TestHandleAuctionEndDeductsCashOnlyForWinner(t *testing.T) {
	b := bus.New(nil, nil)
	b.Register("zoneA")
	s := newTestSpot(t, b, "spotA", "zoneA", 7)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	s.mu.Lock()
	before := s.cash
	s.mu.Unlock()

	require.NoError(t, s.Send(context.Background(), "spotA", protocol.AuctionEnd{WinnerBid: 15, Winner: "spotB"}))
	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	afterLoss := s.cash
	s.mu.Unlock()
	assert.Equal(t, before, afterLoss)

	require.NoError(t, s.Send(context.Background(), "spotA", protocol.AuctionEnd{WinnerBid: 15, Winner: "spotA"}))
	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	after := s.cash
	s.mu.Unlock()
	assert.Equal(t, before-15, after)
}

// TestBidsStayWithinCashAndValuationAndCashNeverGoesNegative drives a
// spot through an escalating auction across several seeds and asserts
// every bid it sends satisfies bid <= private valuation <= cash-before,
// and that cash never drops below zero once an auction is won.
func TestBidsStayWithinCashAndValuationAndCashNeverGoesNegative(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		b := bus.New(nil, nil)
		mailbox := b.Register("zoneA")
		s := newTestSpot(t, b, "spotA", "zoneA", seed)
		require.NoError(t, s.Start(context.Background()))

		s.mu.Lock()
		cashBefore := s.cash
		s.mu.Unlock()
		require.GreaterOrEqual(t, cashBefore, cashMin)
		require.Less(t, cashBefore, cashMax)

		require.NoError(t, b.Send(context.Background(), "zoneA", s.Endpoint, protocol.AuctionStart{InitialBid: 12}))

		lastBid := 0
		nextBid := 12
	escalate:
		for i := 0; i < 5; i++ {
			env := recv(t, mailbox)
			switch msg := env.Body.(type) {
			case protocol.Bid:
				s.mu.Lock()
				privateValue := s.privateValue
				s.mu.Unlock()
				assert.LessOrEqual(t, msg.Amount, privateValue, "seed %d: bid must not exceed private valuation", seed)
				assert.LessOrEqual(t, msg.Amount, cashBefore, "seed %d: bid must not exceed starting cash", seed)
				lastBid = msg.Amount
				nextBid = msg.Amount + 1
				require.NoError(t, b.Send(context.Background(), "zoneA", s.Endpoint, protocol.BidRequest{NextBid: nextBid}))
			case protocol.Poor:
				break escalate // the spot has withdrawn from this round
			default:
				t.Fatalf("seed %d: unexpected message %T", seed, env.Body)
			}
		}

		if lastBid > 0 {
			require.NoError(t, s.Send(context.Background(), "spotA", protocol.AuctionEnd{WinnerBid: lastBid, Winner: "spotA"}))
			time.Sleep(10 * time.Millisecond)

			s.mu.Lock()
			cashAfter := s.cash
			s.mu.Unlock()
			assert.GreaterOrEqual(t, cashAfter, 0, "seed %d: cash must never go negative", seed)
			assert.Equal(t, cashBefore-lastBid, cashAfter)
		}

		s.Stop()
	}
}

func recv(t *testing.T, ch <-chan bus.Envelope) bus.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return bus.Envelope{}
	}
}
