package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/telemetry"
)

func TestWalkthroughAssignsVacantSpot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := Default()
	cfg.AuctionDeadline = 300 * time.Millisecond
	cfg.BidPace = 10 * time.Millisecond

	sys, err := Start(ctx, nil, nil, cfg)
	require.NoError(t, err)
	defer sys.Stop()

	result, err := sys.RunWalkthrough(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ps1", result.SpotEndpoint.String())
	assert.Equal(t, "pz1", result.ZoneEndpoint.String())
}

// TestWalkthroughPublishesDisplayValueAndParkedEvents asserts the
// telemetry events the walkthrough's sonar reports must produce: a
// display_value tick for every zone status update, and a parked event
// for ps2's Occupied transition (ReportSonar(15) in RunWalkthrough).
func TestWalkthroughPublishesDisplayValueAndParkedEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := Default()
	cfg.AuctionDeadline = 300 * time.Millisecond
	cfg.BidPace = 10 * time.Millisecond

	recorder := telemetry.NewRecorder()
	sys, err := Start(ctx, nil, recorder, cfg)
	require.NoError(t, err)
	defer sys.Stop()

	_, err = sys.RunWalkthrough(ctx)
	require.NoError(t, err)

	var sawDisplayValue, sawOccupiedParked bool
	for _, e := range recorder.Events() {
		switch e.Kind {
		case "display_value":
			sawDisplayValue = true
		case "parked":
			if e.Source == "ps2" && e.Fields["value"] == "1" {
				sawOccupiedParked = true
			}
		}
	}
	assert.True(t, sawDisplayValue, "expected at least one display_value event")
	assert.True(t, sawOccupiedParked, "expected ps2's Occupied transition to publish parked=1")
}
