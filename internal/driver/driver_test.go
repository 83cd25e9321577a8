package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/agent"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/bus"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/protocol"
)

func newTestDriver(t *testing.T, b *bus.Bus) *Driver {
	t.Helper()
	base := agent.NewBase("driver1", b, nil, nil)
	return New(base, "parkingmanager", time.Second)
}

func TestRequestParkingNoSpotAvailable(t *testing.T) {
	b := bus.New(nil, nil)
	pmMailbox := b.Register("parkingmanager")
	d := newTestDriver(t, b)

	go func() {
		env := <-pmMailbox
		_ = env
		_ = b.Send(context.Background(), "parkingmanager", "driver1", protocol.RouteReply{NoSpot: true})
	}()

	_, err := d.RequestParking(context.Background(), nil, nil, 1, 1)
	assert.ErrorIs(t, err, ErrNoSpotAvailable)
}

func TestRequestParkingFullRoundTrip(t *testing.T) {
	b := bus.New(nil, nil)
	pmMailbox := b.Register("parkingmanager")
	zoneMailbox := b.Register("zoneA")
	d := newTestDriver(t, b)

	go func() {
		<-pmMailbox
		require.NoError(t, b.Send(context.Background(), "parkingmanager", "driver1", protocol.RouteReply{Zone: "zoneA"}))
		<-zoneMailbox
		require.NoError(t, b.Send(context.Background(), "zoneA", "driver1", protocol.Assignment{
			SpotEndpoint: "spot7",
			PriceHour:    1.5,
			Environment:  protocol.EnvOutdoor,
			Lat:          1, Lon: 1,
		}))
	}()

	result, err := d.RequestParking(context.Background(), nil, nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, protocol.Endpoint("spot7"), result.SpotEndpoint)
	assert.Equal(t, protocol.Endpoint("zoneA"), result.ZoneEndpoint)
}

func TestRequestParkingTimesOutWithNoReply(t *testing.T) {
	b := bus.New(nil, nil)
	b.Register("parkingmanager")
	d := newTestDriver(t, b)
	d.ResponseTimeout = 30 * time.Millisecond

	_, err := d.RequestParking(context.Background(), nil, nil, 1, 1)
	assert.ErrorIs(t, err, ErrTimeout)
}

// TestRequestParkingMalformedReplyFromParkingManager covers a Parking
// Manager reply of the wrong message type: the driver must surface an
// error naming the unexpected type rather than panicking on a failed
// type assertion.
func TestRequestParkingMalformedReplyFromParkingManager(t *testing.T) {
	b := bus.New(nil, nil)
	pmMailbox := b.Register("parkingmanager")
	d := newTestDriver(t, b)

	go func() {
		<-pmMailbox
		require.NoError(t, b.Send(context.Background(), "parkingmanager", "driver1", protocol.ZoneRequest{}))
	}()

	_, err := d.RequestParking(context.Background(), nil, nil, 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected reply from parking manager")
}

// TestRequestParkingMalformedReplyFromZone covers a zone reply of the
// wrong message type once the Parking Manager has already routed the
// driver.
func TestRequestParkingMalformedReplyFromZone(t *testing.T) {
	b := bus.New(nil, nil)
	pmMailbox := b.Register("parkingmanager")
	zoneMailbox := b.Register("zoneA")
	d := newTestDriver(t, b)

	go func() {
		<-pmMailbox
		require.NoError(t, b.Send(context.Background(), "parkingmanager", "driver1", protocol.RouteReply{Zone: "zoneA"}))
		<-zoneMailbox
		require.NoError(t, b.Send(context.Background(), "zoneA", "driver1", protocol.ZoneRequest{}))
	}()

	_, err := d.RequestParking(context.Background(), nil, nil, 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected reply from zone")
}
