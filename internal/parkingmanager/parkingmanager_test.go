package parkingmanager

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

func newTestManager(t *testing.T, b *bus.Bus) *ParkingManager {
	t.Helper()
	base := agent.NewBase("parkingmanager", b, nil, nil)
	return New(base)
}

func TestNoSpotAvailableWhenRegistryEmpty(t *testing.T) {
	b := bus.New(nil, nil)
	driverMailbox := b.Register("driver1")
	p := newTestManager(t, b)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	require.NoError(t, b.Send(context.Background(), "driver1", p.Endpoint, protocol.DriverRequest{Lat: 1, Lon: 1}))
	env := recvFrom(t, driverMailbox)
	reply, ok := env.Body.(protocol.RouteReply)
	require.True(t, ok)
	assert.True(t, reply.NoSpot)
}

func TestRoutesToClosestVacantZone(t *testing.T) {
	b := bus.New(nil, nil)
	driverMailbox := b.Register("driver1")
	p := newTestManager(t, b)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	far := protocol.ZoneSummary{VacantCount: 2, Lat: 50, Lon: 50, PriceHour: 1, Environment: protocol.EnvOutdoor}
	near := protocol.ZoneSummary{VacantCount: 2, Lat: 1.001, Lon: 1.001, PriceHour: 1, Environment: protocol.EnvOutdoor}
	require.NoError(t, b.Send(context.Background(), "zoneFar", p.Endpoint, far))
	require.NoError(t, b.Send(context.Background(), "zoneNear", p.Endpoint, near))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, b.Send(context.Background(), "driver1", p.Endpoint, protocol.DriverRequest{Lat: 1, Lon: 1}))
	env := recvFrom(t, driverMailbox)
	reply, ok := env.Body.(protocol.RouteReply)
	require.True(t, ok)
	assert.Equal(t, protocol.Endpoint("zoneNear"), reply.Zone)
}

func TestZeroVacancyZoneIsNeverMatched(t *testing.T) {
	b := bus.New(nil, nil)
	driverMailbox := b.Register("driver1")
	p := newTestManager(t, b)
	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	full := protocol.ZoneSummary{VacantCount: 0, Lat: 1, Lon: 1, PriceHour: 1, Environment: protocol.EnvOutdoor}
	require.NoError(t, b.Send(context.Background(), "zoneFull", p.Endpoint, full))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, b.Send(context.Background(), "driver1", p.Endpoint, protocol.DriverRequest{Lat: 1, Lon: 1}))
	env := recvFrom(t, driverMailbox)
	reply, ok := env.Body.(protocol.RouteReply)
	require.True(t, ok)
	assert.True(t, reply.NoSpot)
}

func recvFrom(t *testing.T, ch <-chan bus.Envelope) bus.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return bus.Envelope{}
	}
}
