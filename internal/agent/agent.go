// Package agent provides the common scaffolding every role in the
// system builds on: an addressable mailbox, a logger, a telemetry sink,
// and start/stop bookkeeping — grounded on the teacher stack's BaseAgent
// (libs/agentsdk/agent.go), adapted from a networked multi-tenant agent
// to a single in-process goroutine per role communicating over
// internal/bus.
package agent

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/bus"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/protocol"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/telemetry"
)

// Base is embedded by every concrete agent type (spot, zone, parking
// manager, driver) to give it an endpoint, a mailbox, and lifecycle
// bookkeeping, the way BaseAgent anchors identity/logging/messageBus for
// every agent kind in the teacher stack.
type Base struct {
	Endpoint protocol.Endpoint
	Bus      *bus.Bus
	Logger   *zap.Logger
	Sink     telemetry.Sink

	inbox <-chan bus.Envelope

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewBase registers endpoint with b and returns a Base ready to embed.
// logger and sink may be nil; a no-op logger and an in-memory
// telemetry.Recorder are used respectively.
func NewBase(endpoint protocol.Endpoint, b *bus.Bus, logger *zap.Logger, sink telemetry.Sink) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = telemetry.NewRecorder()
	}
	return &Base{
		Endpoint: endpoint,
		Bus:      b,
		Logger:   logger.With(zap.String("endpoint", endpoint.String())),
		Sink:     sink,
		inbox:    b.Register(endpoint),
	}
}

// Inbox returns the channel of incoming envelopes.
func (b *Base) Inbox() <-chan bus.Envelope {
	return b.inbox
}

// Send delivers body to "to" from this agent's endpoint.
func (b *Base) Send(ctx context.Context, to protocol.Endpoint, body protocol.Body) error {
	return b.Bus.Send(ctx, b.Endpoint, to, body)
}

// Broadcast delivers body to every endpoint in "to" from this agent's
// endpoint.
func (b *Base) Broadcast(ctx context.Context, to []protocol.Endpoint, body protocol.Body) error {
	return b.Bus.Broadcast(ctx, b.Endpoint, to, body)
}

// Run launches loop in its own goroutine, passing it a context cancelled
// by Stop. Run may only be called once per Base.
func (b *Base) Run(ctx context.Context, loop func(context.Context)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return fmt.Errorf("agent %s: already running", b.Endpoint)
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.running = true

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		loop(runCtx)
	}()
	return nil
}

// Stop cancels the running loop, waits for it to return, and tears down
// the mailbox.
func (b *Base) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.cancel()
	b.running = false
	b.mu.Unlock()

	b.wg.Wait()
	b.Bus.Unregister(b.Endpoint)
}
