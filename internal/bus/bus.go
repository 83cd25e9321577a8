// Package bus is the in-process transport agents use to exchange
// protocol.Body messages, grounded on the teacher stack's MessageBus
// interface (libs/agentsdk/agent.go) but specialised to a single process:
// each registered endpoint gets a buffered mailbox channel instead of a
// network hop. Per-sender ordering falls out of Go channel semantics —
// a single sender's successive Send calls to the same recipient are
// delivered in order — but the bus makes no promise about interleaving
// between different senders, matching the per-sender FIFO the agents
// are built against.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/metrics"
	"github.com/hparreao/multiagentsystem-parkingmanagement/internal/protocol"
)

// mailboxCapacity bounds how many undelivered envelopes a recipient may
// accumulate before Send blocks or errors out.
const mailboxCapacity = 64

// Envelope is one delivered message: who sent it, and its typed payload.
type Envelope struct {
	From protocol.Endpoint
	To   protocol.Endpoint
	Body protocol.Body
	Sent time.Time
}

// ErrUnknownRecipient is returned when Send or Broadcast targets an
// endpoint that never registered a mailbox.
var ErrUnknownRecipient = fmt.Errorf("bus: unknown recipient")

// ErrMailboxFull is returned when a recipient's mailbox is saturated and
// the context is cancelled before room opens up.
var ErrMailboxFull = fmt.Errorf("bus: mailbox full")

// Bus routes Envelopes between registered endpoints by buffered channel.
type Bus struct {
	logger  *zap.Logger
	metrics *busMetrics

	mu        sync.RWMutex
	mailboxes map[protocol.Endpoint]chan Envelope
}

type busMetrics struct {
	sent      *prometheus.CounterVec
	delivered *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	queueSize *prometheus.GaugeVec
}

// New creates a Bus. logger and reg may be nil, in which case a no-op
// logger and the process-default metrics registry are used.
func New(logger *zap.Logger, reg *metrics.Registry) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = metrics.Default()
	}
	return &Bus{
		logger:    logger,
		mailboxes: make(map[protocol.Endpoint]chan Envelope),
		metrics: &busMetrics{
			sent:      reg.Counter("bus_messages_sent_total", "Messages handed to the bus", "from"),
			delivered: reg.Counter("bus_messages_delivered_total", "Messages placed in a recipient mailbox", "to"),
			dropped:   reg.Counter("bus_messages_dropped_total", "Messages that could not be delivered", "reason"),
			queueSize: reg.Gauge("bus_mailbox_depth", "Current mailbox depth", "endpoint"),
		},
	}
}

// Register creates a mailbox for endpoint and returns the receive-only
// channel an agent should range over. Registering the same endpoint twice
// replaces its mailbox.
func (b *Bus) Register(endpoint protocol.Endpoint) <-chan Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	mailbox := make(chan Envelope, mailboxCapacity)
	b.mailboxes[endpoint] = mailbox
	b.logger.Debug("endpoint registered", zap.String("endpoint", endpoint.String()))
	return mailbox
}

// Unregister closes and removes endpoint's mailbox. Safe to call on an
// endpoint that was never registered.
func (b *Bus) Unregister(endpoint protocol.Endpoint) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if mailbox, ok := b.mailboxes[endpoint]; ok {
		close(mailbox)
		delete(b.mailboxes, endpoint)
		b.logger.Debug("endpoint unregistered", zap.String("endpoint", endpoint.String()))
	}
}

// Send delivers body from "from" to "to". It blocks only until either the
// mailbox accepts the message or ctx is done, so a slow or stuck
// recipient cannot wedge the sender forever.
func (b *Bus) Send(ctx context.Context, from, to protocol.Endpoint, body protocol.Body) error {
	b.metrics.sent.WithLabelValues(from.String()).Inc()

	b.mu.RLock()
	mailbox, ok := b.mailboxes[to]
	b.mu.RUnlock()
	if !ok {
		b.metrics.dropped.WithLabelValues("unknown_recipient").Inc()
		return fmt.Errorf("%w: %s", ErrUnknownRecipient, to)
	}

	env := Envelope{From: from, To: to, Body: body, Sent: time.Now()}
	select {
	case mailbox <- env:
		b.metrics.delivered.WithLabelValues(to.String()).Inc()
		b.metrics.queueSize.WithLabelValues(to.String()).Set(float64(len(mailbox)))
		return nil
	case <-ctx.Done():
		b.metrics.dropped.WithLabelValues("context_done").Inc()
		return fmt.Errorf("%w: %s: %v", ErrMailboxFull, to, ctx.Err())
	}
}

// Broadcast sends body from "from" to every endpoint in "to", aggregating
// any per-recipient failures with multierr so one unreachable recipient
// does not stop delivery to the rest.
func (b *Bus) Broadcast(ctx context.Context, from protocol.Endpoint, to []protocol.Endpoint, body protocol.Body) error {
	var errs error
	for _, recipient := range to {
		if err := b.Send(ctx, from, recipient, body); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Registered reports whether endpoint currently has a mailbox.
func (b *Bus) Registered(endpoint protocol.Endpoint) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.mailboxes[endpoint]
	return ok
}
