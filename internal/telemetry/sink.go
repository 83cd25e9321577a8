// Package telemetry is the best-effort event sink agents report to: spot
// occupancy changes, auction outcomes, assignment decisions. It never
// participates in the protocol — a sink failure is logged and discarded,
// never returned as an error to the caller, mirroring the teacher stack's
// treatment of its gossip metrics as fire-and-forget observability rather
// than part of the control path (libs/p2p/gossip.go).
package telemetry

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is one best-effort telemetry record.
type Event struct {
	Kind    string
	Source  string
	At      time.Time
	Fields  map[string]interface{}
}

// Sink accepts Events. Implementations must not block the caller for long
// and must never propagate an error back into agent logic.
//
// PublishDisplayValue and PublishParked name the two MQTT topics the
// original source publishes continuously (ParkingZoneManager.py's
// send_display/send_price): "<zone>_display_value" carries the zone's
// current vacant-spot count, and "parked" carries "1" on an Occupied
// transition or "0 <duration_minutes*price_hour>" on departure.
type Sink interface {
	Record(e Event)
	PublishDisplayValue(zoneID string, vacantCount int)
	PublishParked(source string, value string)
}

// LoggingSink writes every event to a zap.Logger at debug level.
type LoggingSink struct {
	logger *zap.Logger
}

// NewLoggingSink builds a Sink that logs events through logger.
func NewLoggingSink(logger *zap.Logger) *LoggingSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingSink{logger: logger}
}

func (s *LoggingSink) Record(e Event) {
	fields := make([]zap.Field, 0, len(e.Fields)+2)
	fields = append(fields, zap.String("source", e.Source), zap.Time("at", e.At))
	for k, v := range e.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	s.logger.Debug(e.Kind, fields...)
}

func (s *LoggingSink) PublishDisplayValue(zoneID string, vacantCount int) {
	s.Record(Event{
		Kind:   "display_value",
		Source: zoneID,
		At:     time.Now(),
		Fields: map[string]interface{}{"vacant_count": vacantCount},
	})
}

func (s *LoggingSink) PublishParked(source string, value string) {
	s.Record(Event{
		Kind:   "parked",
		Source: source,
		At:     time.Now(),
		Fields: map[string]interface{}{"value": value},
	})
}

// Recorder is an in-memory Sink used by tests to assert on emitted events
// without depending on log output.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder builds an empty in-memory Sink.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *Recorder) PublishDisplayValue(zoneID string, vacantCount int) {
	r.Record(Event{
		Kind:   "display_value",
		Source: zoneID,
		At:     time.Now(),
		Fields: map[string]interface{}{"vacant_count": vacantCount},
	})
}

func (r *Recorder) PublishParked(source string, value string) {
	r.Record(Event{
		Kind:   "parked",
		Source: source,
		At:     time.Now(),
		Fields: map[string]interface{}{"value": value},
	})
}

// Events returns a snapshot of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// MultiSink fans one event out to several sinks, used to wire both
// logging and an in-memory recorder (or any future external sink)
// without agents knowing how many listeners exist.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink builds a Sink that forwards to every sink in order.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Record(e Event) {
	for _, s := range m.sinks {
		s.Record(e)
	}
}

func (m *MultiSink) PublishDisplayValue(zoneID string, vacantCount int) {
	for _, s := range m.sinks {
		s.PublishDisplayValue(zoneID, vacantCount)
	}
}

func (m *MultiSink) PublishParked(source string, value string) {
	for _, s := range m.sinks {
		s.PublishParked(source, value)
	}
}
