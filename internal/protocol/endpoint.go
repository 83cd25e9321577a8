// Package protocol defines the message taxonomy exchanged between agents:
// typed message variants that carry the same information as the plain-text
// wire format described by the system's message table, with Encode and
// Decode* functions for that text form. The in-process bus (internal/bus)
// carries the typed values without serialising them.
package protocol

// Endpoint identifies an addressable agent: a spot, a zone manager, the
// parking manager, or a driver. It is a thin string wrapper so routing
// mistakes (passing a zone endpoint where a spot endpoint is expected) are
// at least distinguishable in signatures and logs, the way agentcard.DID
// is used for agent identity in the teacher stack.
type Endpoint string

func (e Endpoint) String() string { return string(e) }

// Empty reports whether the endpoint carries no identity, used to
// represent an auction that ended without a winner.
func (e Endpoint) Empty() bool { return e == "" }
