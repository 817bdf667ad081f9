package peer

import (
	"github.com/quantumgate/quantumgate/message"
	"github.com/quantumgate/quantumgate/quuid"
)

// ApplicationHandler dispatches the inner-message kinds a Driver does not
// interpret itself — relay traffic and extender communication (spec.md
// §4.14, §4.15) — once a session has passed Ready. It is defined here,
// rather than alongside the packages that actually decode these payloads,
// because Driver lives in this package to satisfy manager.EventProcessor
// without importing anything above it; a concrete implementation (such as
// relay's Router adapter) lives in whichever package already imports peer
// and does the real decode/encode/dispatch work, enqueueing directly onto
// whichever session(s) need it and reporting back only success or failure.
type ApplicationHandler interface {
	// HandleRelayCreate processes a RelayCreate received on s, opening the
	// second leg and splicing a link (spec.md §4.14).
	HandleRelayCreate(s *Session, data []byte) error
	// HandleRelayTraffic forwards an opaque RelayData/RelayDataAck/
	// RelayStatus payload received on s to the other leg of its link.
	HandleRelayTraffic(s *Session, kind message.Kind, data []byte) error
	// HandleRelayClose tears down whatever link s is a leg of, if any,
	// once s disconnects.
	HandleRelayClose(s *Session) error
	// HandleExtenderCommunication delivers an ExtenderCommunication
	// payload to whichever local extender owns extenderID (spec.md
	// §4.15).
	HandleExtenderCommunication(s *Session, extenderID quuid.UUID, data []byte) error
	// HandleExtenderUpdate delivers an ExtenderUpdate payload announcing
	// a change in the peer's locally-enabled extender set.
	HandleExtenderUpdate(s *Session, extenderID quuid.UUID, data []byte) error
}

// NopApplicationHandler rejects nothing but does nothing; it is useful for
// a node that carries no extenders and never participates in relaying.
type NopApplicationHandler struct{}

func (NopApplicationHandler) HandleRelayCreate(*Session, []byte) error                { return nil }
func (NopApplicationHandler) HandleRelayTraffic(*Session, message.Kind, []byte) error { return nil }
func (NopApplicationHandler) HandleRelayClose(*Session) error                         { return nil }
func (NopApplicationHandler) HandleExtenderCommunication(*Session, quuid.UUID, []byte) error {
	return nil
}
func (NopApplicationHandler) HandleExtenderUpdate(*Session, quuid.UUID, []byte) error { return nil }
