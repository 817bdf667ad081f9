package relay

import (
	"errors"
	"fmt"

	"github.com/quantumgate/quantumgate/message"
	"github.com/quantumgate/quantumgate/peer"
	"github.com/quantumgate/quantumgate/quuid"
	"github.com/sirupsen/logrus"
)

// ExtenderDispatcher delivers ExtenderCommunication/ExtenderUpdate payloads
// to whichever local extender owns extenderID (spec.md §4.15). It is the
// seam between this package's peer.ApplicationHandler adapter and whatever
// extender registry the embedder builds — no concrete extender lives in
// this module, mirroring Connector's separation of routing from the
// concrete collaborator (spec.md §1 "Out of scope").
type ExtenderDispatcher interface {
	DeliverCommunication(s *peer.Session, extenderID quuid.UUID, data []byte) error
	DeliverUpdate(s *peer.Session, extenderID quuid.UUID, data []byte) error
}

// NopExtenderDispatcher silently discards every extender payload; useful
// for a node that enables no extenders.
type NopExtenderDispatcher struct{}

func (NopExtenderDispatcher) DeliverCommunication(*peer.Session, quuid.UUID, []byte) error {
	return nil
}
func (NopExtenderDispatcher) DeliverUpdate(*peer.Session, quuid.UUID, []byte) error { return nil }

// Handler adapts a Router and an ExtenderDispatcher to
// peer.ApplicationHandler, the boundary Driver.ProcessEvents calls into
// for every inner-message kind it doesn't interpret itself (spec.md §4.14,
// §4.15).
type Handler struct {
	router   *Router
	table    *Table
	extender ExtenderDispatcher
}

// NewHandler returns a Handler backed by router (whose table is also used
// to tear down links on HandleRelayClose) and dispatcher for extender
// traffic. dispatcher may be nil, in which case extender payloads are
// discarded.
func NewHandler(router *Router, table *Table, dispatcher ExtenderDispatcher) *Handler {
	if dispatcher == nil {
		dispatcher = NopExtenderDispatcher{}
	}
	return &Handler{router: router, table: table, extender: dispatcher}
}

// HandleRelayCreate decodes a RelayCreate payload received on s, opens the
// second leg via the Router, and reports the outcome back to s with a
// RelayStatus message. When s is only an intermediate hop, the decremented
// RelayCreate the Router returns is enqueued onto the new leg.
func (h *Handler) HandleRelayCreate(s *peer.Session, data []byte) error {
	payload, err := DecodeCreatePayload(data)
	if err != nil {
		return fmt.Errorf("relay: decoding create payload: %w", err)
	}

	link, forward, err := h.router.HandleCreate(s, s.Endpoint, payload)
	if err != nil {
		s.EnqueueSend(message.Message{
			Kind: message.KindRelayStatus,
			Data: StatusPayload{Code: StatusDisconnected}.Encode(),
		})
		return fmt.Errorf("relay: handling create: %w", err)
	}

	s.EnqueueSend(message.Message{
		Kind: message.KindRelayStatus,
		Data: StatusPayload{Code: StatusConnected}.Encode(),
	})

	if forward != nil {
		link.Destination.EnqueueSend(*forward)
	}
	return nil
}

// HandleRelayTraffic forwards an opaque RelayData/RelayDataAck/RelayStatus
// payload received on s to the other leg of its link. A rate-window
// overflow (ErrDeferred) is not treated as a session-ending error — the
// payload already sits on s's own deferred queue, to be retried once the
// destination's window frees (spec.md §4.13).
func (h *Handler) HandleRelayTraffic(s *peer.Session, kind message.Kind, data []byte) error {
	other, out, err := h.router.Forward(s, kind, data)
	if errors.Is(err, ErrDeferred) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("relay: forwarding: %w", err)
	}
	other.EnqueueSend(*out)
	return nil
}

// HandleRelayClose tears down whatever link s was a leg of, notifying the
// other leg with a RelayStatus Disconnected before removing the link
// (spec.md §4.14).
func (h *Handler) HandleRelayClose(s *peer.Session) error {
	link, ok := h.table.GetBySession(s.LUID)
	if !ok {
		return nil
	}

	if other, err := link.OtherSide(s); err == nil {
		other.EnqueueSend(message.Message{
			Kind: message.KindRelayStatus,
			Data: StatusPayload{Code: StatusDisconnected}.Encode(),
		})
	}

	logrus.WithFields(logrus.Fields{
		"function": "Handler.HandleRelayClose",
		"port":     link.Port,
		"luid":     s.LUID,
	}).Info("Tearing down relay link after peer disconnect")

	h.router.Close(link.Port)
	return nil
}

// HandleExtenderCommunication delivers an ExtenderCommunication payload to
// the dispatcher, which routes it to whichever local extender owns
// extenderID (spec.md §4.15).
func (h *Handler) HandleExtenderCommunication(s *peer.Session, extenderID quuid.UUID, data []byte) error {
	if err := h.extender.DeliverCommunication(s, extenderID, data); err != nil {
		return fmt.Errorf("relay: delivering extender communication: %w", err)
	}
	return nil
}

// HandleExtenderUpdate delivers an ExtenderUpdate payload to the
// dispatcher, announcing a change in the peer's locally-enabled extender
// set.
func (h *Handler) HandleExtenderUpdate(s *peer.Session, extenderID quuid.UUID, data []byte) error {
	if err := h.extender.DeliverUpdate(s, extenderID, data); err != nil {
		return fmt.Errorf("relay: delivering extender update: %w", err)
	}
	return nil
}
