package handshake

import (
	"errors"
	"fmt"

	"github.com/quantumgate/quantumgate/keyset"
	"github.com/quantumgate/quantumgate/message"
)

// State is a handshake phase, a subset of the full peer Status enum
// covering only the states the handshake processor itself sequences
// through (spec.md §3, §4.1).
type State int

const (
	StateConnected State = iota
	StateMetaExchange
	StatePrimaryKeyExchange
	StateSecondaryKeyExchange
	StateAuthentication
	StateSessionInit
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateMetaExchange:
		return "MetaExchange"
	case StatePrimaryKeyExchange:
		return "PrimaryKeyExchange"
	case StateSecondaryKeyExchange:
		return "SecondaryKeyExchange"
	case StateAuthentication:
		return "Authentication"
	case StateSessionInit:
		return "SessionInit"
	case StateReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// ErrUnexpectedMessage is returned when a received kind doesn't match what
// the current state expects — a fatal protocol violation (spec.md §4.1:
// "any attempt to enter a state from the wrong predecessor is a fatal
// protocol error").
var ErrUnexpectedMessage = errors.New("handshake: unexpected message for current state")

// ErrHandshakeComplete is returned when Advance is called after the
// handshake has already reached Ready.
var ErrHandshakeComplete = errors.New("handshake: already complete")

type phase struct {
	state      State
	begin, end message.Kind
	next       State
}

// phases lists the Begin/End pattern that governs MetaExchange,
// PrimaryKeyExchange, SecondaryKeyExchange, Authentication, and
// SessionInit identically (spec.md §4.1: "The same Begin→End pattern
// governs ...").
var phases = []phase{
	{StateMetaExchange, message.KindBeginMetaExchange, message.KindEndMetaExchange, StatePrimaryKeyExchange},
	{StatePrimaryKeyExchange, message.KindBeginPrimaryKeyExchange, message.KindEndPrimaryKeyExchange, StateSecondaryKeyExchange},
	{StateSecondaryKeyExchange, message.KindBeginSecondaryKeyExchange, message.KindEndSecondaryKeyExchange, StateAuthentication},
	{StateAuthentication, message.KindBeginAuthentication, message.KindEndAuthentication, StateSessionInit},
	{StateSessionInit, message.KindBeginSessionInit, message.KindEndSessionInit, StateReady},
}

func phaseForState(s State) (phase, bool) {
	for _, p := range phases {
		if p.state == s {
			return p, true
		}
	}
	return phase{}, false
}

// Processor sequences one side of a single handshake (spec.md §4.1). Its
// role follows the connection direction: the inbound side is Alice, the
// outbound side is Bob (per the spec's glossary), reusing keyset.Role
// rather than introducing a parallel enum.
type Processor struct {
	role  keyset.Role
	state State
}

// NewProcessor returns a Processor ready to sequence one side of a
// handshake. The inbound (Alice) side parks at StateConnected until its
// one explicit Start call; the outbound (Bob) side has no such call, so
// it starts already awaiting MetaExchange's Begin message.
func NewProcessor(role keyset.Role) *Processor {
	state := StateConnected
	if role == keyset.RoleBob {
		state = StateMetaExchange
	}
	return &Processor{role: role, state: state}
}

// State returns the current handshake phase.
func (p *Processor) State() State { return p.state }

// Role returns which side of the handshake this processor sequences.
func (p *Processor) Role() keyset.Role { return p.role }

// Start is called once, only by the inbound (Alice) side, to begin the
// handshake (spec.md §4.1: "on entering MetaExchange the inbound side
// SENDS BeginMetaExchange"). It returns false if called on the outbound
// side or after the handshake has already started.
func (p *Processor) Start() (message.Kind, bool) {
	if p.role != keyset.RoleAlice || p.state != StateConnected {
		return 0, false
	}
	p.state = StateMetaExchange
	return message.KindBeginMetaExchange, true
}

// Advance processes one received inner-message kind against the current
// state. It returns the kind to send in reply (if any), whether the
// handshake has reached Ready, and an error if received doesn't fit the
// current state (spec.md §9: "a loop that returns after each transition
// so that callers can re-poll").
func (p *Processor) Advance(received message.Kind) (reply message.Kind, hasReply bool, reachedReady bool, err error) {
	if p.state == StateReady {
		return 0, false, true, ErrHandshakeComplete
	}

	ph, ok := phaseForState(p.state)
	if !ok {
		return 0, false, false, fmt.Errorf("handshake: no phase for state %s", p.state)
	}

	switch p.role {
	case keyset.RoleBob:
		if received != ph.begin {
			return 0, false, false, fmt.Errorf("%w: expected %s in state %s, got %s", ErrUnexpectedMessage, ph.begin, p.state, received)
		}
		p.state = ph.next
		if ph.next == StateReady {
			return ph.end, true, true, nil
		}
		return ph.end, true, false, nil

	case keyset.RoleAlice:
		if received != ph.end {
			return 0, false, false, fmt.Errorf("%w: expected %s in state %s, got %s", ErrUnexpectedMessage, ph.end, p.state, received)
		}
		p.state = ph.next
		if ph.next == StateReady {
			return 0, false, true, nil
		}
		nextPhase, ok := phaseForState(ph.next)
		if !ok {
			return 0, false, false, fmt.Errorf("handshake: no phase for state %s", ph.next)
		}
		return nextPhase.begin, true, false, nil

	default:
		return 0, false, false, fmt.Errorf("handshake: unknown role %v", p.role)
	}
}
