package handshake

import (
	"fmt"
	"time"

	"github.com/quantumgate/quantumgate/crypto"
	"github.com/quantumgate/quantumgate/message"
)

// KeyUpdateStatus is the post-Ready key-rotation sub-protocol's state
// (spec.md §4.5: "Unknown → UpdateWait → PrimaryExchange →
// SecondaryExchange → ReadyWait → UpdateWait").
type KeyUpdateStatus int

const (
	KeyUpdateUnknown KeyUpdateStatus = iota
	KeyUpdateWait
	KeyUpdatePrimaryExchange
	KeyUpdateSecondaryExchange
	KeyUpdateReadyWait
)

func (s KeyUpdateStatus) String() string {
	switch s {
	case KeyUpdateUnknown:
		return "Unknown"
	case KeyUpdateWait:
		return "UpdateWait"
	case KeyUpdatePrimaryExchange:
		return "PrimaryExchange"
	case KeyUpdateSecondaryExchange:
		return "SecondaryExchange"
	case KeyUpdateReadyWait:
		return "ReadyWait"
	default:
		return "Unknown"
	}
}

// KeyUpdateDriver tracks one side's local view of the key-update
// sub-protocol. Both the inbound and outbound peer objects run their own
// instance; only the inbound side ever calls BeginUpdate (spec.md §4.5:
// "Triggers on the inbound side only"), but both sides advance the same
// validated state sequence as they process Begin/End/Ready messages.
type KeyUpdateDriver struct {
	status       KeyUpdateStatus
	updateStart  time.Time
	timeProvider crypto.TimeProvider
}

// NewKeyUpdateDriver returns a driver parked at KeyUpdateUnknown.
func NewKeyUpdateDriver(tp crypto.TimeProvider) *KeyUpdateDriver {
	return &KeyUpdateDriver{timeProvider: tp}
}

// Status returns the current key-update state.
func (k *KeyUpdateDriver) Status() KeyUpdateStatus { return k.status }

// IsUpdating reports whether a key update is currently mid-flight.
func (k *KeyUpdateDriver) IsUpdating() bool {
	return k.status == KeyUpdatePrimaryExchange || k.status == KeyUpdateSecondaryExchange
}

// Activate performs the one-time Unknown -> UpdateWait transition both
// sides make once, when the peer first reaches Ready (spec.md §4.5's
// cycle only revisits UpdateWait thereafter).
func (k *KeyUpdateDriver) Activate() error {
	if k.status != KeyUpdateUnknown {
		return fmt.Errorf("handshake: Activate called from state %s, want %s", k.status, KeyUpdateUnknown)
	}
	k.status = KeyUpdateWait
	return nil
}

// TimedOut reports whether an in-progress update has exceeded maxDuration
// since it began (spec.md §4.5: "Timeout: MaxDuration from initiation ->
// fatal").
func (k *KeyUpdateDriver) TimedOut(now time.Time, maxDuration time.Duration) bool {
	if !k.IsUpdating() {
		return false
	}
	return now.Sub(k.updateStart) > maxDuration
}

// BeginUpdate triggers a new key update from the inbound side: UpdateWait
// -> PrimaryExchange, returning the BeginPrimaryKeyUpdateExchange kind to
// send.
func (k *KeyUpdateDriver) BeginUpdate(now time.Time) (message.Kind, error) {
	if k.status != KeyUpdateWait {
		return 0, fmt.Errorf("handshake: BeginUpdate called from state %s, want %s", k.status, KeyUpdateWait)
	}
	k.status = KeyUpdatePrimaryExchange
	k.updateStart = now
	return message.KindBeginPrimaryKeyUpdateExchange, nil
}

// ProcessMessage advances the driver in reaction to one received kind,
// returning the kind(s) to send in reply (frame payloads may hold more
// than one inner message, so a single incoming event can produce more
// than one outgoing reply — e.g. Bob's End-secondary reply and his own
// KeyUpdateReady land in the same step). complete is true once this side
// has returned to UpdateWait, closing the cycle.
func (k *KeyUpdateDriver) ProcessMessage(now time.Time, received message.Kind) (replies []message.Kind, complete bool, err error) {
	switch received {
	case message.KindBeginPrimaryKeyUpdateExchange:
		if k.status != KeyUpdateWait {
			return nil, false, fmt.Errorf("%w: BeginPrimaryKeyUpdateExchange in state %s", ErrUnexpectedMessage, k.status)
		}
		k.status = KeyUpdatePrimaryExchange
		k.updateStart = now
		return []message.Kind{message.KindEndPrimaryKeyUpdateExchange}, false, nil

	case message.KindEndPrimaryKeyUpdateExchange:
		if k.status != KeyUpdatePrimaryExchange {
			return nil, false, fmt.Errorf("%w: EndPrimaryKeyUpdateExchange in state %s", ErrUnexpectedMessage, k.status)
		}
		k.status = KeyUpdateSecondaryExchange
		return []message.Kind{message.KindBeginSecondaryKeyUpdateExchange}, false, nil

	case message.KindBeginSecondaryKeyUpdateExchange:
		if k.status != KeyUpdatePrimaryExchange {
			return nil, false, fmt.Errorf("%w: BeginSecondaryKeyUpdateExchange in state %s", ErrUnexpectedMessage, k.status)
		}
		k.status = KeyUpdateReadyWait
		return []message.Kind{message.KindEndSecondaryKeyUpdateExchange, message.KindKeyUpdateReady}, false, nil

	case message.KindEndSecondaryKeyUpdateExchange:
		if k.status != KeyUpdateSecondaryExchange {
			return nil, false, fmt.Errorf("%w: EndSecondaryKeyUpdateExchange in state %s", ErrUnexpectedMessage, k.status)
		}
		k.status = KeyUpdateReadyWait
		return []message.Kind{message.KindKeyUpdateReady}, false, nil

	case message.KindKeyUpdateReady:
		if k.status != KeyUpdateReadyWait {
			return nil, false, fmt.Errorf("%w: KeyUpdateReady in state %s", ErrUnexpectedMessage, k.status)
		}
		k.status = KeyUpdateWait
		return nil, true, nil

	default:
		return nil, false, fmt.Errorf("%w: %s is not a key-update message", ErrUnexpectedMessage, received)
	}
}
