package peer

// Status is the peer session's lifecycle state (spec.md §3). It is
// monotone up to Ready except that Disconnected is absorbing: Suspended
// and Disconnected may be entered from any prior state, but no state may
// be re-entered once passed.
type Status int

const (
	StatusUnknown Status = iota
	StatusInitialized
	StatusConnecting
	StatusAccepted
	StatusConnected
	StatusMetaExchange
	StatusPrimaryKeyExchange
	StatusSecondaryKeyExchange
	StatusAuthentication
	StatusSessionInit
	StatusReady
	StatusSuspended
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "Unknown"
	case StatusInitialized:
		return "Initialized"
	case StatusConnecting:
		return "Connecting"
	case StatusAccepted:
		return "Accepted"
	case StatusConnected:
		return "Connected"
	case StatusMetaExchange:
		return "MetaExchange"
	case StatusPrimaryKeyExchange:
		return "PrimaryKeyExchange"
	case StatusSecondaryKeyExchange:
		return "SecondaryKeyExchange"
	case StatusAuthentication:
		return "Authentication"
	case StatusSessionInit:
		return "SessionInit"
	case StatusReady:
		return "Ready"
	case StatusSuspended:
		return "Suspended"
	case StatusDisconnected:
		return "Disconnected"
	default:
		return "Invalid"
	}
}

// permittedPredecessors lists, for every non-terminal status, the exact set
// of statuses SetStatus may transition from (spec.md §3: "States and their
// sole permitted predecessors are exactly those listed"). Connecting and
// Accepted are alternative first steps out of Initialized — the outbound
// side takes Connecting, the inbound side Accepted — and both converge on
// Connected.
var permittedPredecessors = map[Status][]Status{
	StatusConnecting:           {StatusInitialized},
	StatusAccepted:             {StatusInitialized},
	StatusConnected:            {StatusConnecting, StatusAccepted},
	StatusMetaExchange:         {StatusConnected},
	StatusPrimaryKeyExchange:   {StatusMetaExchange},
	StatusSecondaryKeyExchange: {StatusPrimaryKeyExchange},
	StatusAuthentication:       {StatusSecondaryKeyExchange},
	StatusSessionInit:          {StatusAuthentication},
	StatusReady:                {StatusSessionInit},
}

func isPermittedPredecessor(cur, next Status) bool {
	for _, p := range permittedPredecessors[next] {
		if p == cur {
			return true
		}
	}
	return false
}

// ConnectionType distinguishes a peer this node dialed out to from one
// that connected in.
type ConnectionType int

const (
	ConnectionInbound ConnectionType = iota
	ConnectionOutbound
)

func (c ConnectionType) String() string {
	if c == ConnectionOutbound {
		return "Outbound"
	}
	return "Inbound"
}

// DisconnectCondition records why a session was torn down (spec.md §3).
type DisconnectCondition int

const (
	DisconnectNone DisconnectCondition = iota
	DisconnectGeneralFailure
	DisconnectSocketError
	DisconnectConnectError
	DisconnectTimedOutError
	DisconnectReceiveError
	DisconnectSendError
	DisconnectUnknownMessageError
	DisconnectRequest
	DisconnectIPNotAllowed
	DisconnectPeerNotAllowed
)

func (d DisconnectCondition) String() string {
	switch d {
	case DisconnectNone:
		return "None"
	case DisconnectGeneralFailure:
		return "GeneralFailure"
	case DisconnectSocketError:
		return "SocketError"
	case DisconnectConnectError:
		return "ConnectError"
	case DisconnectTimedOutError:
		return "TimedOutError"
	case DisconnectReceiveError:
		return "ReceiveError"
	case DisconnectSendError:
		return "SendError"
	case DisconnectUnknownMessageError:
		return "UnknownMessageError"
	case DisconnectRequest:
		return "DisconnectRequest"
	case DisconnectIPNotAllowed:
		return "IPNotAllowed"
	case DisconnectPeerNotAllowed:
		return "PeerNotAllowed"
	default:
		return "Invalid"
	}
}
