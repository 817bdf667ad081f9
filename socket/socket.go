package socket

import "fmt"

// Kind distinguishes the three transport variants the core drives through
// the same capability set (spec.md §9 Redesign: "model it as a tagged
// variant... rather than deep inheritance").
type Kind int

const (
	KindTCP Kind = iota
	KindUDP
	KindRelayVirtual
)

func (k Kind) String() string {
	switch k {
	case KindTCP:
		return "TCP"
	case KindUDP:
		return "UDP"
	case KindRelayVirtual:
		return "RelayVirtual"
	default:
		return "Unknown"
	}
}

// IOStatus reports a socket's current readiness, refreshed by
// UpdateIOStatus (spec.md §6).
type IOStatus struct {
	Connecting bool
	CanRead    bool
	CanWrite   bool
	HasError   bool
	ErrorCode  int
}

// Socket is the capability set the peer core consumes from a transport
// (spec.md §6). A concrete TCP, UDP, or relay-virtual implementation is
// an external collaborator; the core never type-asserts down to one,
// only ever calling through this interface and branching, where it must,
// on Kind.
type Socket interface {
	Kind() Kind

	// BeginConnect starts an asynchronous connect to endpoint.
	BeginConnect(endpoint string) error
	// CompleteConnect finishes a connect previously started with
	// BeginConnect, once GetIOStatus reports it is no longer Connecting.
	CompleteConnect() error

	// Send writes as much of data as the socket can currently accept,
	// returning the number of bytes actually written.
	Send(data []byte) (int, error)
	// Receive reads into buf, returning the number of bytes actually
	// read.
	Receive(buf []byte) (int, error)

	// UpdateIOStatus refreshes the cached IOStatus, blocking for at most
	// timeoutMillis.
	UpdateIOStatus(timeoutMillis int) error
	// GetIOStatus returns the status as of the last UpdateIOStatus call.
	GetIOStatus() IOStatus

	// Close tears down the socket, lingering for lingerMillis to flush
	// any still-outstanding writes.
	Close(lingerMillis int) error
}

// Callbacks are the connection-lifecycle notifications a Socket may
// invoke (spec.md §6). Any nil field is simply not called. Per spec.md
// §7, a callback that panics is treated as though it had never been
// invoked: the core must recover around every call site, not here.
type Callbacks struct {
	OnConnecting func(s Socket)
	OnAccept     func(s Socket)
	OnConnect    func(s Socket)
	OnClose      func(s Socket, err error)
}

// ErrNotConnecting is returned by CompleteConnect when BeginConnect was
// never called, or already completed.
var ErrNotConnecting = fmt.Errorf("socket: not currently connecting")
