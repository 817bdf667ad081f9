// Package socket defines the capability set the peer core consumes from
// a transport (spec.md §6): BeginConnect/CompleteConnect/Send/Receive/
// UpdateIOStatus/GetIOStatus/Close plus connection-lifecycle callbacks.
// Concrete TCP, UDP, and relay-virtual sockets are external collaborators
// out of this module's scope (spec.md §1); this package only fixes the
// boundary and a small in-memory double useful for driving it in tests.
package socket
