// Package handshake drives the peer state machine's message-level
// sequencing (spec.md §4.1, §4.5): which inner-message kind a side must
// send next, given its role and the kind it just received. Alongside that
// sequencing it builds the authentication transcript, signs and verifies
// authentication payloads, and encodes SessionInit payloads; the meta
// exchange and the key-exchange legs are performed by the kex package,
// driven by a caller holding this package's Processor/KeyUpdateDriver
// state.
package handshake
