// Package quuid implements the QuantumGate UUID format (spec.md §3, §6): a
// 16-byte self-describing identifier for peers and extenders. A Peer UUID
// binds to its owner's long-term public key: 14 of its 16 bytes are a
// hash-derived fingerprint of that key, so Verify can check the binding
// without a side channel. An Extender UUID carries no such binding and is
// only ever chosen at random by the extender's author.
package quuid
