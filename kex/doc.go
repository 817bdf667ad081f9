// Package kex drives the key-exchange pipeline (spec.md §4.2): meta
// exchange (algorithm intersection), the primary DH leg, and the
// secondary KEM-style leg, each yielding a shared secret that the peer
// session derives a symmetric key pair from. It also validates incoming
// handshake blobs against the non-triviality rule in spec.md §4.7 and
// guards against handshake-blob replay.
package kex
