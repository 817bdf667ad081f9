// Package peer owns the per-connection session state machine (spec.md
// §3, §4.1): socket-agnostic bookkeeping for a single peer — identity,
// status, key material, fragment reassembly, noise scheduling, and
// per-kind rate limits — driven by the handshake and manager packages.
package peer
