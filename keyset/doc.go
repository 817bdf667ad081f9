// Package keyset holds the symmetric and asymmetric key material a Peer
// session accumulates across its key-exchange and key-update pipelines
// (spec.md §3, §4.2, §4.5): directional symmetric key pairs tried
// newest-first, and the asymmetric key data each DH or KEM leg produces
// on the way to deriving them.
package keyset
