package peer

import "hash/fnv"

// LUID is a locally unique, non-persistent identifier for a peer session
// within this process (spec.md §3, glossary "LUID"). NewSession derives it
// from the endpoint string when the Session is created, and it never
// changes.
type LUID uint64

// DeriveLUID hashes an endpoint string (e.g. "tcp:203.0.113.5:9000") into
// a LUID. Two sessions to the same endpoint string within the same
// process hash identically, which is why the manager keys its lookup
// maps on LUID rather than relying on endpoint-string equality directly.
func DeriveLUID(endpoint string) LUID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(endpoint))
	return LUID(h.Sum64())
}
