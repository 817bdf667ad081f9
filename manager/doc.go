// Package manager owns the full set of peer sessions: the indexed
// lookup maps (spec.md §4.10), the thread-pool scheduler that drives
// each session's primary/worker loop (spec.md §4.9), and the
// process-wide access-update propagation flag.
package manager
