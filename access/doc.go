// Package access implements the admission-control plane (spec.md §4.11):
// CIDR-based IP filters, per-subnet connection-count limits, IP reputation
// scoring with time-decay recovery, per-IP connection-attempt rate
// limiting, and peer-UUID allow/deny lists with optional public-key
// pinning.
package access
