// Package endpoint implements public endpoint inference (spec.md §4.12):
// aggregating what other peers report our externally visible address to
// be, filtered for reporting-network diversity so a single hostile subnet
// cannot manufacture a false public endpoint.
package endpoint
