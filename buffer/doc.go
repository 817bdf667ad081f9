// Package buffer provides the owned byte buffer, non-owning view, and
// cursor types the rest of the module builds wire encoding on top of
// (spec.md §2). All multi-byte integers are little-endian, per spec.md
// §6's "Integer encoding is little-endian across the protocol". Every
// length-prefixed read is checked against a caller-supplied maximum so a
// malformed or hostile peer can never force an unbounded allocation.
package buffer
