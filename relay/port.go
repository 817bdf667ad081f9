package relay

import (
	"crypto/rand"
	"encoding/binary"
)

// Port is a locally generated relay-table key (spec.md §4.14). It has no
// meaning outside this node's own relay table.
type Port uint64

// NewPort returns a cryptographically random Port.
func NewPort() Port {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return Port(binary.BigEndian.Uint64(buf[:]))
}
