package peer

import "testing"

func TestDeriveLUIDDeterministic(t *testing.T) {
	a := DeriveLUID("tcp:203.0.113.5:9000")
	b := DeriveLUID("tcp:203.0.113.5:9000")
	if a != b {
		t.Fatal("same endpoint string should derive the same LUID")
	}
}

func TestDeriveLUIDDiffersByEndpoint(t *testing.T) {
	a := DeriveLUID("tcp:203.0.113.5:9000")
	b := DeriveLUID("tcp:203.0.113.5:9001")
	if a == b {
		t.Fatal("different endpoint strings should derive different LUIDs")
	}
}
