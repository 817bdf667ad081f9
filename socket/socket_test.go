package socket

import "testing"

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindTCP:          "TCP",
		KindUDP:          "UDP",
		KindRelayVirtual: "RelayVirtual",
		Kind(99):         "Unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
