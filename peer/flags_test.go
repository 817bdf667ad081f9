package peer

import "testing"

func TestFlagsSetHasClear(t *testing.T) {
	var f Flags

	if f.Has(FlagInQueue) {
		t.Fatal("flag should start clear")
	}

	wasSet := f.Set(FlagInQueue)
	if wasSet {
		t.Fatal("first Set should report previously clear")
	}
	if !f.Has(FlagInQueue) {
		t.Fatal("flag should be set after Set")
	}

	wasSet = f.Set(FlagInQueue)
	if !wasSet {
		t.Fatal("second Set should report already set")
	}

	if !f.Clear(FlagInQueue) {
		t.Fatal("Clear should report it had been set")
	}
	if f.Has(FlagInQueue) {
		t.Fatal("flag should be clear after Clear")
	}
	if f.Clear(FlagInQueue) {
		t.Fatal("Clear on an already-clear flag should report false")
	}
}

func TestFlagsIndependent(t *testing.T) {
	var f Flags
	f.Set(FlagInQueue)
	f.Set(FlagSendDisabled)

	if !f.Has(FlagInQueue) || !f.Has(FlagSendDisabled) {
		t.Fatal("both flags should be set")
	}
	f.Clear(FlagInQueue)
	if f.Has(FlagInQueue) {
		t.Fatal("FlagInQueue should be clear")
	}
	if !f.Has(FlagSendDisabled) {
		t.Fatal("FlagSendDisabled should be unaffected")
	}
}
