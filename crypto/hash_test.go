package crypto

import "testing"

func TestSumBLAKE2B512Length(t *testing.T) {
	sum, err := Sum(HashBLAKE2B512, []byte("quantumgate"))
	if err != nil {
		t.Fatal(err)
	}
	if len(sum) != 64 {
		t.Fatalf("BLAKE2B512 sum length = %d, want 64", len(sum))
	}
}

func TestDeriveSymmetricMaterialDeterministic(t *testing.T) {
	secret := []byte("shared-secret-material")
	m1, err := DeriveSymmetricMaterial(HashBLAKE2B512, secret, nil, []byte("primary"), 64)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := DeriveSymmetricMaterial(HashBLAKE2B512, secret, nil, []byte("primary"), 64)
	if err != nil {
		t.Fatal(err)
	}
	if string(m1) != string(m2) {
		t.Fatal("derivation should be deterministic for identical inputs")
	}

	m3, err := DeriveSymmetricMaterial(HashBLAKE2B512, secret, nil, []byte("secondary"), 64)
	if err != nil {
		t.Fatal(err)
	}
	if string(m1) == string(m3) {
		t.Fatal("different info strings must yield different material")
	}
}
