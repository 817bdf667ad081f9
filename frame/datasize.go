package frame

import "github.com/quantumgate/quantumgate/crypto"

// MaxMessageDataSizeOffset bounds how far the Global Shared Secret may
// slide the effective maximum transport payload size (spec.md §4.8).
const MaxMessageDataSizeOffset = 4096

// DataSizeSettings adjusts the effective maximum frame payload size so
// two peers sharing a Global Shared Secret agree on a value an observer
// without the GSS cannot predict (spec.md §4.3, §4.8).
type DataSizeSettings struct {
	Offset int
	XOR    uint32
}

// ZeroDataSizeSettings is used when no Global Shared Secret is
// configured: both Offset and XOR are zero, so the effective maximum
// equals the nominal maximum.
var ZeroDataSizeSettings = DataSizeSettings{}

// GSSSeed is the [0,1] value derived from the Global Shared Secret that
// spec.md §4.8 uses to drive the Offset, XOR, and first random-prefix
// length. Computed by hashing the GSS under two distinct labels so both
// peers converge on the same value independent of connection role.
func GSSSeed(gss []byte) (float64, error) {
	a, err := crypto.Sum(crypto.HashBLAKE2B512, append([]byte("quantumgate-gss-seed-a"), gss...))
	if err != nil {
		return 0, err
	}
	b, err := crypto.Sum(crypto.HashBLAKE2B512, append([]byte("quantumgate-gss-seed-b"), gss...))
	if err != nil {
		return 0, err
	}
	first := a[0]
	if b[0] > first {
		first = b[0]
	}
	return float64(first) / 255.0, nil
}

// DeriveDataSizeSettings computes the Offset and XOR settings from the
// GSS seed and the two directional auth keys of the GSS-derived key pair
// (spec.md §4.8: "the data-size XOR (first u32 of each auth key XORed)").
func DeriveDataSizeSettings(seed float64, encryptAuthKey, decryptAuthKey []byte) DataSizeSettings {
	offset := int(seed * float64(MaxMessageDataSizeOffset))

	var xor uint32
	if len(encryptAuthKey) >= 4 && len(decryptAuthKey) >= 4 {
		xor = firstUint32(encryptAuthKey) ^ firstUint32(decryptAuthKey)
	}

	return DataSizeSettings{Offset: offset, XOR: xor}
}

// FirstRandomPrefixLength is the length of the very first frame's random
// prefix, derived from the GSS seed rather than communicated by a prior
// frame (spec.md §4.8).
func FirstRandomPrefixLength(seed float64) int {
	return int(seed * 64)
}

func firstUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
