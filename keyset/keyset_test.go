package keyset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestPair(tag byte) *SymmetricKeyPair {
	enc := DirectionalKey{Key: []byte{tag, 'e'}}
	dec := DirectionalKey{Key: []byte{tag, 'd'}}
	return NewSymmetricKeyPair(enc, dec)
}

func TestInsertNewestFirst(t *testing.T) {
	ks := NewKeySet()
	ks.Insert(newTestPair(1))
	ks.Insert(newTestPair(2))
	ks.Insert(newTestPair(3))

	now := time.Now()
	candidates := ks.DecryptionCandidates(now)
	require.Len(t, candidates, 3)
	require.Equal(t, byte(3), candidates[0].Decryption.Key[0])
	require.Equal(t, byte(1), candidates[2].Decryption.Key[0])
}

func TestInsertEvictsOldestPastCap(t *testing.T) {
	ks := NewKeySet()
	for i := byte(1); i <= 6; i++ {
		ks.Insert(newTestPair(i))
	}
	require.Equal(t, 4, ks.Len())

	candidates := ks.DecryptionCandidates(time.Now())
	require.Equal(t, byte(6), candidates[0].Decryption.Key[0])
	require.Equal(t, byte(3), candidates[3].Decryption.Key[0])
}

func TestEncryptionKeyPicksNewestUsable(t *testing.T) {
	ks := NewKeySet()
	old := newTestPair(1)
	ks.Insert(old)
	fresh := newTestPair(2)
	ks.Insert(fresh)

	now := time.Now()
	old.SetExpiration(now.Add(-time.Minute), time.Minute)

	key := ks.EncryptionKey(now)
	require.NotNil(t, key)
	require.Equal(t, byte(2), key.Encryption.Key[0])
}

func TestExpiredPairUsableForDecryptionDuringGrace(t *testing.T) {
	p := newTestPair(1)
	now := time.Now()
	p.SetExpiration(now.Add(-time.Second), 2*time.Minute)

	require.True(t, p.IsExpired(now))
	require.True(t, p.IsWithinGracePeriod(now))
	require.True(t, p.UsableForDecryption(now))
	require.False(t, p.UsableForEncryption(now))
}

func TestExpiredPairNotUsableAfterGrace(t *testing.T) {
	p := newTestPair(1)
	now := time.Now()
	p.SetExpiration(now.Add(-3*time.Minute), time.Minute)

	require.False(t, p.IsWithinGracePeriod(now))
	require.False(t, p.UsableForDecryption(now))
}
