package crypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNonceStoreCreation(t *testing.T) {
	ns := NewNonceStore()
	defer ns.Close()

	assert.Equal(t, 0, ns.Size())
}

func TestNonceStoreCheckAndStore(t *testing.T) {
	ns := NewNonceStore()
	defer ns.Close()

	nonce := [32]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	timestamp := time.Now().Unix()

	result := ns.CheckAndStore(nonce, timestamp)
	assert.True(t, result, "First nonce use should succeed")
	assert.Equal(t, 1, ns.Size())

	result = ns.CheckAndStore(nonce, timestamp)
	assert.False(t, result, "Replay should be detected")
	assert.Equal(t, 1, ns.Size(), "Size should not increase on replay")
}

func TestNonceStoreExpiration(t *testing.T) {
	ns := NewNonceStore()
	defer ns.Close()

	oldNonce := [32]byte{0x01}
	oldTimestamp := time.Now().Add(-10 * time.Minute).Unix()
	ns.CheckAndStore(oldNonce, oldTimestamp)

	currentNonce := [32]byte{0x02}
	currentTimestamp := time.Now().Unix()
	ns.CheckAndStore(currentNonce, currentTimestamp)

	assert.Equal(t, 2, ns.Size(), "Both nonces should be stored initially")

	ns.cleanup()

	assert.Equal(t, 1, ns.Size(), "Expired nonce should be removed")

	assert.True(t, ns.CheckAndStore(oldNonce, time.Now().Unix()))
	assert.False(t, ns.CheckAndStore(currentNonce, currentTimestamp))
}

func TestNonceStoreConcurrentAccess(t *testing.T) {
	ns := NewNonceStore()
	defer ns.Close()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(index int) {
			nonce := [32]byte{byte(index)}
			timestamp := time.Now().Unix()
			ns.CheckAndStore(nonce, timestamp)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	assert.Equal(t, 10, ns.Size())
}

func TestNonceStoreMultipleNonces(t *testing.T) {
	ns := NewNonceStore()
	defer ns.Close()

	timestamp := time.Now().Unix()
	count := 100

	for i := 0; i < count; i++ {
		nonce := [32]byte{byte(i)}
		assert.True(t, ns.CheckAndStore(nonce, timestamp))
	}

	assert.Equal(t, count, ns.Size())

	for i := 0; i < count; i++ {
		nonce := [32]byte{byte(i)}
		assert.False(t, ns.CheckAndStore(nonce, timestamp))
	}
}

func TestNonceStoreReplayProtection(t *testing.T) {
	ns := NewNonceStore()
	defer ns.Close()

	nonce := [32]byte{0xAA, 0xBB, 0xCC, 0xDD}
	timestamp := time.Now().Unix()

	assert.True(t, ns.CheckAndStore(nonce, timestamp), "First use should succeed")
	assert.False(t, ns.CheckAndStore(nonce, timestamp), "Immediate replay should be detected")

	newTimestamp := timestamp + 60
	assert.False(t, ns.CheckAndStore(nonce, newTimestamp), "Replay with different timestamp should be detected")
}

func TestNonceStoreCleanupLoop(t *testing.T) {
	ns := NewNonceStore()
	defer ns.Close()

	expiredNonce := [32]byte{0x01}
	expiredTimestamp := time.Now().Add(-10 * time.Minute).Unix()
	ns.CheckAndStore(expiredNonce, expiredTimestamp)

	currentNonce := [32]byte{0x02}
	currentTimestamp := time.Now().Unix()
	ns.CheckAndStore(currentNonce, currentTimestamp)

	assert.Equal(t, 2, ns.Size())

	ns.cleanup()

	assert.Equal(t, 1, ns.Size())
}

func TestNonceStoreWithTimeProvider(t *testing.T) {
	fixedTime := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	mock := &MockTimeProvider{currentTime: fixedTime}

	ns := NewNonceStoreWithTimeProvider(mock)
	defer ns.Close()

	nonce1 := [32]byte{0x01}
	ns.CheckAndStore(nonce1, fixedTime.Unix())

	nonce2 := [32]byte{0x02}
	oldTimestamp := fixedTime.Add(-10 * time.Minute).Unix()
	ns.CheckAndStore(nonce2, oldTimestamp)

	assert.Equal(t, 2, ns.Size(), "Both nonces should be stored")

	ns.cleanup()

	assert.Equal(t, 1, ns.Size(), "Only non-expired nonce should remain after cleanup")

	mock.Advance(7 * time.Minute)
	ns.cleanup()

	assert.Equal(t, 0, ns.Size(), "All nonces should be cleaned up")
}

func TestNonceStoreSetTimeProvider(t *testing.T) {
	ns := NewNonceStore()
	defer ns.Close()

	fixedTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	mock := &MockTimeProvider{currentTime: fixedTime}
	ns.SetTimeProvider(mock)

	nonce := [32]byte{0xAA}
	oldTimestamp := fixedTime.Add(-10 * time.Minute).Unix()
	ns.CheckAndStore(nonce, oldTimestamp)

	ns.cleanup()
	assert.Equal(t, 0, ns.Size(), "Expired nonce should be removed")

	ns.SetTimeProvider(nil)
	ns.cleanup()
}
