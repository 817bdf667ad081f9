// Package config holds the recognized configuration surface of a
// QuantumGate node (spec.md §6, grounded on the original QuantumGateLib
// Settings.h field grouping) and validates it at construction time the way
// the teacher's limits package validates sizes against named constants.
package config

import (
	"errors"
	"fmt"
	"time"
)

// KeyUpdateSettings controls the post-Ready key-rotation sub-protocol
// (spec.md §4.5).
type KeyUpdateSettings struct {
	MinInterval                   time.Duration
	MaxInterval                   time.Duration
	MaxDuration                   time.Duration
	RequireAfterNumProcessedBytes uint64
}

// ConcurrencySettings controls the peer manager's thread-pool shape
// (spec.md §4.9).
type ConcurrencySettings struct {
	MinThreadPools        int
	MinThreadsPerPool     int
	WorkerThreadsMaxBurst int
	WorkerThreadsMaxSleep time.Duration
}

// IPConnectionAttemptSettings bounds per-IP connection attempt rate
// (spec.md §4.11).
type IPConnectionAttemptSettings struct {
	MaxPerInterval int
	Interval       time.Duration
}

// SupportedAlgorithms is the ordered preference vector per category that a
// node advertises during meta exchange (spec.md §4.2, §9 Open Question 1:
// this vector's order is the tie-break authority for the inbound side).
type SupportedAlgorithms struct {
	Hash                []string
	PrimaryAsymmetric   []string
	SecondaryAsymmetric []string
	Symmetric           []string
	Compression         []string
}

// LocalSettings mirrors QuantumGateLib's LocalSettings (spec.md §6).
type LocalSettings struct {
	RequireAuthentication           bool
	MaxHandshakeDuration            time.Duration
	MaxHandshakeDelay               time.Duration
	ConnectTimeout                  time.Duration
	IPReputationImprovementInterval time.Duration
	IPConnectionAttempts            IPConnectionAttemptSettings
	KeyUpdate                       KeyUpdateSettings
	Concurrency                     ConcurrencySettings
	SupportedAlgorithms             SupportedAlgorithms
	GlobalSharedSecret              []byte
}

// MessageSettings mirrors QuantumGateLib's MessageSettings (spec.md §6).
type MessageSettings struct {
	AgeTolerance              time.Duration
	MinRandomDataPrefixSize   uint16
	MaxRandomDataPrefixSize   uint16
	MinInternalRandomDataSize uint16
	MaxInternalRandomDataSize uint16
}

// NoiseSettings mirrors QuantumGateLib's NoiseSettings (spec.md §4.6, §6).
type NoiseSettings struct {
	Enabled                bool
	TimeInterval           time.Duration
	MinMessagesPerInterval int
	MaxMessagesPerInterval int
	MinMessageSize         int
	MaxMessageSize         int
}

// RelaySettings mirrors QuantumGateLib's RelaySettings (spec.md §4.14, §6).
type RelaySettings struct {
	IPConnectionAttempts                IPConnectionAttemptSettings
	IPv4ExcludedNetworksCIDRLeadingBits int
	IPv6ExcludedNetworksCIDRLeadingBits int
}

// Settings is the full recognized configuration surface of a node.
type Settings struct {
	Local   LocalSettings
	Message MessageSettings
	Noise   NoiseSettings
	Relay   RelaySettings
}

// Default returns settings with the same defaults as QuantumGateLib's
// Settings.h, adjusted to Go idioms (time.Duration instead of separate
// seconds/milliseconds fields).
func Default() Settings {
	return Settings{
		Local: LocalSettings{
			RequireAuthentication:           true,
			MaxHandshakeDuration:            30 * time.Second,
			MaxHandshakeDelay:               0,
			ConnectTimeout:                  60 * time.Second,
			IPReputationImprovementInterval: 600 * time.Second,
			IPConnectionAttempts: IPConnectionAttemptSettings{
				MaxPerInterval: 2,
				Interval:       10 * time.Second,
			},
			KeyUpdate: KeyUpdateSettings{
				MinInterval:                   300 * time.Second,
				MaxInterval:                   1200 * time.Second,
				MaxDuration:                   240 * time.Second,
				RequireAfterNumProcessedBytes: 4_200_000_000,
			},
			Concurrency: ConcurrencySettings{
				MinThreadPools:        1,
				MinThreadsPerPool:     4,
				WorkerThreadsMaxBurst: 64,
				WorkerThreadsMaxSleep: time.Second,
			},
			SupportedAlgorithms: SupportedAlgorithms{
				Hash:                []string{"BLAKE2B512"},
				PrimaryAsymmetric:   []string{"ECDH_X25519"},
				SecondaryAsymmetric: []string{"KEM_X25519"},
				Symmetric:           []string{"CHACHA20_POLY1305"},
				Compression:         []string{"ZSTANDARD", "NONE"},
			},
		},
		Message: MessageSettings{
			AgeTolerance:              600 * time.Second,
			MinRandomDataPrefixSize:   0,
			MaxRandomDataPrefixSize:   64,
			MinInternalRandomDataSize: 0,
			MaxInternalRandomDataSize: 64,
		},
		Noise: NoiseSettings{
			Enabled:                false,
			TimeInterval:           10 * time.Second,
			MinMessagesPerInterval: 1,
			MaxMessagesPerInterval: 5,
			MinMessageSize:         16,
			MaxMessageSize:         512,
		},
		Relay: RelaySettings{
			IPConnectionAttempts: IPConnectionAttemptSettings{
				MaxPerInterval: 10,
				Interval:       10 * time.Second,
			},
			IPv4ExcludedNetworksCIDRLeadingBits: 16,
			IPv6ExcludedNetworksCIDRLeadingBits: 48,
		},
	}
}

// Validate checks the invariants QuantumGateLib enforces at startup
// (spec.md §6: "All constraints are validated at startup").
func (s Settings) Validate() error {
	if s.Local.Concurrency.MinThreadPools < 1 {
		return errors.New("config: Local.Concurrency.MinThreadPools must be >= 1")
	}
	if s.Local.Concurrency.MinThreadsPerPool < 1 {
		return errors.New("config: Local.Concurrency.MinThreadsPerPool must be >= 1")
	}
	if s.Local.Concurrency.WorkerThreadsMaxBurst < 1 {
		return errors.New("config: Local.Concurrency.WorkerThreadsMaxBurst must be >= 1")
	}
	if s.Local.KeyUpdate.MinInterval > s.Local.KeyUpdate.MaxInterval {
		return fmt.Errorf("config: KeyUpdate.MinInterval (%s) > MaxInterval (%s)",
			s.Local.KeyUpdate.MinInterval, s.Local.KeyUpdate.MaxInterval)
	}
	if s.Message.MinRandomDataPrefixSize > s.Message.MaxRandomDataPrefixSize {
		return errors.New("config: Message.MinRandomDataPrefixSize > MaxRandomDataPrefixSize")
	}
	if s.Message.MinInternalRandomDataSize > s.Message.MaxInternalRandomDataSize {
		return errors.New("config: Message.MinInternalRandomDataSize > MaxInternalRandomDataSize")
	}
	if s.Noise.Enabled {
		if s.Noise.MinMessagesPerInterval > s.Noise.MaxMessagesPerInterval {
			return errors.New("config: Noise.MinMessagesPerInterval > MaxMessagesPerInterval")
		}
		if s.Noise.MinMessageSize > s.Noise.MaxMessageSize {
			return errors.New("config: Noise.MinMessageSize > MaxMessageSize")
		}
	}
	cat := [][]string{
		s.Local.SupportedAlgorithms.Hash,
		s.Local.SupportedAlgorithms.PrimaryAsymmetric,
		s.Local.SupportedAlgorithms.SecondaryAsymmetric,
		s.Local.SupportedAlgorithms.Symmetric,
		s.Local.SupportedAlgorithms.Compression,
	}
	for _, list := range cat {
		if len(list) == 0 {
			return errors.New("config: each SupportedAlgorithms category needs at least one entry")
		}
	}
	if s.Relay.IPv4ExcludedNetworksCIDRLeadingBits < 0 || s.Relay.IPv4ExcludedNetworksCIDRLeadingBits > 32 {
		return errors.New("config: Relay.IPv4ExcludedNetworksCIDRLeadingBits out of range")
	}
	if s.Relay.IPv6ExcludedNetworksCIDRLeadingBits < 0 || s.Relay.IPv6ExcludedNetworksCIDRLeadingBits > 128 {
		return errors.New("config: Relay.IPv6ExcludedNetworksCIDRLeadingBits out of range")
	}
	return nil
}
