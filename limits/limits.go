package limits

import "errors"

const (
	// MaxInnerData is the largest an inner message's payload may be before
	// fragmentation is required (spec.md §3, "on the order of ~2 MiB").
	MaxInnerData = 2 * 1024 * 1024

	// MaxMetaListBytes caps each length-prefixed algorithm-preference vector
	// exchanged during meta exchange (spec.md §4.2).
	MaxMetaListBytes = 256

	// MaxRandomPrefix bounds the random prefix length a peer may advertise,
	// regardless of configured Message.MaxRandomDataPrefixSize.
	MaxRandomPrefix = 4096

	// MaxProcessingBuffer is the absolute ceiling on a single buffered
	// network read, defending against memory exhaustion.
	MaxProcessingBuffer = 8 * 1024 * 1024

	// MaxReassembledData bounds the total size of a fragmented inner
	// message while it is being reassembled, independent of the
	// per-fragment MaxInnerData cap, so a hostile peer cannot force
	// unbounded buffering by never sending a PartialEnd (spec.md §4.4).
	MaxReassembledData = 64 * 1024 * 1024

	// MaxSymmetricKeyPairs is the number of symmetric key pairs retained
	// per direction in a key set (spec.md §3).
	MaxSymmetricKeyPairs = 4

	// KeyExpirationGracePeriodSeconds is the fixed grace period, in seconds, a
	// retired symmetric key pair remains valid for decryption
	// (spec.md §3, §4.5).
	KeyExpirationGracePeriodSeconds = 120
)

var (
	// ErrEmpty indicates an empty value was provided where one was required.
	ErrEmpty = errors.New("limits: value is empty")
	// ErrTooLarge indicates a value exceeds its configured maximum.
	ErrTooLarge = errors.New("limits: value exceeds maximum size")
)

// Validate checks data against a maximum size, rejecting empty and
// oversized values.
func Validate(data []byte, max int) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if len(data) > max {
		return ErrTooLarge
	}
	return nil
}

// ValidateInnerData validates a pre-fragmentation inner message payload.
func ValidateInnerData(data []byte) error {
	if len(data) > MaxInnerData {
		return ErrTooLarge
	}
	return nil
}

// ValidateMetaList validates one length-prefixed algorithm preference list.
func ValidateMetaList(data []byte) error {
	if len(data) > MaxMetaListBytes {
		return ErrTooLarge
	}
	return nil
}
