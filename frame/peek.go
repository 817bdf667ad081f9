package frame

import "github.com/quantumgate/quantumgate/buffer"

// PeekResult is the outcome of checking whether a complete frame is
// buffered (spec.md §4.3).
type PeekResult int

const (
	Incomplete PeekResult = iota
	CompleteMessage
	TooMuchData
)

// maxFrameSize bounds the total on-wire size a single frame may declare,
// independent of any GSS-derived payload cap; it exists purely to reject
// a corrupt or hostile data_size field before attempting to allocate for
// it.
const maxFrameSize = 16 * 1024 * 1024

// Peek determines whether buf (everything received so far for this
// frame, starting right after any random prefix) holds a complete frame:
// a full header plus its declared payload. The caller strips the random
// prefix, whose length was communicated by the previous frame (or derived
// from the GSS for the very first frame, spec.md §4.8), before calling.
func Peek(buf []byte) (PeekResult, int) {
	if len(buf) < HeaderSize {
		return Incomplete, 0
	}
	r := buffer.NewReader(buf)
	h, err := DecodeHeader(r)
	if err != nil {
		return Incomplete, 0
	}
	if h.DataSize > maxFrameSize {
		return TooMuchData, 0
	}

	total := HeaderSize + int(h.DataSize)
	if len(buf) < total {
		return Incomplete, 0
	}
	return CompleteMessage, total
}
