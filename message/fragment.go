package message

import (
	"errors"
	"fmt"

	"github.com/quantumgate/quantumgate/limits"
	"github.com/quantumgate/quantumgate/quuid"
)

// ErrUnexpectedFragment is returned by a Reassembler when a fragment
// arrives out of order, with a mismatched kind, or with a mismatched
// extender UUID relative to the fragment sequence in progress
// (spec.md §4.4: "fatal and triggers Severe reputation deterioration").
var ErrUnexpectedFragment = errors.New("message: unexpected fragment")

// Fragment splits data (already compressed, if applicable) into a
// PartialBegin/Partial.../PartialEnd sequence, each chunk no larger than
// limits.MaxInnerData, all carrying the given kind, compressed flag and
// extender identity and differing only in Data and Fragment (spec.md §4.4). If data already fits within
// MaxInnerData, Fragment returns a single Complete message.
func Fragment(kind Kind, compressed bool, hasExtender bool, extenderUUID quuid.UUID, data []byte) []Message {
	if len(data) <= limits.MaxInnerData {
		return []Message{{
			Kind: kind, Fragment: FragmentComplete, Compressed: compressed,
			HasExtender: hasExtender, ExtenderUUID: extenderUUID, Data: data,
		}}
	}

	var out []Message
	for offset := 0; offset < len(data); offset += limits.MaxInnerData {
		end := offset + limits.MaxInnerData
		if end > len(data) {
			end = len(data)
		}
		fragKind := FragmentPartial
		switch {
		case offset == 0:
			fragKind = FragmentPartialBegin
		case end == len(data):
			fragKind = FragmentPartialEnd
		}
		out = append(out, Message{
			Kind: kind, Fragment: fragKind, Compressed: compressed,
			HasExtender: hasExtender, ExtenderUUID: extenderUUID, Data: data[offset:end],
		})
	}
	return out
}

// Reassembler holds at most one in-progress fragment sequence per
// direction (spec.md §3: "one message-fragment-in-progress slot per
// direction").
type Reassembler struct {
	inProgress   bool
	kind         Kind
	compressed   bool
	hasExtender  bool
	extenderUUID quuid.UUID
	data         []byte
}

// NewReassembler returns an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{}
}

// Feed processes one received Message. It returns (complete, true, nil)
// with the fully reassembled payload once a PartialEnd closes a sequence,
// or a Complete message passes through unmodified; it returns
// (nil, false, nil) while a sequence is still in progress; it returns an
// error (ErrUnexpectedFragment) when the fragment doesn't fit the sequence
// in progress.
func (r *Reassembler) Feed(m Message) (*Message, bool, error) {
	switch m.Fragment {
	case FragmentComplete:
		if r.inProgress {
			return nil, false, fmt.Errorf("%w: complete message while a fragment sequence is in progress", ErrUnexpectedFragment)
		}
		out := m
		return &out, true, nil

	case FragmentPartialBegin:
		if r.inProgress {
			return nil, false, fmt.Errorf("%w: PartialBegin while a fragment sequence is already in progress", ErrUnexpectedFragment)
		}
		r.inProgress = true
		r.kind = m.Kind
		r.compressed = m.Compressed
		r.hasExtender = m.HasExtender
		r.extenderUUID = m.ExtenderUUID
		r.data = append([]byte(nil), m.Data...)
		return nil, false, nil

	case FragmentPartial, FragmentPartialEnd:
		if !r.inProgress {
			return nil, false, fmt.Errorf("%w: %s with no sequence in progress", ErrUnexpectedFragment, m.Fragment)
		}
		if m.Kind != r.kind || m.Compressed != r.compressed || m.HasExtender != r.hasExtender || m.ExtenderUUID != r.extenderUUID {
			return nil, false, fmt.Errorf("%w: mismatched kind or extender mid-sequence", ErrUnexpectedFragment)
		}
		if len(r.data)+len(m.Data) > limits.MaxReassembledData {
			return nil, false, fmt.Errorf("%w: reassembled size exceeds limit", ErrUnexpectedFragment)
		}
		r.data = append(r.data, m.Data...)

		if m.Fragment == FragmentPartial {
			return nil, false, nil
		}

		out := Message{
			Kind: r.kind, Fragment: FragmentComplete, Compressed: r.compressed,
			HasExtender: r.hasExtender, ExtenderUUID: r.extenderUUID, Data: r.data,
		}
		r.reset()
		return &out, true, nil

	default:
		return nil, false, fmt.Errorf("%w: unknown fragment kind", ErrUnexpectedFragment)
	}
}

func (r *Reassembler) reset() {
	r.inProgress = false
	r.kind = 0
	r.compressed = false
	r.hasExtender = false
	r.extenderUUID = quuid.UUID{}
	r.data = nil
}
