package message

import "github.com/quantumgate/quantumgate/buffer"

// EncodePayload concatenates the wire encoding of msgs into one transport
// frame payload (spec.md §2: "encrypts a payload of 1..N inner messages").
func EncodePayload(msgs []Message) ([]byte, error) {
	w := buffer.NewWriter(0)
	for _, m := range msgs {
		if err := m.Encode(w); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// DecodePayload splits a decrypted frame payload back into its inner
// messages.
func DecodePayload(payload []byte) ([]Message, error) {
	r := buffer.NewReader(payload)
	var out []Message
	for r.Len() > 0 {
		m, err := Decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
