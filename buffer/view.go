package buffer

// View is a non-owning reference to a contiguous byte range, used where
// the spec's socket interface passes a buffer by reference rather than by
// value (spec.md §6: "Send(buffer_view)", "Receive(buffer_ref)"). A View
// never copies; it is only valid for as long as its backing array is.
type View []byte

// NewView wraps data without copying it.
func NewView(data []byte) View {
	return View(data)
}

// Slice returns the sub-view [from:to), following Go slice semantics.
func (v View) Slice(from, to int) View {
	return v[from:to]
}

// Len returns the view's length in bytes.
func (v View) Len() int {
	return len(v)
}

// Bytes returns the underlying byte slice.
func (v View) Bytes() []byte {
	return []byte(v)
}
