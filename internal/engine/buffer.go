package engine

import (
	"slices"

	"spacefn/internal/input"
)

// BufferCapacity is the number of keys that can be pending under the
// trigger key at once.
const BufferCapacity = 8

// Buffer is a small ordered set of key codes. Removing a code keeps the
// relative order of the rest. Uniqueness is left to the caller.
type Buffer struct {
	codes []input.Code
}

// NewBuffer returns an empty buffer with BufferCapacity slots.
func NewBuffer() *Buffer {
	return &Buffer{codes: make([]input.Code, 0, BufferCapacity)}
}

// Contains reports whether code is buffered.
func (b *Buffer) Contains(code input.Code) bool {
	return slices.Contains(b.codes, code)
}

// Append adds code at the end. A full buffer is left untouched and false is
// returned; this is not an error.
func (b *Buffer) Append(code input.Code) bool {
	if len(b.codes) >= BufferCapacity {
		return false
	}
	b.codes = append(b.codes, code)
	return true
}

// Remove deletes the first occurrence of code and reports whether it was
// present.
func (b *Buffer) Remove(code input.Code) bool {
	i := slices.Index(b.codes, code)
	if i < 0 {
		return false
	}
	b.codes = slices.Delete(b.codes, i, i+1)
	return true
}

// Replace overwrites the code at position i.
func (b *Buffer) Replace(i int, code input.Code) {
	b.codes[i] = code
}

// Codes returns a snapshot of the buffered codes in order.
func (b *Buffer) Codes() []input.Code {
	return slices.Clone(b.codes)
}

// Len returns the number of buffered codes.
func (b *Buffer) Len() int {
	return len(b.codes)
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.codes = b.codes[:0]
}
