package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"spacefn/internal/input"
)

func TestBuffer_AppendContainsRemove(t *testing.T) {
	b := NewBuffer()
	assert.Equal(t, 0, b.Len())
	assert.False(t, b.Contains(keyA))

	assert.True(t, b.Append(keyA))
	assert.True(t, b.Append(keyB))
	assert.True(t, b.Append(keyC))
	assert.True(t, b.Contains(keyB))

	assert.True(t, b.Remove(keyB))
	assert.False(t, b.Contains(keyB))
	assert.Equal(t, []input.Code{keyA, keyC}, b.Codes(), "removal keeps relative order")

	assert.False(t, b.Remove(keyB), "removing a missing code reports false")
	assert.Equal(t, []input.Code{keyA, keyC}, b.Codes())
}

func TestBuffer_RemoveFirstKeepsOrder(t *testing.T) {
	b := NewBuffer()
	for _, c := range []input.Code{keyA, keyB, keyC, keyD} {
		b.Append(c)
	}

	b.Remove(keyA)
	assert.Equal(t, []input.Code{keyB, keyC, keyD}, b.Codes())

	b.Remove(keyD)
	assert.Equal(t, []input.Code{keyB, keyC}, b.Codes())
}

func TestBuffer_CapacityBound(t *testing.T) {
	b := NewBuffer()
	var want []input.Code
	for i := 0; i < BufferCapacity; i++ {
		code := input.Code(100 + i)
		want = append(want, code)
		assert.True(t, b.Append(code))
	}

	assert.False(t, b.Append(input.Code(200)), "ninth append is dropped")
	assert.Equal(t, BufferCapacity, b.Len())
	assert.Equal(t, want, b.Codes(), "existing entries are untouched")
	assert.False(t, b.Contains(input.Code(200)))
}

func TestBuffer_ReplaceAndReset(t *testing.T) {
	b := NewBuffer()
	b.Append(keyA)
	b.Append(keyB)

	b.Replace(1, keyLeft)
	assert.Equal(t, []input.Code{keyA, keyLeft}, b.Codes())

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Codes())
	assert.True(t, b.Append(keyC))
}

func TestBuffer_CodesIsSnapshot(t *testing.T) {
	b := NewBuffer()
	b.Append(keyA)
	codes := b.Codes()
	codes[0] = keyB

	assert.Equal(t, []input.Code{keyA}, b.Codes())
}
