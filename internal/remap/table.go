// Package remap holds the key remapping tables applied to every key event:
// the base keymap, the shift-variant map and the modifier-layer map.
package remap

import (
	"fmt"

	"spacefn/internal/input"
)

// Pair maps one source code to a destination code.
type Pair struct {
	From input.Code
	To   input.Code
}

// Table is an ordered list of pairs. Sources may repeat; the earliest entry
// wins, so a later duplicate never overrides an earlier one.
//
// The zero value and a nil *Table are both empty tables.
type Table struct {
	pairs []Pair
}

// NewTable combines keys and values positionally.
func NewTable(keys, values []input.Code) (*Table, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("remap: %d keys but %d values", len(keys), len(values))
	}
	t := &Table{pairs: make([]Pair, len(keys))}
	for i := range keys {
		t.pairs[i] = Pair{From: keys[i], To: values[i]}
	}
	return t, nil
}

// Lookup returns the destination of the first pair whose source is code.
// ok is false when code is unmapped, which is the common case.
func (t *Table) Lookup(code input.Code) (input.Code, bool) {
	if t == nil {
		return 0, false
	}
	for _, p := range t.pairs {
		if p.From == code {
			return p.To, true
		}
	}
	return 0, false
}

// Len returns the number of pairs.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.pairs)
}

// Pairs returns a copy of the table contents in order.
func (t *Table) Pairs() []Pair {
	if t == nil {
		return nil
	}
	return append([]Pair(nil), t.pairs...)
}
