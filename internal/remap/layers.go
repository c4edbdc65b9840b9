package remap

import (
	"spacefn/internal/input"
)

// ShiftTracker follows the physical state of both shift keys.
type ShiftTracker struct {
	left  bool
	right bool
}

// Observe updates the tracker from a key event. Anything other than a
// press or release of a shift key is ignored.
func (s *ShiftTracker) Observe(ev input.Event) {
	if !ev.IsKey() {
		return
	}
	var held *bool
	switch ev.Code {
	case input.KeyLeftShift:
		held = &s.left
	case input.KeyRightShift:
		held = &s.right
	default:
		return
	}
	switch ev.Value {
	case input.Press:
		*held = true
	case input.Release:
		*held = false
	}
}

// Active reports whether either shift key is held.
func (s *ShiftTracker) Active() bool {
	return s.left || s.right
}

// Layers bundles the three tables in the order they are consulted.
type Layers struct {
	// Base is applied to every key event, first and unconditionally.
	Base *Table
	// Shift is applied after Base, only while a shift key is held.
	Shift *Table
	// Layer is consulted by the engine while the trigger key is held.
	Layer *Table
}

// Apply runs the base keymap and the shift-variant map over a key event and
// updates the shift tracker on the way. Non-key events are returned as is.
func (l *Layers) Apply(ev input.Event, shift *ShiftTracker) input.Event {
	if !ev.IsKey() {
		return ev
	}

	if to, ok := l.Base.Lookup(ev.Code); ok {
		ev.Code = to
	}

	shift.Observe(ev)
	if shift.Active() {
		if to, ok := l.Shift.Lookup(ev.Code); ok {
			ev.Code = to
		}
	}
	return ev
}

// Resolve returns the modifier-layer code for code, falling back to code
// itself when the layer leaves it unmapped.
func (l *Layers) Resolve(code input.Code) input.Code {
	if to, ok := l.Layer.Lookup(code); ok {
		return to
	}
	return code
}
