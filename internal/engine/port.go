package engine

import (
	"context"
	"errors"
	"time"

	"spacefn/internal/input"
)

// ErrDeadline is returned by a Reader when the deadline passes before an
// event arrives. It marks the end of the decision window, not a failure.
var ErrDeadline = errors.New("engine: deadline passed")

// Reader yields events from the physical keyboard, one at a time, in the
// order the device produced them.
type Reader interface {
	// ReadEvent blocks until the next event. A zero deadline waits
	// indefinitely; otherwise ErrDeadline is returned once it passes.
	ReadEvent(ctx context.Context, deadline time.Time) (input.Event, error)
}

// Writer emits events to the virtual keyboard. Implementations follow every
// key transition with a synchronization marker before returning.
type Writer interface {
	WriteEvent(ev input.Event) error
}

// Observer is told about engine activity. It is used for metrics only and
// never influences behavior.
type Observer interface {
	EventRead(ev input.Event)
	EventWritten(ev input.Event)
	Tap()
	LayerActivated(cause string)
	BufferOverflow()
	StateChanged(state int)
}

type nopObserver struct{}

func (nopObserver) EventRead(input.Event)    {}
func (nopObserver) EventWritten(input.Event) {}
func (nopObserver) Tap()                     {}
func (nopObserver) LayerActivated(string)    {}
func (nopObserver) BufferOverflow()          {}
func (nopObserver) StateChanged(int)         {}
