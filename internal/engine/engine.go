// Package engine implements the tap-or-hold state machine for the trigger
// key.
//
// The engine starts Idle. Pressing the trigger moves it to Deciding, where
// it waits at most one gate interval for the ambiguity to resolve:
//
//	Idle ──trigger press──▶ Deciding ──trigger release──▶ Idle        (tap)
//	                           │
//	                           ├──buffered key release──▶ LayerActive
//	                           └──gate expiry───────────▶ LayerActive
//	LayerActive ──trigger release──▶ Idle
//
// All state lives in one Engine and is touched only by the goroutine that
// calls Run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"spacefn/internal/input"
	"spacefn/internal/remap"
)

// DefaultGate is the decision window used when Options.Gate is zero.
const DefaultGate = 200 * time.Millisecond

// State is the engine's control state.
type State int

const (
	StateIdle State = iota
	StateDeciding
	StateLayerActive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDeciding:
		return "deciding"
	case StateLayerActive:
		return "layer-active"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Layer activation causes reported to the Observer.
const (
	CauseRelease = "release"
	CauseTimeout = "timeout"
)

// Options configures an Engine.
type Options struct {
	// Trigger is the dual-purpose key. Defaults to KEY_SPACE.
	Trigger input.Code
	// Gate bounds how long Deciding waits. Defaults to DefaultGate.
	Gate time.Duration
	// Layers holds the remap tables. Nil means pass everything through.
	Layers *remap.Layers
	// Clock defaults to the real clock.
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Observer Observer
}

// Engine consumes physical key events and produces remapped ones.
type Engine struct {
	in      Reader
	out     Writer
	trigger input.Code
	gate    time.Duration
	layers  *remap.Layers
	clock   clockwork.Clock
	log     *slog.Logger
	obs     Observer

	state  State
	shift  remap.ShiftTracker
	buffer *Buffer
}

// New creates an engine reading from in and writing to out.
func New(in Reader, out Writer, opts Options) *Engine {
	e := &Engine{
		in:      in,
		out:     out,
		trigger: opts.Trigger,
		gate:    opts.Gate,
		layers:  opts.Layers,
		clock:   opts.Clock,
		log:     opts.Logger,
		obs:     opts.Observer,
		state:   StateIdle,
		buffer:  NewBuffer(),
	}
	if e.trigger == input.KeyReserved {
		e.trigger = input.KeySpace
	}
	if e.gate <= 0 {
		e.gate = DefaultGate
	}
	if e.layers == nil {
		e.layers = &remap.Layers{}
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.obs == nil {
		e.obs = nopObserver{}
	}
	return e
}

// State returns the current control state.
func (e *Engine) State() State {
	return e.state
}

// Buffered returns the codes currently pending under the trigger key.
func (e *Engine) Buffered() []input.Code {
	return e.buffer.Codes()
}

// Run drives the state machine until reading or writing fails or ctx is
// done, and returns that error. It never returns nil.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Debug("engine started", "trigger", e.trigger, "gate", e.gate)
	for {
		var err error
		switch e.state {
		case StateIdle:
			err = e.idle(ctx)
		case StateDeciding:
			err = e.decide(ctx)
		case StateLayerActive:
			err = e.layerActive(ctx)
		default:
			err = fmt.Errorf("engine: invalid state %d", e.state)
		}
		if err != nil {
			return err
		}
	}
}

func (e *Engine) idle(ctx context.Context) error {
	for {
		ev, err := e.next(ctx, time.Time{})
		if err != nil {
			return err
		}

		// the trigger press is swallowed until we know what it means
		if ev.Is(e.trigger, input.Press) {
			e.enter(StateDeciding)
			return nil
		}

		if err := e.write(ev); err != nil {
			return err
		}
	}
}

func (e *Engine) decide(ctx context.Context) error {
	e.buffer.Reset()
	deadline := e.clock.Now().Add(e.gate)

	for {
		if !e.clock.Now().Before(deadline) {
			return e.expire()
		}

		ev, err := e.next(ctx, deadline)
		if errors.Is(err, ErrDeadline) {
			return e.expire()
		}
		if err != nil {
			return err
		}

		switch {
		case ev.Value == input.Press:
			if !e.buffer.Append(ev.Code) {
				e.obs.BufferOverflow()
			}

		case ev.Is(e.trigger, input.Release):
			return e.tap()

		case ev.Value == input.Release && !e.buffer.Contains(ev.Code):
			// pressed before the trigger, released inside the window
			if err := e.write(ev); err != nil {
				return err
			}

		case ev.Value == input.Release:
			e.buffer.Remove(ev.Code)
			code := e.layers.Resolve(ev.Code)
			if err := e.stroke(code); err != nil {
				return err
			}
			e.obs.LayerActivated(CauseRelease)
			e.enter(StateLayerActive)
			return nil
		}
		// repeats are dropped while deciding
	}
}

// tap replays the swallowed trigger press, then the keys pressed during the
// window. The replayed keys keep their original codes.
func (e *Engine) tap() error {
	if err := e.stroke(e.trigger); err != nil {
		return err
	}
	for _, code := range e.buffer.Codes() {
		if err := e.emit(code, input.Press); err != nil {
			return err
		}
	}
	e.obs.Tap()
	e.enter(StateIdle)
	return nil
}

// expire commits to the layer when the gate runs out. Buffered keys are
// switched to their layer codes in place and pressed.
func (e *Engine) expire() error {
	for i, code := range e.buffer.Codes() {
		resolved := e.layers.Resolve(code)
		e.buffer.Replace(i, resolved)
		if err := e.emit(resolved, input.Press); err != nil {
			return err
		}
	}
	e.obs.LayerActivated(CauseTimeout)
	e.enter(StateLayerActive)
	return nil
}

func (e *Engine) layerActive(ctx context.Context) error {
	for {
		ev, err := e.next(ctx, time.Time{})
		if err != nil {
			return err
		}

		if ev.Code == e.trigger {
			if ev.Value != input.Release {
				continue
			}
			for _, code := range e.buffer.Codes() {
				if err := e.emit(code, input.Release); err != nil {
					return err
				}
			}
			e.enter(StateIdle)
			return nil
		}

		code, ok := e.layers.Layer.Lookup(ev.Code)
		if !ok {
			if err := e.write(ev); err != nil {
				return err
			}
			continue
		}

		switch ev.Value {
		case input.Press:
			if !e.buffer.Append(code) {
				e.obs.BufferOverflow()
			}
		case input.Release:
			e.buffer.Remove(code)
		}
		if err := e.emit(code, ev.Value); err != nil {
			return err
		}
	}
}

// next returns the next key event after base and shift remapping. Non-key
// events met on the way are forwarded untouched.
func (e *Engine) next(ctx context.Context, deadline time.Time) (input.Event, error) {
	for {
		ev, err := e.in.ReadEvent(ctx, deadline)
		if err != nil {
			if errors.Is(err, ErrDeadline) || ctx.Err() != nil {
				return ev, err
			}
			return ev, fmt.Errorf("read event: %w", err)
		}
		e.obs.EventRead(ev)

		if !ev.IsKey() {
			if err := e.write(ev); err != nil {
				return ev, err
			}
			continue
		}
		return e.layers.Apply(ev, &e.shift), nil
	}
}

func (e *Engine) enter(s State) {
	if s == StateIdle {
		e.buffer.Reset()
	}
	e.log.Debug("state change", "from", e.state, "to", s, "buffered", e.buffer.Len())
	e.state = s
	e.obs.StateChanged(int(s))
}

// stroke emits a press immediately followed by a release.
func (e *Engine) stroke(code input.Code) error {
	if err := e.emit(code, input.Press); err != nil {
		return err
	}
	return e.emit(code, input.Release)
}

func (e *Engine) emit(code input.Code, value int32) error {
	return e.write(input.Key(code, value))
}

func (e *Engine) write(ev input.Event) error {
	if err := e.out.WriteEvent(ev); err != nil {
		return fmt.Errorf("write %s: %w", ev, err)
	}
	e.obs.EventWritten(ev)
	return nil
}
