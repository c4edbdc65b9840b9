//go:build linux

package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sys/unix"

	"spacefn/internal/engine"
	"spacefn/internal/input"
)

// physical is the subset of *evdev.InputDevice used by Input.
type physical interface {
	ReadOne() (*evdev.InputEvent, error)
	Grab() error
	Ungrab() error
	Close() error
}

type readResult struct {
	ev  input.Event
	err error
}

// Input is the physical keyboard. Reads happen on one goroutine that feeds
// a channel, so events reach the engine in device order while ReadEvent can
// still honor a deadline.
type Input struct {
	path  string
	name  string
	raw   *evdev.InputDevice
	dev   physical
	clock clockwork.Clock
	log   *slog.Logger

	start   sync.Once
	results chan readResult
	done    chan struct{}

	mu      sync.Mutex
	grabbed bool
	closed  bool
}

// OpenInput opens the keyboard at path. The device is not grabbed yet.
func OpenInput(path string, opts InputOptions) (*Input, error) {
	if err := CheckAccess(path, unix.R_OK); err != nil {
		return nil, err
	}

	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	in := newInput(path, dev, opts)
	in.raw = dev
	if name, err := dev.Name(); err == nil {
		in.name = name
	}
	in.log.Info("opened input device", "path", path, "name", in.name)
	return in, nil
}

func newInput(path string, dev physical, opts InputOptions) *Input {
	in := &Input{
		path:    path,
		dev:     dev,
		clock:   opts.Clock,
		log:     opts.Logger,
		results: make(chan readResult, 64),
		done:    make(chan struct{}),
	}
	if in.clock == nil {
		in.clock = clockwork.NewRealClock()
	}
	if in.log == nil {
		in.log = slog.Default()
	}
	return in
}

// Path returns the device node path.
func (in *Input) Path() string {
	return in.path
}

// Name returns the device name reported by the kernel.
func (in *Input) Name() string {
	return in.name
}

// Grab waits for delay, then takes exclusive access to the device so its
// events reach no other listener. The delay lets keys held while the daemon
// starts (typically Enter) be released first.
func (in *Input) Grab(ctx context.Context, delay time.Duration) error {
	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-in.clock.After(delay):
		}
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return ErrClosed
	}
	if err := in.dev.Grab(); err != nil {
		return fmt.Errorf("grab %s: %w", in.path, err)
	}
	in.grabbed = true
	in.log.Info("grabbed input device", "path", in.path)
	return nil
}

// ReadEvent implements engine.Reader.
func (in *Input) ReadEvent(ctx context.Context, deadline time.Time) (input.Event, error) {
	in.start.Do(func() { go in.readLoop() })

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		wait := deadline.Sub(in.clock.Now())
		if wait <= 0 {
			return input.Event{}, engine.ErrDeadline
		}
		timer := in.clock.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.Chan()
	}

	select {
	case r, ok := <-in.results:
		if !ok {
			return input.Event{}, ErrClosed
		}
		return r.ev, r.err
	case <-timeout:
		return input.Event{}, engine.ErrDeadline
	case <-ctx.Done():
		return input.Event{}, ctx.Err()
	}
}

func (in *Input) readLoop() {
	defer close(in.results)
	for {
		ev, err := in.dev.ReadOne()
		r := readResult{err: err}
		if err == nil {
			r.ev = input.Event{Type: input.Type(ev.Type), Code: input.Code(ev.Code), Value: ev.Value}
		}

		select {
		case in.results <- r:
		case <-in.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Close releases the grab and closes the device. It is safe to call more
// than once.
func (in *Input) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return nil
	}
	in.closed = true
	close(in.done)

	var errs []error
	if in.grabbed {
		if err := in.dev.Ungrab(); err != nil {
			errs = append(errs, fmt.Errorf("ungrab %s: %w", in.path, err))
		}
		in.grabbed = false
	}
	if err := in.dev.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s: %w", in.path, err))
	}
	return errors.Join(errs...)
}

// CheckAccess reports a readable error when the current process lacks mode
// access (unix.R_OK, unix.W_OK) to path.
func CheckAccess(path string, mode uint32) error {
	if err := unix.Access(path, mode); err != nil {
		return fmt.Errorf("access %s: %w (run as root or add the user to the 'input' group)", path, err)
	}
	return nil
}
