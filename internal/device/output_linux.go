//go:build linux

package device

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"

	"spacefn/internal/input"
)

// UinputPath is the kernel's uinput control node.
const UinputPath = "/dev/uinput"

// virtual is the subset of *evdev.InputDevice used by Output.
type virtual interface {
	WriteOne(*evdev.InputEvent) error
	Close() error
}

// Output is the virtual keyboard that receives the remapped stream.
type Output struct {
	name string
	dev  virtual
	log  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// CreateOutput creates a uinput keyboard named name with the same
// capabilities as from.
func CreateOutput(name string, from *Input, logger *slog.Logger) (*Output, error) {
	if from.raw == nil {
		return nil, errors.New("device: input has no kernel device to clone")
	}
	if err := CheckAccess(UinputPath, unix.W_OK); err != nil {
		return nil, err
	}

	dev, err := evdev.CloneDevice(name, from.raw)
	if err != nil {
		return nil, fmt.Errorf("create virtual keyboard %q: %w", name, err)
	}

	out := newOutput(name, dev, logger)
	out.log.Info("created virtual keyboard", "name", name, "from", from.Path())
	return out, nil
}

func newOutput(name string, dev virtual, logger *slog.Logger) *Output {
	if logger == nil {
		logger = slog.Default()
	}
	return &Output{name: name, dev: dev, log: logger}
}

// Name returns the virtual device name.
func (o *Output) Name() string {
	return o.name
}

// WriteEvent implements engine.Writer. Key transitions are followed by a
// SYN_REPORT so consumers see each one as its own frame; other events are
// written as they are.
func (o *Output) WriteEvent(ev input.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}

	if err := o.dev.WriteOne(toEvdev(ev)); err != nil {
		return err
	}
	if !ev.IsKey() {
		return nil
	}
	return o.dev.WriteOne(toEvdev(input.Event{Type: input.TypeSyn, Code: input.SynReport}))
}

// Close destroys the virtual keyboard.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	if err := o.dev.Close(); err != nil {
		return fmt.Errorf("close virtual keyboard %q: %w", o.name, err)
	}
	return nil
}

func toEvdev(ev input.Event) *evdev.InputEvent {
	return &evdev.InputEvent{
		Type:  evdev.EvType(ev.Type),
		Code:  evdev.EvCode(ev.Code),
		Value: ev.Value,
	}
}
