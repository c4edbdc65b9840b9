// Package device connects the engine to real hardware: the physical evdev
// keyboard it reads and grabs, and the uinput keyboard it writes. Only
// Linux has evdev and uinput; elsewhere every device operation returns
// ErrNotAvailable.
package device

import (
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"
)

var (
	// ErrClosed is returned by ReadEvent after the device has been closed.
	ErrClosed = errors.New("device: closed")

	// ErrNotAvailable is returned on platforms without evdev and uinput.
	ErrNotAvailable = errors.New("device: evdev and uinput require linux")
)

// Keyboard describes an input device that looks like a keyboard.
type Keyboard struct {
	Path string
	Name string
}

// InputOptions configures OpenInput.
type InputOptions struct {
	Clock  clockwork.Clock
	Logger *slog.Logger
}
