//go:build !linux

package device

import (
	"context"
	"log/slog"
	"time"

	"spacefn/internal/input"
)

// Input is unavailable on this platform.
type Input struct{}

// OpenInput returns ErrNotAvailable.
func OpenInput(path string, opts InputOptions) (*Input, error) {
	return nil, ErrNotAvailable
}

func (in *Input) Path() string { return "" }
func (in *Input) Name() string { return "" }

func (in *Input) Grab(ctx context.Context, delay time.Duration) error {
	return ErrNotAvailable
}

func (in *Input) ReadEvent(ctx context.Context, deadline time.Time) (input.Event, error) {
	return input.Event{}, ErrNotAvailable
}

func (in *Input) Close() error { return nil }

// Output is unavailable on this platform.
type Output struct{}

// CreateOutput returns ErrNotAvailable.
func CreateOutput(name string, from *Input, logger *slog.Logger) (*Output, error) {
	return nil, ErrNotAvailable
}

func (o *Output) Name() string { return "" }

func (o *Output) WriteEvent(ev input.Event) error {
	return ErrNotAvailable
}

func (o *Output) Close() error { return nil }

// ListKeyboards returns ErrNotAvailable.
func ListKeyboards() ([]Keyboard, error) {
	return nil, ErrNotAvailable
}
