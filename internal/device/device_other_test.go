//go:build !linux

package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnsupportedPlatform(t *testing.T) {
	_, err := OpenInput("/dev/input/event3", InputOptions{})
	assert.ErrorIs(t, err, ErrNotAvailable)

	_, err = CreateOutput("spacefn virtual keyboard", &Input{}, nil)
	assert.ErrorIs(t, err, ErrNotAvailable)

	_, err = ListKeyboards()
	assert.ErrorIs(t, err, ErrNotAvailable)
}
