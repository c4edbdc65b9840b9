//go:build linux

package device

import (
	"fmt"
	"slices"

	evdev "github.com/holoplot/go-evdev"
)

// ListKeyboards enumerates /dev/input and returns the devices that report
// both KEY_A and KEY_SPACE. Devices that cannot be opened are skipped.
func ListKeyboards() ([]Keyboard, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}

	var kbds []Keyboard
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		if isKeyboard(dev.CapableEvents(evdev.EV_KEY)) {
			kbds = append(kbds, Keyboard{Path: p.Path, Name: p.Name})
		}
		dev.Close()
	}
	return kbds, nil
}

func isKeyboard(codes []evdev.EvCode) bool {
	return slices.Contains(codes, evdev.KEY_A) && slices.Contains(codes, evdev.KEY_SPACE)
}
