// Package input defines the key codes and events that flow between the
// physical keyboard, the remapping engine and the virtual keyboard.
//
// Codes follow the Linux input-event numbering. The engine never interprets
// a code beyond equality and the handful of named keys below.
package input

import (
	"fmt"
	"strconv"
	"strings"

	evdev "github.com/holoplot/go-evdev"
)

// Code identifies a physical key.
type Code uint16

// Named keys the daemon itself cares about.
const (
	KeyReserved   = Code(evdev.KEY_RESERVED)
	KeySpace      = Code(evdev.KEY_SPACE)
	KeyLeftShift  = Code(evdev.KEY_LEFTSHIFT)
	KeyRightShift = Code(evdev.KEY_RIGHTSHIFT)
)

// Transition values carried in Event.Value for key events.
const (
	Release int32 = 0
	Press   int32 = 1
	Repeat  int32 = 2
)

// Type is the event class.
type Type uint16

const (
	TypeSyn = Type(evdev.EV_SYN)
	TypeKey = Type(evdev.EV_KEY)
	TypeMsc = Type(evdev.EV_MSC)
)

// SynReport is the code of the synchronization marker written after every
// key transition.
const SynReport = Code(evdev.SYN_REPORT)

// Event is one structured input event.
type Event struct {
	Type  Type
	Code  Code
	Value int32
}

// Key builds a key event.
func Key(code Code, value int32) Event {
	return Event{Type: TypeKey, Code: code, Value: value}
}

// IsKey reports whether the event is a key transition.
func (e Event) IsKey() bool {
	return e.Type == TypeKey
}

// Is reports whether e is a key event for code with the given transition.
func (e Event) Is(code Code, value int32) bool {
	return e.IsKey() && e.Code == code && e.Value == value
}

func (e Event) String() string {
	if !e.IsKey() {
		return fmt.Sprintf("type=%d code=%d value=%d", e.Type, e.Code, e.Value)
	}
	return fmt.Sprintf("%s %s", e.Code, TransitionName(e.Value))
}

// TransitionName returns a short name for a key transition value.
func TransitionName(v int32) string {
	switch v {
	case Release:
		return "release"
	case Press:
		return "press"
	case Repeat:
		return "repeat"
	default:
		return strconv.Itoa(int(v))
	}
}

// String returns the evdev name of the code, or its number when unnamed.
func (c Code) String() string {
	if name, ok := evdev.KEYToString[evdev.EvCode(c)]; ok {
		return name
	}
	return strconv.Itoa(int(c))
}

// ParseCode accepts an evdev key name ("KEY_J"), a bare key name ("j",
// "leftshift") or a decimal code.
func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty key")
	}

	if n, err := strconv.ParseUint(s, 10, 16); err == nil {
		return Code(n), nil
	}

	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "KEY_") && !strings.HasPrefix(name, "BTN_") {
		name = "KEY_" + name
	}
	if code, ok := evdev.KEYFromString[name]; ok {
		return Code(code), nil
	}
	return 0, fmt.Errorf("unknown key %q", s)
}
