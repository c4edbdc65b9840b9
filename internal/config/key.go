package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"spacefn/internal/input"
)

// Key is a key code in a config file. It accepts either a decimal code or
// a key name such as "KEY_J" or "j".
type Key input.Code

// Code returns the key as an input code.
func (k Key) Code() input.Code {
	return input.Code(k)
}

func (k Key) String() string {
	return input.Code(k).String()
}

// UnmarshalTOML implements toml.Unmarshaler.
func (k *Key) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case int64:
		return k.setInt(v)
	case string:
		return k.set(v)
	default:
		return fmt.Errorf("key must be an integer or a name, got %T", v)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *Key) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: key must be an integer or a name", node.Line)
	}
	if err := k.set(node.Value); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *Key) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return k.set(s)
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("key must be an integer or a name: %w", err)
	}
	return k.setInt(n)
}

// MarshalText writes the key by name so saved configs stay readable.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) set(s string) error {
	code, err := input.ParseCode(s)
	if err != nil {
		return err
	}
	*k = Key(code)
	return nil
}

func (k *Key) setInt(n int64) error {
	if n < 0 || n > 0xffff {
		return fmt.Errorf("key code %d out of range", n)
	}
	*k = Key(n)
	return nil
}
