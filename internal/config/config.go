// Package config handles configuration loading and validation for spacefnd.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"spacefn/internal/input"
	"spacefn/internal/remap"
)

// Defaults.
const (
	DefaultIntervalMicros = 200000
	DefaultGrabDelayMs    = 200
	DefaultVirtualName    = "spacefn virtual keyboard"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultLogOutput      = "stderr"
)

// MaxIntervalMicros is the largest interval whose window fits in a
// time.Duration.
const MaxIntervalMicros = math.MaxInt64 / int64(time.Microsecond)

// ErrNoDevice is reported when no input device is configured.
var ErrNoDevice = errors.New("no input device configured")

// Config holds the complete daemon configuration.
type Config struct {
	// Device is the evdev node of the physical keyboard, for example
	// /dev/input/by-id/usb-...-event-kbd.
	Device string `toml:"device" json:"device" yaml:"device"`

	// Interval is the tap-or-hold decision window in microseconds.
	Interval int64 `toml:"interval" json:"interval" yaml:"interval"`

	// Trigger is the dual-purpose key.
	Trigger Key `toml:"trigger" json:"trigger" yaml:"trigger"`

	// GrabDelayMs is how long to wait before grabbing the device so keys
	// held at startup are released to their original consumer.
	GrabDelayMs int `toml:"grab_delay_ms" json:"grab_delay_ms" yaml:"grab_delay_ms"`

	// WaitForDeviceSec waits up to this long for Device to appear.
	// Zero fails at once when the node is missing.
	WaitForDeviceSec int `toml:"wait_for_device_sec" json:"wait_for_device_sec" yaml:"wait_for_device_sec"`

	// VirtualName is the name of the uinput keyboard.
	VirtualName string `toml:"virtual_name" json:"virtual_name" yaml:"virtual_name"`

	// Remap is applied to every key event first.
	Remap TableConfig `toml:"remap" json:"remap" yaml:"remap"`

	// Shift is applied while either shift key is held.
	Shift TableConfig `toml:"shift" json:"shift" yaml:"shift"`

	// Layer holds the codes used while the trigger is held.
	Layer TableConfig `toml:"layer" json:"layer" yaml:"layer"`

	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// TableConfig is a remap table as two parallel lists.
type TableConfig struct {
	Keys   []Key `toml:"key" json:"key" yaml:"key"`
	Values []Key `toml:"value" json:"value" yaml:"value"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is stderr, stdout, file or both (stderr and file).
	Output string `toml:"output" json:"output" yaml:"output"`

	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
}

// MetricsConfig holds the optional metrics endpoint and stats log.
type MetricsConfig struct {
	// Listen is the host:port of the /metrics endpoint. Empty disables it.
	Listen string `toml:"listen" json:"listen" yaml:"listen"`

	// ReportIntervalSec logs a counter summary this often. Zero disables it.
	ReportIntervalSec int `toml:"report_interval_sec" json:"report_interval_sec" yaml:"report_interval_sec"`
}

// DefaultConfig returns a configuration with every optional field set.
func DefaultConfig() *Config {
	return &Config{
		Interval:    DefaultIntervalMicros,
		Trigger:     Key(input.KeySpace),
		GrabDelayMs: DefaultGrabDelayMs,
		VirtualName: DefaultVirtualName,
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			Output:     DefaultLogOutput,
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads path, applies environment overrides, then each override in
// order, and validates the result.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with SPACEFN_.
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv("SPACEFN_DEVICE"); v != "" {
		c.Device = v
	}
	if v := os.Getenv("SPACEFN_INTERVAL"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SPACEFN_INTERVAL: %w", err)
		}
		c.Interval = n
	}
	if v := os.Getenv("SPACEFN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SPACEFN_METRICS_LISTEN"); v != "" {
		c.Metrics.Listen = v
	}
	return nil
}

// Gate returns the decision window.
func (c *Config) Gate() time.Duration {
	return time.Duration(c.Interval) * time.Microsecond
}

// GrabDelay returns the settle delay before grabbing the device.
func (c *Config) GrabDelay() time.Duration {
	return time.Duration(c.GrabDelayMs) * time.Millisecond
}

// WaitForDevice returns how long to wait for the device node.
func (c *Config) WaitForDevice() time.Duration {
	return time.Duration(c.WaitForDeviceSec) * time.Second
}

// ReportInterval returns the stats log period.
func (c *Config) ReportInterval() time.Duration {
	return time.Duration(c.Metrics.ReportIntervalSec) * time.Second
}

// Tables builds the three remap tables.
func (c *Config) Tables() (*remap.Layers, error) {
	var tables [3]*remap.Table
	for i, sec := range c.sections() {
		t, err := sec.cfg.table()
		if err != nil {
			return nil, fmt.Errorf("[%s] %w", sec.name, err)
		}
		tables[i] = t
	}
	return &remap.Layers{Base: tables[0], Shift: tables[1], Layer: tables[2]}, nil
}

type section struct {
	name string
	cfg  TableConfig
}

func (c *Config) sections() []section {
	return []section{{"remap", c.Remap}, {"shift", c.Shift}, {"layer", c.Layer}}
}

func (t TableConfig) table() (*remap.Table, error) {
	return remap.NewTable(codes(t.Keys), codes(t.Values))
}

func codes(keys []Key) []input.Code {
	out := make([]input.Code, len(keys))
	for i, k := range keys {
		out[i] = k.Code()
	}
	return out
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
