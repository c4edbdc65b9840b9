package config

import (
	"fmt"
	"net"
	"strings"

	"spacefn/internal/input"
)

// maxVirtualName is UINPUT_MAX_NAME_SIZE less the terminating NUL.
const maxVirtualName = 79

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string

	// Warning marks issues that are reported but do not stop the daemon.
	Warning bool

	// Err is an optional sentinel for errors.Is.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsWarning returns true if this is a non-fatal validation issue.
func (e *ValidationError) IsWarning() bool {
	return e.Warning
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap exposes each entry to errors.Is and errors.As.
func (e ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i := range e {
		errs[i] = &e[i]
	}
	return errs
}

// Warnings returns only warning-level validation errors.
func (e ValidationErrors) Warnings() ValidationErrors {
	var warnings ValidationErrors
	for _, err := range e {
		if err.IsWarning() {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Errors returns only error-level validation errors.
func (e ValidationErrors) Errors() ValidationErrors {
	var errs ValidationErrors
	for _, err := range e {
		if !err.IsWarning() {
			errs = append(errs, err)
		}
	}
	return errs
}

// HasErrors returns true if there are any non-warning errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e.Errors()) > 0
}

// ValidateConfig returns the error-level issues in c, or nil. Warnings are
// available from Check.
func ValidateConfig(c *Config) error {
	if errs := Check(c); errs.HasErrors() {
		return errs.Errors()
	}
	return nil
}

// Check returns every issue in c, warnings included.
func Check(c *Config) ValidationErrors {
	var errs ValidationErrors

	if c.Device == "" {
		errs = append(errs, ValidationError{
			Field:   "device",
			Message: "required field is missing",
			Err:     ErrNoDevice,
		})
	}

	switch {
	case c.Interval <= 0:
		errs = append(errs, ValidationError{
			Field:   "interval",
			Message: fmt.Sprintf("must be a positive number of microseconds, got %d", c.Interval),
		})
	case c.Interval > MaxIntervalMicros:
		errs = append(errs, ValidationError{
			Field:   "interval",
			Message: fmt.Sprintf("cannot exceed %d microseconds, got %d", MaxIntervalMicros, c.Interval),
		})
	}

	if c.Trigger.Code() == input.KeyReserved {
		errs = append(errs, ValidationError{
			Field:   "trigger",
			Message: "KEY_RESERVED cannot be the trigger",
		})
	}

	if c.GrabDelayMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "grab_delay_ms",
			Message: "cannot be negative",
		})
	}

	if c.WaitForDeviceSec < 0 {
		errs = append(errs, ValidationError{
			Field:   "wait_for_device_sec",
			Message: "cannot be negative",
		})
	}

	switch {
	case c.VirtualName == "":
		errs = append(errs, ValidationError{
			Field:   "virtual_name",
			Message: "cannot be empty",
		})
	case len(c.VirtualName) > maxVirtualName:
		errs = append(errs, ValidationError{
			Field:   "virtual_name",
			Message: fmt.Sprintf("longer than %d bytes", maxVirtualName),
		})
	}

	for _, sec := range c.sections() {
		errs = append(errs, validateTable(sec.name, sec.cfg)...)
	}

	if _, ok := layerKeys(c)[c.Trigger.Code()]; ok {
		errs = append(errs, ValidationError{
			Field:   "layer.key",
			Message: fmt.Sprintf("%s is the trigger and its layer mapping is never used", c.Trigger),
			Warning: true,
		})
	}

	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateMetrics(&c.Metrics)...)

	return errs
}

func validateTable(name string, t TableConfig) ValidationErrors {
	if len(t.Keys) == len(t.Values) {
		return nil
	}
	return ValidationErrors{{
		Field:   name,
		Message: fmt.Sprintf("%d keys but %d values", len(t.Keys), len(t.Values)),
	}}
}

func layerKeys(c *Config) map[input.Code]struct{} {
	keys := make(map[input.Code]struct{}, len(c.Layer.Keys))
	for _, k := range c.Layer.Keys {
		keys[k.Code()] = struct{}{}
	}
	return keys
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
		// Valid formats
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: fmt.Sprintf("file path is required when output is '%s'", l.Output),
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stderr, stdout, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 0 || l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "rotation limits cannot be negative",
		})
	}

	return errs
}

func validateMetrics(m *MetricsConfig) ValidationErrors {
	var errs ValidationErrors

	if m.Listen != "" {
		if _, _, err := net.SplitHostPort(m.Listen); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics.listen",
				Message: fmt.Sprintf("invalid address %q: %v", m.Listen, err),
			})
		}
	}

	if m.ReportIntervalSec < 0 {
		errs = append(errs, ValidationError{
			Field:   "metrics.report_interval_sec",
			Message: "cannot be negative",
		})
	}

	return errs
}
