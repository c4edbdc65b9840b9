package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Format names accepted by Parse.
const (
	FormatAuto = ""
	FormatTOML = "toml"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

//go:embed config.schema.json
var schemaJSON string

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("config.schema.json", schemaJSON)
})

// loadConfigFromFile reads and parses a config file based on its extension.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FormatFromPath picks the format from the file extension. Unknown
// extensions (including the original ".cfg") are auto-detected.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatAuto
	}
}

// Parse decodes data on top of DefaultConfig. The document is checked
// against the embedded schema first so misspelled keys are reported
// instead of silently ignored.
func Parse(data []byte, format string) (*Config, error) {
	raw, format, err := decodeRaw(data, format)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(raw); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	}
	return cfg, nil
}

// decodeRaw decodes data into a generic document and reports the format
// that succeeded.
func decodeRaw(data []byte, format string) (map[string]any, string, error) {
	var raw map[string]any
	switch format {
	case FormatTOML:
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, "", fmt.Errorf("decode TOML: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, "", fmt.Errorf("decode JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, "", fmt.Errorf("decode YAML: %w", err)
		}
	case FormatAuto:
		return autoDetect(data)
	default:
		return nil, "", fmt.Errorf("unsupported config format %q", format)
	}

	if raw == nil {
		raw = map[string]any{}
	}
	return raw, format, nil
}

// autoDetect tries TOML, then JSON, then YAML.
func autoDetect(data []byte) (map[string]any, string, error) {
	for _, format := range []string{FormatTOML, FormatJSON, FormatYAML} {
		if raw, _, err := decodeRaw(data, format); err == nil {
			return raw, format, nil
		}
	}
	return nil, "", fmt.Errorf("unable to parse config file (tried TOML, JSON, YAML)")
}

func validateSchema(raw map[string]any) error {
	schema, err := compileSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	// TOML and YAML decode numbers as Go integers; the validator expects
	// the shapes encoding/json produces. json.Number keeps large integers
	// exact against the interval maximum.
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("normalize config: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("normalize config: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
