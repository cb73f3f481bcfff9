package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/goccy/go-yaml"
)

var paramRef = regexp.MustCompile(`\$\{([A-Za-z0-9_.\-]+)\}`)

// Unmarshal parses a YAML services document. ${name} references are replaced
// with values from params before parsing.
func Unmarshal(data []byte, params *EnvSource) (*Config, error) {
	resolved, err := resolveParams(data, params)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve parameters: %w", err)
	}

	var c Config
	if err := yaml.UnmarshalWithOptions(resolved, &c, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("invalid config document format: %w", err)
	}

	slog.Debug("loaded compaction config", "services", len(c.Services))
	return &c, nil
}

// ReadFile reads and parses a services document from disk.
func ReadFile(path string, params *EnvSource) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data, params)
}

func resolveParams(data []byte, params *EnvSource) ([]byte, error) {
	var missing []string
	resolved := paramRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		name := string(paramRef.FindSubmatch(ref)[1])
		value, ok := params.Get(name)
		if !ok {
			missing = append(missing, name)
			return ref
		}
		return []byte(value)
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing parameters %q", missing)
	}
	return resolved, nil
}
