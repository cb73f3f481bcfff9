package config

import (
	"os"
	"strings"
	"unicode"
)

// EnvPrefix starts every environment variable an EnvSource consults.
const EnvPrefix = "COMPACTION_"

// MapSource is a fixed set of configuration values.
type MapSource map[string]string

func (s MapSource) Get(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// EnvSource holds eagerly loaded configuration values and falls back to
// environment variables.
type EnvSource struct {
	params map[string]string
}

func NewEnvSource() *EnvSource {
	return &EnvSource{
		params: make(map[string]string),
	}
}

func (s *EnvSource) Set(key, value string) {
	s.params[key] = value
}

// Get retrieves key's value from the params map, falling back to the
// environment variable named by EnvVar. A nil source only reads the
// environment.
func (s *EnvSource) Get(key string) (string, bool) {
	if s != nil {
		if value, exists := s.params[key]; exists {
			return value, true
		}
	}

	value := os.Getenv(EnvVar(key))
	if value != "" {
		return value, true
	}

	return "", false
}

// EnvVar maps a configuration key to an environment variable name, for
// example compaction.service.cs1.planner.opts.maxOpen becomes
// COMPACTION_COMPACTION_SERVICE_CS1_PLANNER_OPTS_MAXOPEN.
func EnvVar(key string) string {
	return EnvPrefix + strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, key)
}
