package featureflags

import (
	"os"
	"strings"
)

// Known flags
const (
	HealthStream = "health_stream"
)

// Flags is a snapshot of the FLAG_* environment taken at startup
type Flags map[string]bool

// Load reads every FLAG_<NAME>=true/1/yes/on variable (case-insensitive)
func Load() Flags {
	return FromEnviron(os.Environ())
}

// FromEnviron parses KEY=VALUE pairs as returned by os.Environ
func FromEnviron(env []string) Flags {
	flags := Flags{}
	for _, kv := range env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, "FLAG_") {
			continue
		}
		flags[strings.ToLower(strings.TrimPrefix(key, "FLAG_"))] = truthy(value)
	}
	return flags
}

// Enabled reports whether name was switched on
func (f Flags) Enabled(name string) bool {
	return f[strings.ToLower(name)]
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
