package config

import (
	"os"

	"github.com/spf13/viper"
)

// Source provides configuration values by key.
type Source interface {
	// Lookup returns the value for key and whether it was set.
	Lookup(key string) (string, bool)
}

// EnvSource reads from the process environment.
type EnvSource struct{}

// Lookup implements Source.
func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapSource is a fixed set of values, mostly useful in tests.
type MapSource map[string]string

// Lookup implements Source.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ViperSource reads from a viper instance (config file, bound flags and
// environment).
type ViperSource struct {
	V *viper.Viper
}

// Lookup implements Source.
func (s ViperSource) Lookup(key string) (string, bool) {
	if s.V == nil || !s.V.IsSet(key) {
		return "", false
	}
	return s.V.GetString(key), true
}
