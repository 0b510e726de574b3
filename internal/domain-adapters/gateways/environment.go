package gateways

import "os"

// OSEnvironment reads the real process environment
type OSEnvironment struct{}

// Lookup returns the value of an environment variable
func (OSEnvironment) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnvironment is a fixed environment, used in tests and dry runs
type MapEnvironment map[string]string

// Lookup returns the value of a key in the map
func (m MapEnvironment) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}
