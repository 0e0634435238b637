package env

import "os"

// Service configuration lives under the SHOPFLOW_ prefix. Lookups honor the
// prefixed name first so a bare name in the parent shell cannot shadow it.
const prefix = "SHOPFLOW_"

// Get returns the value of SHOPFLOW_<key>, then <key>, then the fallback.
func Get(key, fallback string) string {
	if val := os.Getenv(prefix + key); val != "" {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
