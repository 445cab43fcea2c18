// Package env holds one-off environment reads that fall outside the
// envconfig-managed configuration.
package env

import "os"

// Get reads an environment variable, returning fallback when unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
