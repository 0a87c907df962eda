// Package secrets reads credentials from the environment, with support for
// the Docker secrets convention: when FOO_FILE is set, the value is read
// from that file instead of the FOO variable.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// GetSecret resolves envKey, preferring a _FILE indirection over the plain
// environment variable. The file contents are trimmed of whitespace.
func GetSecret(envKey string, defaultValue string) (string, error) {
	if filePath := os.Getenv(envKey + "_FILE"); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read secret file %s: %w", filePath, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if value := os.Getenv(envKey); value != "" {
		return value, nil
	}

	return defaultValue, nil
}

// GetOptionalSecret resolves envKey and falls back to defaultValue on any
// error. Use for credentials that gate optional features.
func GetOptionalSecret(envKey string, defaultValue string) string {
	value, err := GetSecret(envKey, defaultValue)
	if err != nil {
		return defaultValue
	}
	return value
}
