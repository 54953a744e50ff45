package utils

import (
	"fmt"
	"os"
)

// EnsureDataDir creates the persisted-state directory if it does not
// exist and returns its path. Used for vector indices and the embedding
// consistency marker.
func EnsureDataDir(path string) (string, error) {
	if path == "" {
		path = ".open-persona"
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory at '%s': %w", path, err)
	}

	return path, nil
}
