// Package fsutil resolves and prepares database file locations.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// IsMemory reports whether path names an in-memory database rather than a
// file, either ":memory:" or a "file:" URI with mode=memory.
func IsMemory(path string) bool {
	if path == MemoryPath {
		return true
	}
	return strings.HasPrefix(path, "file:") && strings.Contains(path, "mode=memory")
}

// Resolve prepares path for opening: it is made absolute and its parent
// directory is created. In-memory and "file:" URI paths are returned as is.
func Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("database path is empty")
	}
	if IsMemory(path) || strings.HasPrefix(path, "file:") {
		return path, nil
	}

	abs, err := AbsPath(path)
	if err != nil {
		return "", err
	}
	if err := EnsureDir(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

// EnsureDir ensures that a directory exists. Creates it if it doesn't exist.
// Creates parent directories as needed (like mkdir -p).
func EnsureDir(path string, perm os.FileMode) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path exists but is not a directory: %s", path)
		}
		return nil
	}

	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// FileExists checks if a file exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// AbsPath returns the absolute path, resolving any relative components.
func AbsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return absPath, nil
}
