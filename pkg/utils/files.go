package utils

import (
	"fmt"
	"os"
)

// MakeDir creates path and any missing parents.
func MakeDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// WorkDir creates a fresh scratch directory under base. The returned
// cleanup removes it with everything inside.
func WorkDir(base, prefix string) (string, func(), error) {
	if err := MakeDir(base); err != nil {
		return "", nil, err
	}
	dir, err := os.MkdirTemp(base, prefix+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create work dir in %s: %w", base, err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// MoveFile renames src to dst, replacing dst.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}
	return nil
}
