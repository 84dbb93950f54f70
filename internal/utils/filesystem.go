package utils

import (
	"errors"
	"fmt"
	"os"
)

// FileSystem sets permission bits on files. Keystore persistence goes through
// it so tests can observe or fail the call.
type FileSystem interface {
	Chmod(path string, mode os.FileMode) error
}

// OSFileSystem is the FileSystem backed by the operating system.
type OSFileSystem struct{}

// Chmod changes the mode of the named file.
func (OSFileSystem) Chmod(path string, mode os.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("failed to chmod %s to %o: %w", path, mode, err)
	}
	return nil
}

// FileExists reports whether a regular file exists at path.
// Errors other than "not exist" are returned.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking for %s: %w", path, err)
	}
	return info.Mode().IsRegular(), nil
}

// FilePermissions returns the permission bits of the file at path.
func FilePermissions(path string) (os.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Mode().Perm(), nil
}
