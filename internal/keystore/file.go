package keystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	kerrors "github.com/PolarWolf314/keystash/internal/errors"
	"github.com/PolarWolf314/keystash/internal/utils"
)

// FileMode keeps the keystore readable by its owner only.
const FileMode os.FileMode = 0600

// LoadFile reads and parses the keystore at path. Read failures are reported
// the same way as malformed contents, as a *CorruptKeystoreError.
func LoadFile(t Type, path string, password []byte) (*Keystore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &kerrors.CorruptKeystoreError{Path: path, Err: err}
	}

	ks, err := Load(t, data, password)
	if err != nil {
		var corrupt *kerrors.CorruptKeystoreError
		if errors.As(err, &corrupt) {
			return nil, &kerrors.CorruptKeystoreError{Path: path, Err: corrupt.Err}
		}
		return nil, err
	}
	return ks, nil
}

// WriteFile persists ks at path. The container is written to a temporary
// file in the same directory whose mode is restricted through fs before any
// bytes reach it, then renamed over path.
//
// Returns an error wrapping ErrKeystorePermissions if the mode cannot be set.
// On any failure the temporary file is removed and an existing keystore at
// path is left untouched.
func WriteFile(fs utils.FileSystem, path string, ks *Keystore, password []byte) (err error) {
	data, err := Store(ks, password)
	if err != nil {
		return fmt.Errorf("failed to serialize keystore: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create keystore directory: %w", err)
	}

	file, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary keystore in %s: %w", dir, err)
	}
	tmpPath := file.Name()
	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := fs.Chmod(tmpPath, FileMode); err != nil {
		return fmt.Errorf("%w at %s: %v", kerrors.ErrKeystorePermissions, path, err)
	}

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write keystore file at %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync keystore file at %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close keystore file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace keystore at %s: %w", path, err)
	}
	return nil
}
