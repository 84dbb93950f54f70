package errors

import (
	"errors"
	"fmt"
)

// Key errors indicate the key material could not be produced or found.
var (
	// ErrUnsupportedAlgorithm indicates the runtime has no key generator for the requested algorithm.
	ErrUnsupportedAlgorithm = errors.New("unsupported key algorithm")

	// ErrKeyNotFound indicates the keystore has no entry for the requested alias.
	ErrKeyNotFound = errors.New("encryption key not found")

	// ErrInvalidKeyLength indicates the symmetric key has an unexpected length.
	ErrInvalidKeyLength = errors.New("invalid symmetric key length")
)

// Keystore errors indicate problems with the keystore container or its file.
var (
	// ErrCorruptKeystore indicates the keystore bytes are unreadable, of the wrong type,
	// or failed the password check.
	ErrCorruptKeystore = errors.New("keystore is corrupt or unreadable")

	// ErrUnsupportedKeystoreType indicates no container codec exists for the keystore type.
	ErrUnsupportedKeystoreType = errors.New("unsupported keystore type")

	// ErrKeystorePermissions indicates the keystore file permissions could not be restricted.
	ErrKeystorePermissions = errors.New("failed to restrict keystore file permissions")

	// ErrKeystoreNotFound indicates no keystore file exists yet.
	ErrKeystoreNotFound = errors.New("keystore not found")
)

// Cryptographic errors indicate failures during encryption or decryption operations.
var (
	// ErrEncryptFailed indicates file encryption failed.
	ErrEncryptFailed = errors.New("failed to encrypt file")

	// ErrDecryptFailed indicates file decryption failed.
	ErrDecryptFailed = errors.New("failed to decrypt file")
)

// File errors indicate issues with file discovery or access.
var (
	// ErrNoFilesFound indicates no files matched the provided patterns.
	ErrNoFilesFound = errors.New("no matching files found")

	// ErrFileNotFound indicates a specific file could not be located.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidFileType indicates the file is not of the expected type.
	ErrInvalidFileType = errors.New("invalid file type")

	// ErrInvalidDateFormat indicates a date filter could not be parsed.
	ErrInvalidDateFormat = errors.New("invalid date format")
)

// KeyGenerationError reports that key material could not be generated.
// It is fatal and never retried.
type KeyGenerationError struct {
	Algorithm string
	Err       error
}

func (e *KeyGenerationError) Error() string {
	return fmt.Sprintf("failed to generate encryption key using %s: %v", e.Algorithm, e.Err)
}

func (e *KeyGenerationError) Unwrap() error {
	return e.Err
}

// CorruptKeystoreError reports a keystore that could not be loaded.
// Path is empty when the bytes did not come from a file.
type CorruptKeystoreError struct {
	Path string
	Err  error
}

func (e *CorruptKeystoreError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %v", ErrCorruptKeystore, e.Err)
	}
	return fmt.Sprintf("%v at %s: %v", ErrCorruptKeystore, e.Path, e.Err)
}

func (e *CorruptKeystoreError) Unwrap() error {
	return e.Err
}

// Is makes every CorruptKeystoreError match ErrCorruptKeystore.
func (e *CorruptKeystoreError) Is(target error) bool {
	return target == ErrCorruptKeystore
}

// RegenerationError reports that regenerating a keystore after a failed load
// also failed. LoadErr keeps the original load failure.
type RegenerationError struct {
	Err     error
	LoadErr error
}

func (e *RegenerationError) Error() string {
	if e.LoadErr == nil {
		return fmt.Sprintf("failed to regenerate keystore: %v", e.Err)
	}
	return fmt.Sprintf("failed to regenerate keystore: %v (after load failure: %v)", e.Err, e.LoadErr)
}

func (e *RegenerationError) Unwrap() []error {
	if e.LoadErr == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.LoadErr}
}

// IsCorruptKeystore reports whether err is, or wraps, a corrupt keystore failure.
func IsCorruptKeystore(err error) bool {
	return errors.Is(err, ErrCorruptKeystore)
}

// IsKeyGenerationError reports whether err is, or wraps, a KeyGenerationError.
func IsKeyGenerationError(err error) bool {
	var genErr *KeyGenerationError
	return errors.As(err, &genErr)
}
