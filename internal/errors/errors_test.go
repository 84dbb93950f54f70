package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestCorruptKeystoreError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("loading: %w", &CorruptKeystoreError{Path: "/tmp/gradle.keystore", Err: fs.ErrNotExist})

	if !errors.Is(err, ErrCorruptKeystore) {
		t.Errorf("Expected error to match ErrCorruptKeystore")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected error to match wrapped cause")
	}
	if !IsCorruptKeystore(err) {
		t.Errorf("Expected IsCorruptKeystore to be true")
	}
}

func TestRegenerationError_KeepsBothCauses(t *testing.T) {
	loadErr := &CorruptKeystoreError{Err: errors.New("bad mac")}
	err := &RegenerationError{Err: ErrKeystorePermissions, LoadErr: loadErr}

	if !errors.Is(err, ErrKeystorePermissions) {
		t.Errorf("Expected regeneration cause to be reachable")
	}
	if !errors.Is(err, ErrCorruptKeystore) {
		t.Errorf("Expected load cause to be reachable")
	}

	var corrupt *CorruptKeystoreError
	if !errors.As(err, &corrupt) || corrupt != loadErr {
		t.Errorf("Expected errors.As to find the original load error")
	}
}

func TestRegenerationError_WithoutLoadErr(t *testing.T) {
	err := &RegenerationError{Err: ErrUnsupportedKeystoreType}

	if errors.Is(err, ErrCorruptKeystore) {
		t.Errorf("Expected no corrupt keystore cause")
	}
	if got := err.Error(); got != "failed to regenerate keystore: unsupported keystore type" {
		t.Errorf("Unexpected message: %s", got)
	}
}

func TestKeyGenerationError(t *testing.T) {
	err := fmt.Errorf("creating keystore: %w", &KeyGenerationError{Algorithm: "Blowfish", Err: ErrUnsupportedAlgorithm})

	if !IsKeyGenerationError(err) {
		t.Errorf("Expected IsKeyGenerationError to be true")
	}
	if !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Errorf("Expected error to match ErrUnsupportedAlgorithm")
	}
	if IsKeyGenerationError(ErrUnsupportedAlgorithm) {
		t.Errorf("Expected bare sentinel not to be a KeyGenerationError")
	}
}
