package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetUsername(t *testing.T) {
	username, err := GetUsername()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if username == "" {
		t.Errorf("Expected a non-empty username")
	}
}

func TestOSFileSystem_Chmod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gradle.keystore")
	// #nosec G306 -- the test flips the mode right after.
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if err := (OSFileSystem{}).Chmod(path, 0600); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	mode, err := FilePermissions(path)
	if err != nil {
		t.Fatalf("Failed to stat test file: %v", err)
	}
	if mode != 0600 {
		t.Errorf("Expected mode 0600, got: %o", mode)
	}
}

func TestOSFileSystem_ChmodMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")
	if err := (OSFileSystem{}).Chmod(path, 0600); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{"Present", path, true},
		{"Missing", filepath.Join(dir, "missing"), false},
		{"Directory", dir, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exists, err := FileExists(tc.path)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if exists != tc.expected {
				t.Errorf("FileExists(%q) = %t, expected %t", tc.path, exists, tc.expected)
			}
		})
	}
}
