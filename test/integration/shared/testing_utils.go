// Package shared contains testing utilities shared between integration tests.
// This file provides common functions for setting up test environments,
// capturing output, and running the CLI.
package shared

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/PolarWolf314/keystash/cmd"
	"github.com/PolarWolf314/keystash/internal/configs"
	"github.com/PolarWolf314/keystash/internal/keysource"
	logger "github.com/PolarWolf314/keystash/internal/logging"
)

// SetupTestEnvironment points the user settings at temporary directories,
// clears every KEYSTASH_* override and resets the CLI's global state.
// It returns the cache root.
func SetupTestEnvironment(t *testing.T) string {
	t.Helper()

	for _, name := range []string{
		configs.EnvKeystoreType,
		configs.EnvKeyAlias,
		configs.EnvKeyAlgorithm,
		configs.EnvKeystoreDir,
		configs.EnvCacheDir,
	} {
		t.Setenv(name, "")
	}
	t.Setenv("NO_COLOR", "1")

	original := *configs.UserKeystashSettings
	tempDir := t.TempDir()
	configs.UserKeystashSettings.CacheRoot = filepath.Join(tempDir, "cache")
	configs.UserKeystashSettings.UserConfigsPath = filepath.Join(tempDir, "config")
	configs.UserKeystashSettings.Username = "testuser"

	cmd.ResetGlobalState()
	t.Cleanup(func() {
		*configs.UserKeystashSettings = original
		cmd.ResetGlobalState()
	})

	return configs.UserKeystashSettings.CacheRoot
}

// KeystorePath returns where the default keystore lives under cacheRoot.
func KeystorePath(cacheRoot string) string {
	return filepath.Join(cacheRoot, keysource.CacheName, keysource.FileName)
}

// CaptureOutput captures both stdout and stderr during function execution.
func CaptureOutput(fn func() error) (string, error) {
	stdout, stderr, err := CaptureStreams(fn)
	return stdout + stderr, err
}

// CaptureStreams captures stdout and stderr separately during function execution.
func CaptureStreams(fn func() error) (string, string, error) {
	// Save original stdout and stderr
	originalStdout := os.Stdout
	originalStderr := os.Stderr

	// Create pipes to capture output
	stdoutReader, stdoutWriter, _ := os.Pipe()
	stderrReader, stderrWriter, _ := os.Pipe()

	// Replace stdout and stderr
	os.Stdout = stdoutWriter
	os.Stderr = stderrWriter

	stdoutChan := make(chan string, 1)
	stderrChan := make(chan string, 1)

	// Start goroutines to read from pipes
	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stdoutReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stdoutChan <- buf.String()
	}()

	go func() {
		var buf bytes.Buffer
		_, err := io.Copy(&buf, stderrReader)
		if err != nil {
			log.Fatalf("Failed to run copy command: %s", err)
		}
		stderrChan <- buf.String()
	}()

	// Execute the function
	err := fn()

	// Close writers to signal EOF
	stdoutWriter.Close()
	stderrWriter.Close()

	// Restore original stdout and stderr
	os.Stdout = originalStdout
	os.Stderr = originalStderr

	return <-stdoutChan, <-stderrChan, err
}

// RunCLI executes the root command with args and returns everything it
// printed. Global flag state is reset first so runs do not leak into each other.
func RunCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, stderr, err := RunCLIStreams(t, args...)
	return stdout + stderr, err
}

// RunCLIStreams is RunCLI with stdout and stderr kept apart, for commands
// whose stdout is machine-readable while warnings go to stderr.
func RunCLIStreams(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd.ResetGlobalState()
	cmd.SetLogger(logger.Logger{})

	root := cmd.GetRootCmd()
	root.SetArgs(args)
	return CaptureStreams(func() error {
		return root.Execute()
	})
}
