// Package utils provides shared utility functions for keystash.
//
// This package contains general-purpose helpers used across multiple packages.
// Functions are organized into logical groups:
//
// # Filesystem Utilities
//
// Functions for working with the filesystem:
//   - FileSystem / OSFileSystem: the file-permission service used when
//     persisting the keystore
//   - FileExists, FilePermissions: inspection helpers used by doctor
//
// # System Utilities
//
// Functions for interacting with the operating system:
//   - GetUsername: returns the current system username
//   - GetHostname: returns the system hostname
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//
// # Terminal Utilities
//
//   - IsTerminal: checks if stdout is a terminal
package utils
