// Package workflows provides high-level orchestration for keystash commands.
//
// Workflows coordinate multiple operations across packages (configs,
// keysource, secrets, audit) to implement complete user-facing features.
// Each workflow handles a single command's business logic, independent of
// CLI concerns like flag parsing, spinners, and output formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Calls the appropriate workflow function
//   - Formats the result for display
//
// Workflows handle everything else: loading configuration, acquiring the
// key, performing the operation and recording audit entries.
//
// # Available Workflows
//
//   - Key: Returns the cache key, creating or repairing the keystore
//   - KeyPath: Reports where the keystore lives without locking it
//   - Encrypt: Seals cache artifacts into .sealed files
//   - Decrypt: Opens .sealed files back to the artifacts
//   - Doctor: Read-only health checks on configuration and keystore
//   - Reset: Deletes the keystore so the next use creates a new key
//   - Log: Reads and filters the audit trail
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package, allowing
// the CLI layer to provide appropriate user-facing messages without string
// matching:
//
//	result, err := workflows.Key(ctx, opts)
//	var regen *kerrors.RegenerationError
//	if errors.As(err, &regen) {
//	    // Both the load failure and the regeneration failure are available.
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Cancelling it stops a workflow that is waiting for the keystore lock.
package workflows
