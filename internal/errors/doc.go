// Package errors provides typed error values for keystash.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This makes
// error handling more robust and refactoring-safe.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Key errors: key material could not be produced (ErrUnsupportedAlgorithm)
//   - Keystore errors: container or file problems (ErrCorruptKeystore, ErrKeystorePermissions)
//   - Crypto errors: cache encryption failures (ErrEncryptFailed, ErrDecryptFailed)
//   - File errors: file system issues (ErrNoFilesFound, ErrFileNotFound)
//
// # Structured Errors
//
// Three failures carry extra context:
//
//   - KeyGenerationError names the algorithm that could not be generated.
//   - CorruptKeystoreError names the keystore path and wraps the parse or I/O cause.
//     It always matches ErrCorruptKeystore.
//   - RegenerationError is returned when rebuilding a corrupt keystore fails.
//     It unwraps to both the regeneration cause and the original load failure,
//     so errors.Is finds either of them.
//
// # Usage
//
//	key, err := source.GetKey(ctx)
//	var regenErr *kerrors.RegenerationError
//	if errors.As(err, &regenErr) {
//	    // both regenErr.Err and regenErr.LoadErr are available
//	}
package errors
