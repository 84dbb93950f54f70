// Package audit provides the audit trail for keystash operations.
//
// Key acquisitions, encryption, decryption and resets are recorded in a log
// next to the caches it describes, so a user can tell when a key was
// created, recovered or replaced.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	<cache root>/audit.jsonl
//
// The file is created with mode 0600. Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Username and operation name
//   - Operation-specific details (outcome, key fingerprint, files)
//
// Key material is never logged, only its fingerprint.
//
// # Usage
//
//	entry := audit.NewEntry("encrypt")
//	entry.Files = sealedFiles
//	audit.Log(cacheRoot, entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error.
//
// Use ReadEntries() to parse the audit log for display or analysis.
// Malformed entries are silently skipped to handle partial writes.
package audit
