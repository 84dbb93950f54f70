// Package keystore implements the password-protected container that holds
// keystash's secret keys.
//
// # Container Types
//
// A keystore is written in one of two formats:
//
//   - cbor: binary, a "KSTC" header followed by a CBOR document
//   - toml: text, a TOML document with base64 byte fields
//
// The jks and dks types are recognized but cannot hold secret-key entries.
// Resolver substitutes FallbackType for them, so a platform default of jks
// still produces a usable keystore. Any other unknown type is passed through
// and fails when the container is created or opened.
//
// # Protection
//
// A 64-byte key is derived from the container password with PBKDF2-SHA256.
// The first half seals each entry's key material with NaCl secretbox; the
// second half authenticates the whole container with HMAC-SHA256 over its
// deterministic CBOR encoding. A wrong password and a flipped byte look the
// same to Load: both return a *CorruptKeystoreError.
//
// The password used by keystash is a fixed placeholder. Confidentiality of
// the file comes from its 0600 mode, which WriteFile applies to a temporary
// file before writing any bytes. The temporary file is then renamed over the
// keystore, so a failed write leaves the previous keystore intact.
//
// # Entries
//
// Aliases are case-insensitive and unique. SetEntry on a loaded keystore
// keeps every other entry, and Store always writes all of them.
package keystore
