// Package secrets provides symmetric key material and the cache cipher for keystash.
//
// # Key Generation
//
// Generator produces fresh random keys from crypto/rand for a named
// algorithm. Names are matched case-insensitively:
//
//   - AES (256-bit), AES-128, AES-192, AES-256
//   - XSalsa20-Poly1305 (256-bit, NaCl secretbox)
//   - HmacSHA256 (256-bit, integrity only)
//
// An unknown algorithm fails with a *KeyGenerationError. That failure is a
// misconfiguration and is never retried.
//
// # Cache Encryption
//
// Seal and Open protect cache artifacts with a SecretKey. AES keys use
// AES-GCM; XSalsa20-Poly1305 keys use secretbox. Both prepend a random nonce
// to the ciphertext, so sealing the same bytes twice produces different
// output.
//
// EncryptFiles writes <file>.sealed next to every input; DecryptFiles reverses
// it. ResolveFiles expands paths, directories and ** globs into the list of
// artifacts to process.
package secrets
