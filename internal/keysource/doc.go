// Package keysource supplies the persistent secret key that encrypts the
// build cache.
//
// The key is kept in a keystore file, gradle.keystore, inside the cc-keystore
// cache directory. Acquire locks that cache and then does exactly one of:
//
//   - create: the cache was never initialized, so a new keystore with one
//     fresh key is written
//   - load: the keystore holds the configured alias and its key is returned
//   - add: the keystore loads but lacks the alias; a key is generated and
//     added next to the existing entries
//   - recover: the keystore cannot be loaded, so it is replaced with a new
//     one holding a fresh key
//
// Recovery is attempted once. If it fails too, Acquire returns a
// *errors.RegenerationError carrying both the regeneration failure and the
// load failure. Key generation failures are never retried.
//
// The keystore file is made owner-only before any key bytes are written to
// it. Nothing is cached between calls; every Acquire reads the file again.
package keysource
