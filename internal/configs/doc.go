// Package configs manages the user configuration for keystash.
//
// Configuration is stored in TOML at <UserConfigDir>/keystash/config.toml:
//
//	[keystore]
//	type = "cbor"
//	alias = "gradle-secret"
//	algorithm = "AES"
//	dir = ""
//
//	[cache]
//	root = ""
//
// Every field is optional. ApplyEnv lets KEYSTASH_KEYSTORE_TYPE,
// KEYSTASH_KEY_ALIAS, KEYSTASH_KEY_ALGORITHM, KEYSTASH_KEYSTORE_DIR and
// KEYSTASH_CACHE_DIR take precedence over the file.
//
// # Settings
//
// UserKeystashSettings is initialized at startup with the default cache root
// and config directory of the current user. Tests may point its paths at a
// temporary directory.
package configs
