package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/keystash/internal/errors"
	"github.com/PolarWolf314/keystash/internal/keystore"
	"github.com/PolarWolf314/keystash/internal/secrets"
)

// Environment variables that override the config file.
const (
	EnvKeystoreType = keystore.PlatformTypeEnv
	EnvKeyAlias     = "KEYSTASH_KEY_ALIAS"
	EnvKeyAlgorithm = "KEYSTASH_KEY_ALGORITHM"
	EnvKeystoreDir  = "KEYSTASH_KEYSTORE_DIR"
	EnvCacheDir     = "KEYSTASH_CACHE_DIR"
)

const configFileName = "config.toml"

type Config struct {
	Keystore KeystoreConfig `toml:"keystore"`
	Cache    CacheConfig    `toml:"cache"`
}

type KeystoreConfig struct {
	// Type overrides the platform default keystore type.
	Type      string `toml:"type"`
	Alias     string `toml:"alias"`
	Algorithm string `toml:"algorithm"`
	// Dir is a custom keystore root used instead of the cache root.
	Dir string `toml:"dir"`
}

type CacheConfig struct {
	Root string `toml:"root"`
}

// ConfigPath returns the location of the user config file.
func ConfigPath() string {
	return filepath.Join(UserKeystashSettings.UserConfigsPath, configFileName)
}

// LoadConfig loads the user configuration from the config file.
// A missing file yields an empty Config.
func LoadConfig() (*Config, error) {
	config := &Config{}

	configPath := ConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	if err := LoadTOML(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return config, nil
}

// SaveConfig saves the user configuration to the config file.
func SaveConfig(config *Config) error {
	if err := SaveTOML(ConfigPath(), config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values with any KEYSTASH_* variables that are set.
func (c *Config) ApplyEnv() {
	override := func(dst *string, name string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}
	override(&c.Keystore.Type, EnvKeystoreType)
	override(&c.Keystore.Alias, EnvKeyAlias)
	override(&c.Keystore.Algorithm, EnvKeyAlgorithm)
	override(&c.Keystore.Dir, EnvKeystoreDir)
	override(&c.Cache.Root, EnvCacheDir)
}

// Validate checks the keystore type and algorithm names. Empty values are
// valid and select the defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.Keystore.Type != "" {
		t := keystore.ParseType(c.Keystore.Type)
		if !t.Supported() && !t.Denylisted() {
			errs = append(errs, fmt.Errorf("%w: %q", kerrors.ErrUnsupportedKeystoreType, c.Keystore.Type))
		}
	}

	if c.Keystore.Algorithm != "" {
		if _, ok := secrets.CanonicalAlgorithm(c.Keystore.Algorithm); !ok {
			errs = append(errs, fmt.Errorf("%w: %q", kerrors.ErrUnsupportedAlgorithm, c.Keystore.Algorithm))
		}
	}

	if c.Keystore.Dir != "" && !filepath.IsAbs(c.Keystore.Dir) {
		errs = append(errs, fmt.Errorf("keystore dir must be an absolute path: %q", c.Keystore.Dir))
	}
	if c.Cache.Root != "" && !filepath.IsAbs(c.Cache.Root) {
		errs = append(errs, fmt.Errorf("cache root must be an absolute path: %q", c.Cache.Root))
	}

	return errors.Join(errs...)
}

// CacheRoot returns the configured cache root, or the user default.
func (c *Config) CacheRoot() string {
	if c.Cache.Root != "" {
		return c.Cache.Root
	}
	return UserKeystashSettings.CacheRoot
}

// KeystoreType returns the configured platform keystore type before
// denylist resolution.
func (c *Config) KeystoreType() keystore.Type {
	if c.Keystore.Type != "" {
		return keystore.ParseType(c.Keystore.Type)
	}
	return keystore.PlatformDefaultType()
}
