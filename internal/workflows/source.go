package workflows

import (
	"fmt"

	"github.com/PolarWolf314/keystash/internal/cache"
	"github.com/PolarWolf314/keystash/internal/configs"
	"github.com/PolarWolf314/keystash/internal/keysource"
	logger "github.com/PolarWolf314/keystash/internal/logging"
)

// SourceOptions selects the keystore a workflow works with.
type SourceOptions struct {
	// KeystoreDir overrides the configured custom keystore root.
	KeystoreDir string

	// Logger receives key source diagnostics.
	Logger logger.Logger
}

// source is the key source a workflow runs against, plus the config it came from.
type source struct {
	keys   *keysource.KeySource
	config *configs.Config
}

// cacheRoot is where the audit log lives.
func (s *source) cacheRoot() string {
	return s.config.CacheRoot()
}

// loadSource reads the user config, applies environment overrides, and
// builds the key source it describes.
func loadSource(opts SourceOptions) (*source, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, err
	}
	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configs.ConfigPath(), err)
	}

	dir := config.Keystore.Dir
	if opts.KeystoreDir != "" {
		dir = opts.KeystoreDir
	}

	factory := cache.NewFactory(config.CacheRoot()).WithLogger(opts.Logger)
	keys := keysource.New(factory, keysource.Options{
		Algorithm:    config.Keystore.Algorithm,
		Alias:        config.Keystore.Alias,
		CustomDir:    dir,
		PlatformType: config.KeystoreType(),
		Logger:       opts.Logger,
	})

	return &source{keys: keys, config: config}, nil
}
