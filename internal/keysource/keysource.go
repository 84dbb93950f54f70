package keysource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PolarWolf314/keystash/internal/cache"
	kerrors "github.com/PolarWolf314/keystash/internal/errors"
	"github.com/PolarWolf314/keystash/internal/keystore"
	logger "github.com/PolarWolf314/keystash/internal/logging"
	"github.com/PolarWolf314/keystash/internal/secrets"
	"github.com/PolarWolf314/keystash/internal/utils"
)

const (
	// CacheName is the name of the cache directory holding the keystore.
	CacheName = "cc-keystore"
	// DisplayName is the human readable name of that cache.
	DisplayName = "keystash configuration cache keystore"
	// FileName is the keystore file inside the cache directory.
	FileName = "gradle.keystore"

	// DefaultAlias is the keystore entry used when Options.Alias is empty.
	DefaultAlias = "gradle-secret"
	// DefaultAlgorithm is generated when Options.Algorithm is empty.
	DefaultAlgorithm = secrets.AlgorithmAES

	// The keystore is protected by file permissions, not by this password.
	password = "cc"
)

// Password returns the fixed keystore password.
func Password() []byte {
	return []byte(password)
}

// Outcome tells how Acquire obtained the key.
type Outcome string

const (
	// OutcomeCreated means a new keystore was written.
	OutcomeCreated Outcome = "created"
	// OutcomeLoaded means the key was read from an existing keystore.
	OutcomeLoaded Outcome = "loaded"
	// OutcomeAdded means an existing keystore lacked the alias and a key was added to it.
	OutcomeAdded Outcome = "added"
	// OutcomeRecovered means an unreadable keystore was replaced by a new one.
	OutcomeRecovered Outcome = "recovered"
)

// KeyGenerator produces fresh secret keys. *secrets.Generator implements it.
type KeyGenerator interface {
	Generate(algorithm string) (secrets.SecretKey, error)
}

// Options configures a KeySource. Zero values select the defaults.
type Options struct {
	Algorithm string
	Alias     string

	// CustomDir replaces the factory root as the parent of the cache directory.
	CustomDir string

	// PlatformType is the platform default keystore type before resolution.
	PlatformType keystore.Type

	FileSystem utils.FileSystem
	Generator  KeyGenerator
	Logger     logger.Logger
}

// Result describes one key acquisition.
type Result struct {
	Key     secrets.SecretKey
	Outcome Outcome
	Path    string
	Type    keystore.Type
}

// KeySource hands out the persistent cache encryption key.
type KeySource struct {
	factory   *cache.Factory
	algorithm string
	alias     string
	customDir string
	resolver  keystore.Resolver
	fs        utils.FileSystem
	gen       KeyGenerator
	log       logger.Logger
}

// New returns a KeySource whose keystore lives in the CacheName cache of
// factory, or of opts.CustomDir when set.
func New(factory *cache.Factory, opts Options) *KeySource {
	s := &KeySource{
		factory:   factory,
		algorithm: strings.TrimSpace(opts.Algorithm),
		alias:     strings.TrimSpace(opts.Alias),
		customDir: opts.CustomDir,
		fs:        opts.FileSystem,
		gen:       opts.Generator,
		log:       opts.Logger,
	}
	if s.algorithm == "" {
		s.algorithm = DefaultAlgorithm
	}
	if s.alias == "" {
		s.alias = DefaultAlias
	}
	platformType := opts.PlatformType
	if platformType == "" {
		platformType = keystore.PlatformDefaultType()
	}
	s.resolver = keystore.NewResolver(platformType)
	if s.fs == nil {
		s.fs = utils.OSFileSystem{}
	}
	if s.gen == nil {
		s.gen = secrets.NewGenerator()
	}
	return s
}

// Alias returns the keystore alias the key is stored under.
func (s *KeySource) Alias() string {
	return s.alias
}

// Algorithm returns the algorithm used for new keys.
func (s *KeySource) Algorithm() string {
	return s.algorithm
}

// Type returns the resolved keystore type.
func (s *KeySource) Type() keystore.Type {
	return s.resolver.Resolve()
}

// Resolver returns the keystore type resolver.
func (s *KeySource) Resolver() keystore.Resolver {
	return s.resolver
}

// Dir returns the cache directory holding the keystore.
func (s *KeySource) Dir() string {
	return filepath.Join(s.scopeFactory().Root(), CacheName)
}

// Path returns the keystore file path.
func (s *KeySource) Path() string {
	return filepath.Join(s.Dir(), FileName)
}

// Description names the keystore for messages.
func (s *KeySource) Description() string {
	if s.customDir != "" {
		return fmt.Sprintf("custom keystash keystore (%s) at %s", s.Type(), s.customDir)
	}
	return fmt.Sprintf("default keystash keystore (%s)", s.Type())
}

// GetKey returns the cache encryption key, creating or repairing the keystore
// as needed.
func (s *KeySource) GetKey(ctx context.Context) (secrets.SecretKey, error) {
	result, err := s.Acquire(ctx)
	if err != nil {
		return secrets.SecretKey{}, err
	}
	return result.Key, nil
}

// Acquire returns the cache encryption key and how it was obtained.
//
// The keystore cache is locked for the whole call. A keystore that cannot be
// loaded is regenerated once; if that also fails a *RegenerationError is
// returned carrying both failures. Key generation and permission failures
// are returned as is.
func (s *KeySource) Acquire(ctx context.Context) (*Result, error) {
	typ := s.resolver.Resolve()
	s.log.Debugf("Using %s", s.Description())

	var created *secrets.SecretKey
	c, err := s.scopeFactory().Builder(CacheName).
		WithDisplayName(DisplayName).
		WithInitializer(func(c *cache.Cache) error {
			key, err := s.createKeystore(c.BaseDir(), typ)
			if err != nil {
				return err
			}
			created = &key
			return nil
		}).
		Open(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	result := &Result{Path: filepath.Join(c.BaseDir(), FileName), Type: typ}
	if created != nil {
		s.log.Infof("Created new keystore at %s", result.Path)
		result.Key, result.Outcome = *created, OutcomeCreated
		return result, nil
	}

	ks, loadErr := keystore.LoadFile(typ, result.Path, Password())
	if loadErr != nil {
		s.log.Warnf("Could not load %s, regenerating it: %v", s.Description(), loadErr)
		key, err := s.createKeystore(c.BaseDir(), typ)
		if err != nil {
			return nil, &kerrors.RegenerationError{Err: err, LoadErr: loadErr}
		}
		result.Key, result.Outcome = key, OutcomeRecovered
		return result, nil
	}

	if key, ok := ks.Entry(s.alias); ok {
		s.log.Debugf("Loaded key %q from %s", s.alias, result.Path)
		result.Key, result.Outcome = key, OutcomeLoaded
		return result, nil
	}

	s.log.Warnf("Keystore at %s has no entry %q, adding a new key", result.Path, s.alias)
	key, err := s.addKey(ks, result.Path)
	if err != nil {
		return nil, err
	}
	result.Key, result.Outcome = key, OutcomeAdded
	return result, nil
}

// createKeystore writes a new keystore holding one fresh key, replacing any
// file already in dir.
func (s *KeySource) createKeystore(dir string, typ keystore.Type) (secrets.SecretKey, error) {
	ks, err := keystore.CreateEmpty(typ)
	if err != nil {
		return secrets.SecretKey{}, err
	}
	return s.addKey(ks, filepath.Join(dir, FileName))
}

func (s *KeySource) addKey(ks *keystore.Keystore, path string) (secrets.SecretKey, error) {
	key, err := s.gen.Generate(s.algorithm)
	if err != nil {
		return secrets.SecretKey{}, err
	}
	if err := ks.SetEntry(s.alias, key); err != nil {
		return secrets.SecretKey{}, err
	}
	if err := keystore.WriteFile(s.fs, path, ks, Password()); err != nil {
		return secrets.SecretKey{}, err
	}
	s.log.Debugf("Stored key %q (%s) in %s", s.alias, key.Algorithm, path)
	return key, nil
}

func (s *KeySource) scopeFactory() *cache.Factory {
	if s.customDir != "" {
		return s.factory.WithRoot(s.customDir)
	}
	return s.factory
}

// Reset deletes the keystore and marks its cache uninitialized, so the next
// Acquire creates a new key. It reports whether a keystore file existed.
func (s *KeySource) Reset(ctx context.Context) (bool, error) {
	c, err := s.scopeFactory().Builder(CacheName).WithDisplayName(DisplayName).Open(ctx)
	if err != nil {
		return false, err
	}
	defer c.Close()

	path := filepath.Join(c.BaseDir(), FileName)
	existed, err := utils.FileExists(path)
	if err != nil {
		return false, err
	}
	if existed {
		if err := os.Remove(path); err != nil {
			return false, fmt.Errorf("failed to remove keystore at %s: %w", path, err)
		}
		s.log.Infof("Removed keystore at %s", path)
	}
	if err := c.Invalidate(); err != nil {
		return existed, err
	}
	return existed, nil
}
