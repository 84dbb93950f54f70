package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logger "github.com/PolarWolf314/keystash/internal/logging"
	"github.com/PolarWolf314/keystash/internal/utils"

	"github.com/gofrs/flock"
)

const (
	// MarkerFileName is written once the initializer of a cache has succeeded.
	MarkerFileName = "cache.properties"

	dirMode        os.FileMode = 0700
	lockRetryDelay             = 25 * time.Millisecond
)

// Initializer populates a cache the first time it is opened. It runs with the
// cache lock held.
type Initializer func(c *Cache) error

// Factory hands out builders for named caches under one root directory.
type Factory struct {
	root string
	log  logger.Logger
}

// NewFactory returns a Factory rooted at root.
func NewFactory(root string) *Factory {
	return &Factory{root: root}
}

// Root returns the directory that holds the factory's caches.
func (f *Factory) Root() string {
	return f.root
}

// WithRoot returns a copy of the factory rooted at dir.
func (f *Factory) WithRoot(dir string) *Factory {
	return &Factory{root: dir, log: f.log}
}

// WithLogger returns a copy of the factory that traces lock activity to log.
func (f *Factory) WithLogger(log logger.Logger) *Factory {
	return &Factory{root: f.root, log: log}
}

// Builder starts configuring the cache called name.
func (f *Factory) Builder(name string) *Builder {
	return &Builder{root: f.root, name: name, displayName: name, log: f.log}
}

// Builder configures a cache before it is opened.
type Builder struct {
	root        string
	name        string
	displayName string
	initializer Initializer
	log         logger.Logger
}

// WithDisplayName sets the human readable name used in logs and errors.
func (b *Builder) WithDisplayName(displayName string) *Builder {
	b.displayName = displayName
	return b
}

// WithInitializer registers the function run when the cache has never been
// initialized.
func (b *Builder) WithInitializer(fn Initializer) *Builder {
	b.initializer = fn
	return b
}

// Open locks the cache and returns a handle to it. It blocks until the lock
// is acquired or ctx is done.
//
// If the cache has not been initialized, the initializer runs before Open
// returns. A failing initializer releases the lock and leaves the cache
// uninitialized, so the next Open runs it again.
//
// The caller must Close the returned cache.
func (b *Builder) Open(ctx context.Context) (*Cache, error) {
	if err := validateName(b.name); err != nil {
		return nil, err
	}
	if b.root == "" {
		return nil, fmt.Errorf("no cache root configured for %s", b.displayName)
	}

	baseDir := filepath.Join(b.root, b.name)
	if err := os.MkdirAll(baseDir, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", b.displayName, err)
	}

	lockPath := filepath.Join(baseDir, b.name+".lock")
	lock := flock.New(lockPath)

	b.log.Debugf("Waiting for lock on %s", lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", b.displayName, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock %s: %w", b.displayName, ctx.Err())
	}
	b.log.Debugf("Acquired lock on %s", lockPath)

	c := &Cache{
		baseDir:     baseDir,
		name:        b.name,
		displayName: b.displayName,
		lock:        lock,
		log:         b.log,
	}

	markerPath := filepath.Join(baseDir, MarkerFileName)
	initialized, err := utils.FileExists(markerPath)
	if err != nil {
		c.release()
		return nil, err
	}
	if initialized {
		return c, nil
	}

	if b.initializer != nil {
		b.log.Debugf("Initializing %s", b.displayName)
		if err := b.initializer(c); err != nil {
			c.release()
			return nil, fmt.Errorf("failed to initialize %s: %w", b.displayName, err)
		}
	}

	if err := writeMarker(markerPath, b.name, b.displayName); err != nil {
		c.release()
		return nil, err
	}
	c.initialized = true

	return c, nil
}

// Cache is an open, locked cache directory. No other process or goroutine can
// open the same cache until Close is called.
type Cache struct {
	baseDir     string
	name        string
	displayName string
	initialized bool

	lock      *flock.Flock
	log       logger.Logger
	closeOnce sync.Once
	closeErr  error
}

// BaseDir returns the directory owned by the cache.
func (c *Cache) BaseDir() string {
	return c.baseDir
}

// Name returns the cache name the builder was created with.
func (c *Cache) Name() string {
	return c.name
}

// DisplayName returns the human readable cache name.
func (c *Cache) DisplayName() string {
	return c.displayName
}

// Initialized reports whether this acquisition ran the initializer.
func (c *Cache) Initialized() bool {
	return c.initialized
}

// InitializedAt returns when the cache was last initialized.
func (c *Cache) InitializedAt() (time.Time, error) {
	m, err := readMarker(filepath.Join(c.baseDir, MarkerFileName))
	if err != nil {
		return time.Time{}, err
	}
	return m.CreatedAt, nil
}

// Invalidate removes the initialization marker. The next Open runs the
// initializer again.
func (c *Cache) Invalidate() error {
	err := os.Remove(filepath.Join(c.baseDir, MarkerFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to invalidate %s: %w", c.displayName, err)
	}
	return nil
}

// Close releases the cache lock. It is safe to call more than once.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.lock.Unlock()
		if c.closeErr == nil {
			c.log.Debugf("Released lock on %s", c.displayName)
		}
	})
	return c.closeErr
}

func (c *Cache) release() {
	_ = c.Close()
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("cache name must not be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid cache name %q", name)
	}
	return nil
}
