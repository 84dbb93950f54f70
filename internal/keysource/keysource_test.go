package keysource

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/PolarWolf314/keystash/internal/cache"
	kerrors "github.com/PolarWolf314/keystash/internal/errors"
	"github.com/PolarWolf314/keystash/internal/keystore"
	logger "github.com/PolarWolf314/keystash/internal/logging"
	"github.com/PolarWolf314/keystash/internal/secrets"
	"github.com/PolarWolf314/keystash/internal/utils"
)

// countingFS counts Chmod calls and passes them through to the OS.
type countingFS struct {
	calls int32
}

func (c *countingFS) Chmod(path string, mode os.FileMode) error {
	atomic.AddInt32(&c.calls, 1)
	return os.Chmod(path, mode)
}

type failingFS struct{}

func (failingFS) Chmod(string, os.FileMode) error {
	return errors.New("operation not permitted")
}

type countingGenerator struct {
	calls int32
	gen   *secrets.Generator
}

func (c *countingGenerator) Generate(algorithm string) (secrets.SecretKey, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.gen.Generate(algorithm)
}

func newTestSource(t *testing.T, root string, opts Options) (*KeySource, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	opts.Logger = logger.Logger{Out: &logs, ErrOut: &logs}
	if opts.PlatformType == "" {
		opts.PlatformType = keystore.TypeCBOR
	}
	return New(cache.NewFactory(root), opts), &logs
}

func acquire(t *testing.T, s *KeySource) *Result {
	t.Helper()
	result, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	return result
}

func loadKeystore(t *testing.T, s *KeySource) *keystore.Keystore {
	t.Helper()
	ks, err := keystore.LoadFile(s.Type(), s.Path(), Password())
	if err != nil {
		t.Fatalf("Expected a loadable keystore at %s, got: %v", s.Path(), err)
	}
	return ks
}

func TestAcquire_FreshCache(t *testing.T) {
	root := t.TempDir()
	s, _ := newTestSource(t, root, Options{})

	result := acquire(t, s)
	if result.Outcome != OutcomeCreated {
		t.Errorf("Expected outcome created, got: %s", result.Outcome)
	}
	expectedPath := filepath.Join(root, CacheName, FileName)
	if result.Path != expectedPath || s.Path() != expectedPath {
		t.Errorf("Expected keystore at %s, got: %s", expectedPath, result.Path)
	}
	if result.Key.Algorithm != secrets.AlgorithmAES || result.Key.Len() != 32 {
		t.Errorf("Expected 32 byte AES key, got %s with %d bytes", result.Key.Algorithm, result.Key.Len())
	}

	perm, err := utils.FilePermissions(result.Path)
	if err != nil {
		t.Fatalf("Failed to stat keystore: %v", err)
	}
	if perm != 0600 {
		t.Errorf("Expected keystore mode 0600, got: %o", perm)
	}

	entries, err := os.ReadDir(filepath.Join(root, CacheName))
	if err != nil {
		t.Fatalf("Failed to read cache dir: %v", err)
	}
	keystores := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".keystore") {
			keystores++
		}
	}
	if keystores != 1 {
		t.Errorf("Expected exactly one keystore file, found %d", keystores)
	}

	ks := loadKeystore(t, s)
	if ks.Len() != 1 {
		t.Errorf("Expected exactly one entry, got: %d", ks.Len())
	}
	stored, ok := ks.Entry(DefaultAlias)
	if !ok || !stored.Equal(result.Key) {
		t.Errorf("Expected returned key to be stored under %q", DefaultAlias)
	}
}

func TestGetKey_Idempotent(t *testing.T) {
	root := t.TempDir()
	s, _ := newTestSource(t, root, Options{})

	first, err := s.GetKey(context.Background())
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}

	result := acquire(t, s)
	if result.Outcome != OutcomeLoaded {
		t.Errorf("Expected outcome loaded, got: %s", result.Outcome)
	}
	if !result.Key.Equal(first) {
		t.Errorf("Expected the same key on the second call")
	}

	// A separate source over the same cache sees the same key.
	other, _ := newTestSource(t, root, Options{})
	again, err := other.GetKey(context.Background())
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if !again.Equal(first) {
		t.Errorf("Expected the same key from a second source")
	}
}

func TestGetKey_AfterDeletion(t *testing.T) {
	s, logs := newTestSource(t, t.TempDir(), Options{})

	first, err := s.GetKey(context.Background())
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if err := os.Remove(s.Path()); err != nil {
		t.Fatalf("Failed to delete keystore: %v", err)
	}

	result := acquire(t, s)
	if result.Outcome != OutcomeRecovered {
		t.Errorf("Expected outcome recovered, got: %s", result.Outcome)
	}
	if result.Key.Equal(first) {
		t.Errorf("Expected a new key after deletion")
	}
	if !strings.Contains(logs.String(), "regenerating") {
		t.Errorf("Expected a regeneration warning, got: %q", logs.String())
	}
	loadKeystore(t, s)
}

func TestGetKey_CorruptedFile(t *testing.T) {
	for _, typ := range []keystore.Type{keystore.TypeCBOR, keystore.TypeTOML} {
		t.Run(string(typ), func(t *testing.T) {
			s, _ := newTestSource(t, t.TempDir(), Options{PlatformType: typ})

			if _, err := s.GetKey(context.Background()); err != nil {
				t.Fatalf("GetKey failed: %v", err)
			}

			data, err := os.ReadFile(s.Path())
			if err != nil {
				t.Fatalf("Failed to read keystore: %v", err)
			}
			for i := len(data) / 2; i < len(data)/2+8 && i < len(data); i++ {
				data[i] ^= 0xff
			}
			if err := os.WriteFile(s.Path(), data, 0600); err != nil {
				t.Fatalf("Failed to corrupt keystore: %v", err)
			}

			result := acquire(t, s)
			if result.Outcome != OutcomeRecovered {
				t.Errorf("Expected outcome recovered, got: %s", result.Outcome)
			}
			if result.Key.Len() != 32 {
				t.Errorf("Expected a usable key, got %d bytes", result.Key.Len())
			}

			ks := loadKeystore(t, s)
			stored, ok := ks.Entry(DefaultAlias)
			if !ok || !stored.Equal(result.Key) {
				t.Errorf("Expected rewritten keystore to hold the returned key")
			}

			perm, err := utils.FilePermissions(s.Path())
			if err != nil {
				t.Fatalf("Failed to stat keystore: %v", err)
			}
			if perm != 0600 {
				t.Errorf("Expected keystore mode 0600, got: %o", perm)
			}
		})
	}
}

func TestGetKey_MissingAliasPreservesEntries(t *testing.T) {
	root := t.TempDir()

	other, _ := newTestSource(t, root, Options{Alias: "other-secret"})
	otherKey, err := other.GetKey(context.Background())
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}

	s, logs := newTestSource(t, root, Options{})
	result := acquire(t, s)
	if result.Outcome != OutcomeAdded {
		t.Errorf("Expected outcome added, got: %s", result.Outcome)
	}
	if result.Key.Equal(otherKey) {
		t.Errorf("Expected a new key for the missing alias")
	}
	if !strings.Contains(logs.String(), DefaultAlias) {
		t.Errorf("Expected a missing alias warning, got: %q", logs.String())
	}

	ks := loadKeystore(t, s)
	if ks.Len() != 2 {
		t.Errorf("Expected 2 entries, got: %d", ks.Len())
	}
	kept, ok := ks.Entry("other-secret")
	if !ok || !kept.Equal(otherKey) {
		t.Errorf("Expected existing entry to be preserved")
	}
	added, ok := ks.Entry(DefaultAlias)
	if !ok || !added.Equal(result.Key) {
		t.Errorf("Expected new entry under %q", DefaultAlias)
	}
}

func TestGetKey_ConcurrentSingleWriter(t *testing.T) {
	root := t.TempDir()
	fs := &countingFS{}
	gen := &countingGenerator{gen: secrets.NewGenerator()}

	const workers = 8
	keys := make([]secrets.SecretKey, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, _ := newTestSource(t, root, Options{FileSystem: fs, Generator: gen})
			keys[i], errs[i] = s.GetKey(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Worker %d failed: %v", i, err)
		}
	}
	for i := 1; i < workers; i++ {
		if !keys[i].Equal(keys[0]) {
			t.Errorf("Worker %d returned a different key", i)
		}
	}
	if n := atomic.LoadInt32(&fs.calls); n != 1 {
		t.Errorf("Expected exactly one keystore write, got: %d", n)
	}
	if n := atomic.LoadInt32(&gen.calls); n != 1 {
		t.Errorf("Expected exactly one key generation, got: %d", n)
	}
}

func TestAcquire_DenylistedPlatformType(t *testing.T) {
	for _, typ := range []keystore.Type{keystore.TypeJKS, keystore.TypeDKS} {
		t.Run(string(typ), func(t *testing.T) {
			s, _ := newTestSource(t, t.TempDir(), Options{PlatformType: typ})
			result := acquire(t, s)
			if result.Type != keystore.FallbackType {
				t.Errorf("Expected fallback type %s, got: %s", keystore.FallbackType, result.Type)
			}
			loadKeystore(t, s)
		})
	}
}

func TestAcquire_UnsupportedAlgorithm(t *testing.T) {
	root := t.TempDir()
	s, _ := newTestSource(t, root, Options{Algorithm: "Blowfish"})

	_, err := s.GetKey(context.Background())
	var genErr *kerrors.KeyGenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected KeyGenerationError, got: %v", err)
	}
	if !errors.Is(err, kerrors.ErrUnsupportedAlgorithm) {
		t.Errorf("Expected ErrUnsupportedAlgorithm, got: %v", err)
	}
	if exists, _ := utils.FileExists(s.Path()); exists {
		t.Errorf("Expected no keystore after failed generation")
	}

	// The cache stays uninitialized, so a valid source creates the keystore.
	valid, _ := newTestSource(t, root, Options{})
	if result := acquire(t, valid); result.Outcome != OutcomeCreated {
		t.Errorf("Expected outcome created, got: %s", result.Outcome)
	}
}

func TestAcquire_ChmodFailure(t *testing.T) {
	s, _ := newTestSource(t, t.TempDir(), Options{FileSystem: failingFS{}})

	_, err := s.Acquire(context.Background())
	if !errors.Is(err, kerrors.ErrKeystorePermissions) {
		t.Fatalf("Expected ErrKeystorePermissions, got: %v", err)
	}
	if exists, _ := utils.FileExists(s.Path()); exists {
		t.Errorf("Expected no keystore after chmod failure")
	}
}

func TestAcquire_AddAliasFailureKeepsEntries(t *testing.T) {
	root := t.TempDir()
	other, _ := newTestSource(t, root, Options{Alias: "other"})
	otherKey, err := other.GetKey(context.Background())
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}

	s, _ := newTestSource(t, root, Options{FileSystem: failingFS{}})
	if _, err := s.GetKey(context.Background()); !errors.Is(err, kerrors.ErrKeystorePermissions) {
		t.Fatalf("Expected ErrKeystorePermissions, got: %v", err)
	}

	ks := loadKeystore(t, s)
	if key, ok := ks.Entry("other"); !ok || !key.Equal(otherKey) {
		t.Errorf("Expected entry %q to survive the failed add", "other")
	}
	if _, ok := ks.Entry(DefaultAlias); ok {
		t.Errorf("Expected no %q entry after the failed add", DefaultAlias)
	}

	// The original key is still served once permissions work again.
	if result := acquire(t, other); result.Outcome != OutcomeLoaded || !result.Key.Equal(otherKey) {
		t.Errorf("Expected the original key to load, got outcome %s", result.Outcome)
	}
}

func TestAcquire_RegenerationFailure(t *testing.T) {
	root := t.TempDir()
	s, _ := newTestSource(t, root, Options{})
	if _, err := s.GetKey(context.Background()); err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}
	if err := os.WriteFile(s.Path(), []byte("garbage"), 0600); err != nil {
		t.Fatalf("Failed to corrupt keystore: %v", err)
	}

	broken, _ := newTestSource(t, root, Options{FileSystem: failingFS{}})
	_, err := broken.Acquire(context.Background())

	var regenErr *kerrors.RegenerationError
	if !errors.As(err, &regenErr) {
		t.Fatalf("Expected RegenerationError, got: %v", err)
	}
	if !errors.Is(err, kerrors.ErrKeystorePermissions) {
		t.Errorf("Expected regeneration cause to be kept, got: %v", err)
	}
	if !errors.Is(err, kerrors.ErrCorruptKeystore) {
		t.Errorf("Expected load failure to be kept, got: %v", err)
	}
	if !kerrors.IsCorruptKeystore(regenErr.LoadErr) {
		t.Errorf("Expected LoadErr to be a corrupt keystore error, got: %v", regenErr.LoadErr)
	}
}

func TestAcquire_CustomDir(t *testing.T) {
	defaultRoot := t.TempDir()
	customDir := t.TempDir()
	s, _ := newTestSource(t, defaultRoot, Options{CustomDir: customDir})

	result := acquire(t, s)
	if result.Path != filepath.Join(customDir, CacheName, FileName) {
		t.Errorf("Expected keystore under custom dir, got: %s", result.Path)
	}
	if exists, _ := utils.FileExists(filepath.Join(defaultRoot, CacheName, FileName)); exists {
		t.Errorf("Expected no keystore under default root")
	}
}

func TestAcquire_CancelledWhileLocked(t *testing.T) {
	root := t.TempDir()
	holder, err := cache.NewFactory(root).Builder(CacheName).Open(context.Background())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer holder.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, _ := newTestSource(t, root, Options{})
	if _, err := s.GetKey(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context cancellation, got: %v", err)
	}
}

func TestReset(t *testing.T) {
	s, _ := newTestSource(t, t.TempDir(), Options{})
	first, err := s.GetKey(context.Background())
	if err != nil {
		t.Fatalf("GetKey failed: %v", err)
	}

	existed, err := s.Reset(context.Background())
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if !existed {
		t.Errorf("Expected Reset to report an existing keystore")
	}

	result := acquire(t, s)
	if result.Outcome != OutcomeCreated {
		t.Errorf("Expected outcome created after reset, got: %s", result.Outcome)
	}
	if result.Key.Equal(first) {
		t.Errorf("Expected a new key after reset")
	}

	s2, _ := newTestSource(t, t.TempDir(), Options{})
	existed, err = s2.Reset(context.Background())
	if err != nil || existed {
		t.Errorf("Expected reset of empty cache to report nothing, got %v, %v", existed, err)
	}
}

func TestDescription(t *testing.T) {
	s, _ := newTestSource(t, t.TempDir(), Options{PlatformType: keystore.TypeJKS})
	if got := s.Description(); got != "default keystash keystore (cbor)" {
		t.Errorf("Unexpected description: %s", got)
	}

	custom, _ := newTestSource(t, t.TempDir(), Options{CustomDir: "/tmp/ks", PlatformType: keystore.TypeTOML})
	if got := custom.Description(); got != "custom keystash keystore (toml) at /tmp/ks" {
		t.Errorf("Unexpected description: %s", got)
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(cache.NewFactory(t.TempDir()), Options{Alias: "  ", PlatformType: keystore.TypeCBOR})
	if s.Alias() != DefaultAlias {
		t.Errorf("Expected default alias, got: %s", s.Alias())
	}
	if s.Algorithm() != DefaultAlgorithm {
		t.Errorf("Expected default algorithm, got: %s", s.Algorithm())
	}
}
