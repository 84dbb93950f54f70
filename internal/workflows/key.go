package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/keystash/internal/audit"
	"github.com/PolarWolf314/keystash/internal/keysource"
	"github.com/PolarWolf314/keystash/internal/keystore"
	"github.com/PolarWolf314/keystash/internal/secrets"
	"github.com/PolarWolf314/keystash/internal/utils"
)

// KeyOptions configures the key workflow.
type KeyOptions struct {
	SourceOptions
}

// KeyResult contains the outcome of a key acquisition.
type KeyResult struct {
	// Key is the cache encryption key. Callers should display Fingerprint instead.
	Key secrets.SecretKey

	Fingerprint string
	Alias       string
	Outcome     keysource.Outcome
	Path        string
	Type        keystore.Type

	// Description names the keystore, e.g. "default keystash keystore (cbor)".
	Description string
}

// Key returns the cache encryption key, creating the keystore on first use
// and repairing it when it cannot be read.
//
// Returns a *KeyGenerationError if the configured algorithm is unsupported.
// Returns a *RegenerationError if an unreadable keystore could not be replaced.
func Key(ctx context.Context, opts KeyOptions) (*KeyResult, error) {
	src, err := loadSource(opts.SourceOptions)
	if err != nil {
		return nil, err
	}

	acquired, err := src.keys.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring key from %s: %w", src.keys.Description(), err)
	}

	result := &KeyResult{
		Key:         acquired.Key,
		Fingerprint: acquired.Key.Fingerprint(),
		Alias:       src.keys.Alias(),
		Outcome:     acquired.Outcome,
		Path:        acquired.Path,
		Type:        acquired.Type,
		Description: src.keys.Description(),
	}

	logAcquisition(src, "key", acquired)

	return result, nil
}

// KeyPathResult describes where the keystore lives without touching it.
type KeyPathResult struct {
	Path        string
	Description string
	Type        keystore.Type
	Exists      bool
}

// KeyPath reports the keystore location. It takes no lock and never creates
// the keystore.
func KeyPath(ctx context.Context, opts KeyOptions) (*KeyPathResult, error) {
	src, err := loadSource(opts.SourceOptions)
	if err != nil {
		return nil, err
	}

	result := &KeyPathResult{
		Path:        src.keys.Path(),
		Description: src.keys.Description(),
		Type:        src.keys.Type(),
	}
	result.Exists, err = utils.FileExists(result.Path)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func logAcquisition(src *source, op string, acquired *keysource.Result) {
	entry := audit.NewEntry(op)
	entry.Outcome = string(acquired.Outcome)
	entry.Alias = src.keys.Alias()
	entry.Algorithm = acquired.Key.Algorithm
	entry.Type = string(acquired.Type)
	entry.Fingerprint = acquired.Key.Fingerprint()
	entry.Path = acquired.Path
	audit.Log(src.cacheRoot(), entry)
}
