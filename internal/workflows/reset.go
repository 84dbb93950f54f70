package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/keystash/internal/audit"
	"github.com/PolarWolf314/keystash/internal/utils"
)

// ResetOptions configures the reset workflow.
type ResetOptions struct {
	SourceOptions

	// DryRun reports what would be removed without removing it.
	DryRun bool
}

// ResetResult contains the outcome of a reset.
type ResetResult struct {
	Path        string
	Description string

	// Removed is true when a keystore file existed and was deleted.
	Removed bool
	DryRun  bool
}

// Reset deletes the keystore under the cache lock. The next key acquisition
// creates a new key, so artifacts sealed under the old key can no longer be
// opened.
func Reset(ctx context.Context, opts ResetOptions) (*ResetResult, error) {
	src, err := loadSource(opts.SourceOptions)
	if err != nil {
		return nil, err
	}

	result := &ResetResult{
		Path:        src.keys.Path(),
		Description: src.keys.Description(),
		DryRun:      opts.DryRun,
	}

	if opts.DryRun {
		result.Removed, err = utils.FileExists(result.Path)
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	result.Removed, err = src.keys.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("resetting %s: %w", result.Description, err)
	}

	auditEntry := audit.NewEntry("reset")
	auditEntry.Path = result.Path
	auditEntry.Type = string(src.keys.Type())
	audit.Log(src.cacheRoot(), auditEntry)

	return result, nil
}
