package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/keystash/internal/audit"
	kerrors "github.com/PolarWolf314/keystash/internal/errors"
	"github.com/PolarWolf314/keystash/internal/keysource"
	"github.com/PolarWolf314/keystash/internal/secrets"
)

// EncryptOptions configures the encrypt workflow.
type EncryptOptions struct {
	SourceOptions

	// FilePatterns specifies files, directories or globs to encrypt.
	FilePatterns []string

	// BaseDir resolves relative patterns. Defaults to the working directory.
	BaseDir string

	// DryRun previews which files would be encrypted without making changes.
	DryRun bool
}

// EncryptResult contains the outcome of an encrypt operation.
type EncryptResult struct {
	// EncryptedFiles lists the .sealed files that were created.
	EncryptedFiles []string

	// SourceFiles lists the artifacts that were encrypted.
	SourceFiles []string

	// KeyOutcome tells how the key was obtained.
	KeyOutcome keysource.Outcome

	// DryRun indicates whether this was a dry-run (no files modified).
	DryRun bool
}

// Encrypt seals cache artifacts with the cache encryption key.
//
// Each artifact is written alongside the original with a .sealed extension.
// The originals are left in place.
//
// Returns ErrNoFilesFound if no artifacts match the specified patterns.
// Returns ErrEncryptFailed if an artifact cannot be sealed.
func Encrypt(ctx context.Context, opts EncryptOptions) (*EncryptResult, error) {
	baseDir, err := resolveBaseDir(opts.BaseDir)
	if err != nil {
		return nil, err
	}

	files, err := secrets.ResolveFiles(opts.FilePatterns, baseDir, true)
	if err != nil {
		return nil, fmt.Errorf("resolving file patterns: %w", err)
	}
	if len(files) == 0 {
		return nil, kerrors.ErrNoFilesFound
	}

	result := &EncryptResult{
		SourceFiles: files,
		DryRun:      opts.DryRun,
	}

	if opts.DryRun {
		result.EncryptedFiles = sealedNames(files)
		return result, nil
	}

	src, err := loadSource(opts.SourceOptions)
	if err != nil {
		return nil, err
	}

	acquired, err := src.keys.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring key from %s: %w", src.keys.Description(), err)
	}
	result.KeyOutcome = acquired.Outcome

	result.EncryptedFiles, err = secrets.EncryptFiles(acquired.Key, files)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrEncryptFailed, err)
	}

	auditEntry := audit.NewEntry("encrypt")
	auditEntry.Outcome = string(acquired.Outcome)
	auditEntry.Fingerprint = acquired.Key.Fingerprint()
	auditEntry.Files = result.EncryptedFiles
	audit.Log(src.cacheRoot(), auditEntry)

	return result, nil
}

func sealedNames(files []string) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f + secrets.SealedSuffix
	}
	return names
}

func resolveBaseDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return wd, nil
}
