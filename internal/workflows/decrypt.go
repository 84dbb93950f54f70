package workflows

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PolarWolf314/keystash/internal/audit"
	kerrors "github.com/PolarWolf314/keystash/internal/errors"
	"github.com/PolarWolf314/keystash/internal/keysource"
	"github.com/PolarWolf314/keystash/internal/secrets"
)

// DecryptOptions configures the decrypt workflow.
type DecryptOptions struct {
	SourceOptions

	// FilePatterns specifies .sealed files, directories or globs to decrypt.
	FilePatterns []string

	// BaseDir resolves relative patterns. Defaults to the working directory.
	BaseDir string

	// DryRun previews which files would be decrypted without making changes.
	DryRun bool
}

// DecryptResult contains the outcome of a decrypt operation.
type DecryptResult struct {
	// DecryptedFiles lists the artifacts that were written.
	DecryptedFiles []string

	// SourceFiles lists the .sealed files that were decrypted.
	SourceFiles []string

	// ExistingFiles lists artifacts that already exist and would be overwritten.
	ExistingFiles []string

	KeyOutcome keysource.Outcome

	DryRun bool
}

// Decrypt opens .sealed artifacts back to their original names.
//
// A key that was just created or regenerated cannot open artifacts sealed
// under the previous key; those fail with ErrDecryptFailed.
//
// Returns ErrNoFilesFound if no .sealed files match the specified patterns.
// Returns ErrDecryptFailed if an artifact was tampered with or sealed under another key.
func Decrypt(ctx context.Context, opts DecryptOptions) (*DecryptResult, error) {
	baseDir, err := resolveBaseDir(opts.BaseDir)
	if err != nil {
		return nil, err
	}

	files, err := secrets.ResolveFiles(opts.FilePatterns, baseDir, false)
	if err != nil {
		return nil, fmt.Errorf("resolving file patterns: %w", err)
	}
	if len(files) == 0 {
		return nil, kerrors.ErrNoFilesFound
	}

	result := &DecryptResult{
		SourceFiles: files,
		DryRun:      opts.DryRun,
	}

	for _, f := range files {
		target := strings.TrimSuffix(f, secrets.SealedSuffix)
		if _, err := os.Stat(target); err == nil {
			result.ExistingFiles = append(result.ExistingFiles, target)
		}
	}

	if opts.DryRun {
		result.DecryptedFiles = make([]string, len(files))
		for i, f := range files {
			result.DecryptedFiles[i] = strings.TrimSuffix(f, secrets.SealedSuffix)
		}
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

	result.DecryptedFiles, err = secrets.DecryptFiles(acquired.Key, files)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrDecryptFailed, err)
	}

	auditEntry := audit.NewEntry("decrypt")
	auditEntry.Outcome = string(acquired.Outcome)
	auditEntry.Fingerprint = acquired.Key.Fingerprint()
	auditEntry.Files = result.DecryptedFiles
	audit.Log(src.cacheRoot(), auditEntry)

	return result, nil
}
