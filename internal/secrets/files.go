package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kerrors "github.com/PolarWolf314/keystash/internal/errors"

	"github.com/bmatcuk/doublestar/v4"
)

// keystoreFileName is never picked up as a cache artifact.
const keystoreFileName = "gradle.keystore"

// ResolveFiles takes user-provided paths/globs and returns matching artifacts.
// Relative patterns are resolved against baseDir.
// forEncryption=true finds plain artifacts, forEncryption=false finds *.sealed files.
func ResolveFiles(patterns []string, baseDir string, forEncryption bool) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	var files []string
	seen := make(map[string]bool) // Deduplicate.

	for _, pattern := range patterns {
		resolved, err := resolvePattern(pattern, baseDir, forEncryption)
		if err != nil {
			return nil, err
		}

		for _, f := range resolved {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	if len(files) == 0 {
		return nil, kerrors.ErrNoFilesFound
	}

	return files, nil
}

func resolvePattern(pattern string, baseDir string, forEncryption bool) ([]string, error) {
	absPattern := pattern
	if !filepath.IsAbs(pattern) {
		absPattern = filepath.Join(baseDir, pattern)
	}

	info, err := os.Stat(absPattern)
	if err == nil && info.IsDir() {
		return findFilesInDir(absPattern, forEncryption)
	}

	if strings.ContainsAny(pattern, "*?[{") {
		return expandGlob(absPattern, pattern, forEncryption)
	}

	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, pattern)
	}

	if !matchesKind(absPattern, forEncryption) {
		if forEncryption {
			return nil, fmt.Errorf("%w: %s is already sealed", kerrors.ErrInvalidFileType, pattern)
		}
		return nil, fmt.Errorf("%w: %s is not a %s file", kerrors.ErrInvalidFileType, pattern, SealedSuffix)
	}

	return []string{absPattern}, nil
}

func expandGlob(absPattern, pattern string, forEncryption bool) ([]string, error) {
	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	var filtered []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if matchesKind(m, forEncryption) {
			filtered = append(filtered, m)
		}
	}

	return filtered, nil
}

func findFilesInDir(dir string, forEncryption bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if matchesKind(path, forEncryption) {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

func matchesKind(path string, forEncryption bool) bool {
	base := filepath.Base(path)
	if base == keystoreFileName || strings.HasSuffix(base, ".lock") {
		return false
	}
	sealed := strings.HasSuffix(base, SealedSuffix)
	if forEncryption {
		return !sealed
	}
	return sealed
}
