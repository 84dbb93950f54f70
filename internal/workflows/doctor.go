package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/keystash/internal/cache"
	"github.com/PolarWolf314/keystash/internal/configs"
	"github.com/PolarWolf314/keystash/internal/keysource"
	"github.com/PolarWolf314/keystash/internal/keystore"
	"github.com/PolarWolf314/keystash/internal/utils"
)

// CheckStatus represents the result status of a health check.
type CheckStatus int

const (
	// CheckPass means the check passed.
	CheckPass CheckStatus = iota
	// CheckWarning means the check found a non-critical issue.
	CheckWarning
	// CheckError means the check found a critical issue.
	CheckError
)

// String returns a string representation of CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarning:
		return "warning"
	case CheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler for CheckStatus.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckResult holds the result of a single health check.
type CheckResult struct {
	Name       string      `json:"name"`
	Status     CheckStatus `json:"status"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// DoctorResult holds the complete result of the doctor workflow.
type DoctorResult struct {
	Checks      []CheckResult `json:"checks"`
	Summary     DoctorSummary `json:"summary"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

// DoctorSummary holds counts of checks by status.
type DoctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
}

// DoctorOptions configures the doctor workflow.
type DoctorOptions struct {
	SourceOptions
}

// doctorEnv is shared by the checks of one doctor run.
type doctorEnv struct {
	src       *source
	configErr error

	// Filled in by checkKeystoreLoads.
	loaded *keystore.Keystore
}

// Doctor runs health checks on the keystore without modifying it.
//
// The doctor workflow checks:
//   - Configuration validity
//   - Keystore type resolution
//   - Keystore file presence and permissions
//   - Keystore loadability and the configured alias
//   - Cache initialization marker
func Doctor(ctx context.Context, opts DoctorOptions) (*DoctorResult, error) {
	env := &doctorEnv{}
	env.src, env.configErr = loadSource(opts.SourceOptions)

	checks := []func(*doctorEnv) CheckResult{
		checkConfig,
		checkKeystoreType,
		checkKeystoreExists,
		checkKeystorePermissions,
		checkKeystoreLoads,
		checkKeystoreAlias,
		checkCacheMarker,
	}

	var results []CheckResult
	for _, check := range checks {
		results = append(results, check(env))
	}

	summary := calculateDoctorSummary(results)

	// Collect suggestions (deduplicated).
	var suggestions []string
	seen := make(map[string]bool)
	for _, result := range results {
		if result.Suggestion != "" && result.Status != CheckPass && !seen[result.Suggestion] {
			suggestions = append(suggestions, result.Suggestion)
			seen[result.Suggestion] = true
		}
	}

	return &DoctorResult{
		Checks:      results,
		Summary:     summary,
		Suggestions: suggestions,
	}, nil
}

func checkConfig(env *doctorEnv) CheckResult {
	if env.configErr != nil {
		return CheckResult{
			Name:       "Configuration",
			Status:     CheckError,
			Message:    env.configErr.Error(),
			Suggestion: fmt.Sprintf("Fix %s or the KEYSTASH_* environment variables", configs.ConfigPath()),
		}
	}

	exists, err := utils.FileExists(configs.ConfigPath())
	if err != nil || !exists {
		return CheckResult{
			Name:    "Configuration",
			Status:  CheckPass,
			Message: "No config file, using defaults",
		}
	}

	return CheckResult{
		Name:    "Configuration",
		Status:  CheckPass,
		Message: "Configuration valid",
	}
}

func checkKeystoreType(env *doctorEnv) CheckResult {
	if env.src == nil {
		return skipped("Keystore type")
	}

	resolver := env.src.keys.Resolver()
	if resolver.PlatformDefault().Denylisted() {
		return CheckResult{
			Name:    "Keystore type",
			Status:  CheckWarning,
			Message: fmt.Sprintf("%s cannot hold secret keys, using %s", resolver.PlatformDefault(), resolver.Resolve()),
			Suggestion: fmt.Sprintf("Set [keystore] type = %q to silence this warning",
				keystore.FallbackType),
		}
	}

	return CheckResult{
		Name:    "Keystore type",
		Status:  CheckPass,
		Message: fmt.Sprintf("Using %s keystore", resolver.Resolve()),
	}
}

func checkKeystoreExists(env *doctorEnv) CheckResult {
	if env.src == nil {
		return skipped("Keystore file")
	}

	path := env.src.keys.Path()
	exists, err := utils.FileExists(path)
	if err != nil {
		return CheckResult{
			Name:    "Keystore file",
			Status:  CheckError,
			Message: fmt.Sprintf("Cannot access %s: %v", path, err),
		}
	}
	if !exists {
		return CheckResult{
			Name:       "Keystore file",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("No keystore at %s", path),
			Suggestion: "Run 'keystash key show' to create the keystore",
		}
	}

	return CheckResult{
		Name:    "Keystore file",
		Status:  CheckPass,
		Message: fmt.Sprintf("Keystore found at %s", path),
	}
}

func checkKeystorePermissions(env *doctorEnv) CheckResult {
	if env.src == nil {
		return skipped("Keystore permissions")
	}

	path := env.src.keys.Path()
	perm, err := utils.FilePermissions(path)
	if os.IsNotExist(err) {
		return CheckResult{
			Name:    "Keystore permissions",
			Status:  CheckPass,
			Message: "No keystore to check",
		}
	}
	if err != nil {
		return CheckResult{
			Name:    "Keystore permissions",
			Status:  CheckError,
			Message: fmt.Sprintf("Cannot stat keystore: %v", err),
		}
	}

	if perm != keystore.FileMode {
		return CheckResult{
			Name:       "Keystore permissions",
			Status:     CheckError,
			Message:    fmt.Sprintf("Keystore has permissions %04o, expected %04o", perm, keystore.FileMode),
			Suggestion: fmt.Sprintf("Run 'chmod 600 %s'", path),
		}
	}

	return CheckResult{
		Name:    "Keystore permissions",
		Status:  CheckPass,
		Message: "Keystore is readable by its owner only",
	}
}

func checkKeystoreLoads(env *doctorEnv) CheckResult {
	if env.src == nil {
		return skipped("Keystore integrity")
	}

	path := env.src.keys.Path()
	if exists, _ := utils.FileExists(path); !exists {
		return CheckResult{
			Name:    "Keystore integrity",
			Status:  CheckPass,
			Message: "No keystore to check",
		}
	}

	ks, err := keystore.LoadFile(env.src.keys.Type(), path, keysource.Password())
	if err != nil {
		return CheckResult{
			Name:       "Keystore integrity",
			Status:     CheckError,
			Message:    fmt.Sprintf("Keystore cannot be loaded and will be regenerated on next use: %v", err),
			Suggestion: "Run 'keystash key reset' to replace it now; artifacts sealed under the old key will not decrypt",
		}
	}
	env.loaded = ks

	return CheckResult{
		Name:    "Keystore integrity",
		Status:  CheckPass,
		Message: fmt.Sprintf("Keystore loads with %d entries", ks.Len()),
	}
}

func checkKeystoreAlias(env *doctorEnv) CheckResult {
	if env.src == nil {
		return skipped("Keystore alias")
	}
	if env.loaded == nil {
		return CheckResult{
			Name:    "Keystore alias",
			Status:  CheckPass,
			Message: "No loadable keystore to check",
		}
	}

	alias := env.src.keys.Alias()
	key, ok := env.loaded.Entry(alias)
	if !ok {
		return CheckResult{
			Name:       "Keystore alias",
			Status:     CheckWarning,
			Message:    fmt.Sprintf("Keystore has no entry %q; a key will be added on next use", alias),
			Suggestion: "Run 'keystash key show' to add the key",
		}
	}

	return CheckResult{
		Name:    "Keystore alias",
		Status:  CheckPass,
		Message: fmt.Sprintf("Entry %q holds a %s key (%s)", alias, key.Algorithm, key.Fingerprint()),
	}
}

func checkCacheMarker(env *doctorEnv) CheckResult {
	if env.src == nil {
		return skipped("Cache initialization")
	}

	marker := filepath.Join(env.src.keys.Dir(), cache.MarkerFileName)
	initialized, err := utils.FileExists(marker)
	if err != nil {
		return CheckResult{
			Name:    "Cache initialization",
			Status:  CheckError,
			Message: fmt.Sprintf("Cannot access %s: %v", marker, err),
		}
	}

	keystoreExists, _ := utils.FileExists(env.src.keys.Path())
	switch {
	case initialized && !keystoreExists:
		return CheckResult{
			Name:    "Cache initialization",
			Status:  CheckWarning,
			Message: "Cache is initialized but the keystore is missing; it will be regenerated on next use",
		}
	case !initialized && keystoreExists:
		return CheckResult{
			Name:    "Cache initialization",
			Status:  CheckWarning,
			Message: "Keystore exists but the cache was never initialized; it will be replaced on next use",
		}
	}

	return CheckResult{
		Name:    "Cache initialization",
		Status:  CheckPass,
		Message: "Cache state consistent",
	}
}

func skipped(name string) CheckResult {
	return CheckResult{
		Name:    name,
		Status:  CheckError,
		Message: "Cannot check: configuration is invalid",
	}
}

func calculateDoctorSummary(results []CheckResult) DoctorSummary {
	var summary DoctorSummary
	for _, result := range results {
		switch result.Status {
		case CheckPass:
			summary.Passed++
		case CheckWarning:
			summary.Warnings++
		case CheckError:
			summary.Errors++
		}
	}
	return summary
}
