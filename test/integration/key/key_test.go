package key

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PolarWolf314/keystash/internal/keysource"
	"github.com/PolarWolf314/keystash/test/integration/shared"
)

// keyOutput mirrors the JSON printed by key show --json.
type keyOutput struct {
	Outcome     string `json:"outcome"`
	Alias       string `json:"alias"`
	Algorithm   string `json:"algorithm"`
	Type        string `json:"type"`
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
	Material    string `json:"material"`
}

func showKeyJSON(t *testing.T, extra ...string) keyOutput {
	t.Helper()

	args := append([]string{"key", "show", "--json"}, extra...)
	output, stderr, err := shared.RunCLIStreams(t, args...)
	if err != nil {
		t.Fatalf("key show failed: %v\nOutput: %s%s", err, output, stderr)
	}

	var result keyOutput
	if err := json.Unmarshal([]byte(output), &result); err != nil {
		t.Fatalf("Failed to parse key show JSON: %v\nOutput: %s", err, output)
	}
	return result
}

func TestKeyShow_CreatesThenLoads(t *testing.T) {
	cacheRoot := shared.SetupTestEnvironment(t)

	first := showKeyJSON(t)
	if first.Outcome != string(keysource.OutcomeCreated) {
		t.Errorf("Expected created on first run, got %s", first.Outcome)
	}
	if first.Path != shared.KeystorePath(cacheRoot) {
		t.Errorf("Unexpected keystore path: %s", first.Path)
	}
	if first.Alias != keysource.DefaultAlias {
		t.Errorf("Expected default alias, got %s", first.Alias)
	}
	if first.Material != "" {
		t.Errorf("Key material printed without --reveal")
	}

	info, err := os.Stat(first.Path)
	if err != nil {
		t.Fatalf("Keystore not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected keystore mode 0600, got %04o", info.Mode().Perm())
	}

	second := showKeyJSON(t)
	if second.Outcome != string(keysource.OutcomeLoaded) {
		t.Errorf("Expected loaded on second run, got %s", second.Outcome)
	}
	if second.Fingerprint != first.Fingerprint {
		t.Errorf("Fingerprint changed between runs: %s != %s", first.Fingerprint, second.Fingerprint)
	}
}

func TestKeyShow_HumanOutput(t *testing.T) {
	shared.SetupTestEnvironment(t)

	output, err := shared.RunCLI(t, "key", "show")
	if err != nil {
		t.Fatalf("key show failed: %v", err)
	}
	if !strings.Contains(output, "Created a new key") {
		t.Errorf("Expected creation message, got: %s", output)
	}

	output, err = shared.RunCLI(t, "key", "show", "--reveal")
	if err != nil {
		t.Fatalf("key show failed: %v", err)
	}
	if !strings.Contains(output, "Loaded the key") {
		t.Errorf("Expected load message, got: %s", output)
	}
	if !strings.Contains(output, "Material:") {
		t.Errorf("Expected key material with --reveal, got: %s", output)
	}
}

func TestKeyShow_RecoversCorruptKeystore(t *testing.T) {
	cacheRoot := shared.SetupTestEnvironment(t)

	first := showKeyJSON(t)

	if err := os.WriteFile(shared.KeystorePath(cacheRoot), []byte("garbage"), 0600); err != nil {
		t.Fatalf("Failed to corrupt keystore: %v", err)
	}

	recovered := showKeyJSON(t)
	if recovered.Outcome != string(keysource.OutcomeRecovered) {
		t.Errorf("Expected recovered, got %s", recovered.Outcome)
	}
	if recovered.Fingerprint == first.Fingerprint {
		t.Errorf("Expected a new key after recovery")
	}

	again := showKeyJSON(t)
	if again.Outcome != string(keysource.OutcomeLoaded) || again.Fingerprint != recovered.Fingerprint {
		t.Errorf("Expected the recovered key to be loaded, got %+v", again)
	}
}

func TestKeyShow_AddsMissingAlias(t *testing.T) {
	shared.SetupTestEnvironment(t)

	original := showKeyJSON(t)

	t.Setenv("KEYSTASH_KEY_ALIAS", "ci-secret")
	added := showKeyJSON(t)
	if added.Outcome != string(keysource.OutcomeAdded) {
		t.Errorf("Expected added for a new alias, got %s", added.Outcome)
	}
	if added.Alias != "ci-secret" {
		t.Errorf("Expected alias ci-secret, got %s", added.Alias)
	}

	t.Setenv("KEYSTASH_KEY_ALIAS", "")
	kept := showKeyJSON(t)
	if kept.Outcome != string(keysource.OutcomeLoaded) || kept.Fingerprint != original.Fingerprint {
		t.Errorf("Expected the original entry to survive, got %+v", kept)
	}
}

func TestKeyShow_CustomKeystoreDir(t *testing.T) {
	cacheRoot := shared.SetupTestEnvironment(t)
	customDir := t.TempDir()

	result := showKeyJSON(t, "--keystore-dir", customDir)

	expected := filepath.Join(customDir, keysource.CacheName, keysource.FileName)
	if result.Path != expected {
		t.Errorf("Expected keystore at %s, got %s", expected, result.Path)
	}
	if _, err := os.Stat(shared.KeystorePath(cacheRoot)); !os.IsNotExist(err) {
		t.Errorf("Default keystore should not be created when --keystore-dir is set")
	}
}

func TestKeyPath_DoesNotCreate(t *testing.T) {
	cacheRoot := shared.SetupTestEnvironment(t)

	output, err := shared.RunCLI(t, "key", "path")
	if err != nil {
		t.Fatalf("key path failed: %v", err)
	}
	if strings.TrimSpace(output) != shared.KeystorePath(cacheRoot) {
		t.Errorf("Unexpected path output: %q", output)
	}
	if _, err := os.Stat(shared.KeystorePath(cacheRoot)); !os.IsNotExist(err) {
		t.Errorf("key path must not create the keystore")
	}
}

func TestKeyReset(t *testing.T) {
	cacheRoot := shared.SetupTestEnvironment(t)
	first := showKeyJSON(t)

	output, err := shared.RunCLI(t, "key", "reset", "--dry-run")
	if err != nil {
		t.Fatalf("key reset --dry-run failed: %v", err)
	}
	if !strings.Contains(output, "Would remove") {
		t.Errorf("Expected dry-run message, got: %s", output)
	}
	if _, err := os.Stat(shared.KeystorePath(cacheRoot)); err != nil {
		t.Fatalf("Dry run removed the keystore: %v", err)
	}

	output, err = shared.RunCLI(t, "key", "reset")
	if err != nil {
		t.Fatalf("key reset failed: %v", err)
	}
	if !strings.Contains(output, "Removed the") {
		t.Errorf("Expected removal message, got: %s", output)
	}
	if _, err := os.Stat(shared.KeystorePath(cacheRoot)); !os.IsNotExist(err) {
		t.Errorf("Expected keystore to be removed")
	}

	fresh := showKeyJSON(t)
	if fresh.Outcome != string(keysource.OutcomeCreated) {
		t.Errorf("Expected created after reset, got %s", fresh.Outcome)
	}
	if fresh.Fingerprint == first.Fingerprint {
		t.Errorf("Expected a new key after reset")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	shared.SetupTestEnvironment(t)

	artifactDir := t.TempDir()
	artifact := filepath.Join(artifactDir, "task-output.bin")
	content := []byte("compiled cache entry")
	if err := os.WriteFile(artifact, content, 0600); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}

	output, err := shared.RunCLI(t, "encrypt", artifactDir)
	if err != nil {
		t.Fatalf("encrypt failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "encrypted successfully") {
		t.Errorf("Expected success message, got: %s", output)
	}
	if !strings.Contains(output, "Created a new cache encryption key") {
		t.Errorf("Expected first-use notice, got: %s", output)
	}

	if err := os.Remove(artifact); err != nil {
		t.Fatalf("Failed to remove artifact: %v", err)
	}

	output, err = shared.RunCLI(t, "decrypt", artifactDir)
	if err != nil {
		t.Fatalf("decrypt failed: %v\nOutput: %s", err, output)
	}

	restored, err := os.ReadFile(artifact)
	if err != nil {
		t.Fatalf("Artifact not restored: %v", err)
	}
	if !bytes.Equal(restored, content) {
		t.Errorf("Restored content mismatch: %q", restored)
	}
}

func TestDecrypt_AfterResetFails(t *testing.T) {
	shared.SetupTestEnvironment(t)

	artifactDir := t.TempDir()
	artifact := filepath.Join(artifactDir, "task-output.bin")
	if err := os.WriteFile(artifact, []byte("data"), 0600); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}

	if output, err := shared.RunCLI(t, "encrypt", artifactDir); err != nil {
		t.Fatalf("encrypt failed: %v\nOutput: %s", err, output)
	}
	if output, err := shared.RunCLI(t, "key", "reset"); err != nil {
		t.Fatalf("key reset failed: %v\nOutput: %s", err, output)
	}

	output, err := shared.RunCLI(t, "decrypt", artifactDir)
	if err == nil {
		t.Fatalf("Expected decrypt to fail under a new key")
	}
	if !strings.Contains(output, "Failed to decrypt cache artifacts") {
		t.Errorf("Expected decrypt failure message, got: %s", output)
	}
}

func TestKeyLog_RecordsOutcomes(t *testing.T) {
	cacheRoot := shared.SetupTestEnvironment(t)

	showKeyJSON(t)
	if err := os.WriteFile(shared.KeystorePath(cacheRoot), []byte("garbage"), 0600); err != nil {
		t.Fatalf("Failed to corrupt keystore: %v", err)
	}
	showKeyJSON(t)

	output, stderr, err := shared.RunCLIStreams(t, "key", "log", "--json", "--outcome", "recovered")
	if err != nil {
		t.Fatalf("key log failed: %v\nOutput: %s%s", err, output, stderr)
	}

	var entries []struct {
		Operation string `json:"op"`
		Outcome   string `json:"outcome"`
	}
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		t.Fatalf("Failed to parse log JSON: %v\nOutput: %s", err, output)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 recovered entry, got %d", len(entries))
	}
	if entries[0].Operation != "key" || entries[0].Outcome != "recovered" {
		t.Errorf("Unexpected entry: %+v", entries[0])
	}
}
