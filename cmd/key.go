package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/PolarWolf314/keystash/internal/keysource"
	"github.com/PolarWolf314/keystash/internal/ui"
	"github.com/PolarWolf314/keystash/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	keyShowJSON   bool
	keyShowReveal bool
)

// KeyCmd groups the commands that manage the cache encryption key.
var KeyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the cache encryption key",
	Long: `Inspects and maintains the key that encrypts the build cache.

The key is stored in a keystore under the cache root. It is created on first
use and replaced automatically if the keystore cannot be read.`,
}

func init() {
	keyShowCmd.Flags().BoolVar(&keyShowJSON, "json", false, "output in JSON format")
	keyShowCmd.Flags().BoolVar(&keyShowReveal, "reveal", false, "print the raw key material in hex")

	KeyCmd.AddCommand(keyShowCmd)
	KeyCmd.AddCommand(keyPathCmd)
	KeyCmd.AddCommand(doctorCmd)
	KeyCmd.AddCommand(keyResetCmd)
	KeyCmd.AddCommand(logCmd)
}

func resetKeyShowState() {
	keyShowJSON = false
	keyShowReveal = false
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cache encryption key's fingerprint",
	Long: `Acquires the cache encryption key and prints its fingerprint.

The keystore is created if it does not exist yet, the configured alias is
added if it is missing, and an unreadable keystore is replaced with a new key.
The outcome line tells which of these happened.

Examples:
  keystash key show
  keystash key show --json
  keystash key show --keystore-dir /srv/build-keys`,
	RunE: runKeyShow,
}

func runKeyShow(cmd *cobra.Command, args []string) error {
	Logger.Infof("Starting key show command")

	spinner, cleanup := startSpinner("Acquiring cache encryption key...", verbose)
	defer cleanup()

	ctx, cancel := commandContext()
	defer cancel()

	result, err := workflows.Key(ctx, workflows.KeyOptions{SourceOptions: sourceOptions()})
	if err != nil {
		spinner.FinalMSG = formatKeyError(err)
		return err
	}

	Logger.Debugf("Key %s from %s", result.Outcome, result.Path)

	if keyShowJSON {
		spinner.FinalMSG = ""
		cleanup()
		return outputKeyJSON(result)
	}

	msg := ui.CheckMark() + " " + keyOutcomeMessage(result) + "\n" +
		"  Keystore:    " + ui.Path.Sprint(result.Path) + "\n" +
		"  Alias:       " + ui.Highlight.Sprint(result.Alias) + "\n" +
		"  Algorithm:   " + result.Key.Algorithm + "\n" +
		"  Fingerprint: " + ui.Fingerprint.Sprint(result.Fingerprint)
	if keyShowReveal {
		msg += "\n  Material:    " + hex.EncodeToString(result.Key.Material)
	}
	spinner.FinalMSG = msg
	return nil
}

func keyOutcomeMessage(result *workflows.KeyResult) string {
	switch result.Outcome {
	case keysource.OutcomeCreated:
		return "Created a new key in the " + result.Description
	case keysource.OutcomeAdded:
		return "Added alias " + ui.Highlight.Sprint(result.Alias) + " to the " + result.Description
	case keysource.OutcomeRecovered:
		return "Replaced an unreadable " + result.Description + " with a new key"
	default:
		return "Loaded the key from the " + result.Description
	}
}

type keyJSON struct {
	Outcome     string `json:"outcome"`
	Alias       string `json:"alias"`
	Algorithm   string `json:"algorithm"`
	Type        string `json:"type"`
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
	Material    string `json:"material,omitempty"`
}

func outputKeyJSON(result *workflows.KeyResult) error {
	out := keyJSON{
		Outcome:     string(result.Outcome),
		Alias:       result.Alias,
		Algorithm:   result.Key.Algorithm,
		Type:        string(result.Type),
		Path:        result.Path,
		Fingerprint: result.Fingerprint,
	}
	if keyShowReveal {
		out.Material = hex.EncodeToString(result.Key.Material)
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

var keyPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where the keystore lives",
	Long:  `Prints the keystore path without creating or locking it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting key path command")

		ctx, cancel := commandContext()
		defer cancel()

		result, err := workflows.KeyPath(ctx, workflows.KeyOptions{SourceOptions: sourceOptions()})
		if err != nil {
			fmt.Println(formatKeyError(err))
			return err
		}

		fmt.Println(result.Path)
		if !result.Exists {
			Logger.Infof("%s does not exist yet", result.Description)
		}
		return nil
	},
}
