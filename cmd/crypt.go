package cmd

import (
	"errors"

	kerrors "github.com/PolarWolf314/keystash/internal/errors"
	"github.com/PolarWolf314/keystash/internal/keysource"
	"github.com/PolarWolf314/keystash/internal/ui"
	"github.com/PolarWolf314/keystash/internal/utils"
	"github.com/PolarWolf314/keystash/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	encryptDryRun bool
	decryptDryRun bool
)

func init() {
	encryptCmd.Flags().BoolVar(&encryptDryRun, "dry-run", false, "list the artifacts that would be sealed without sealing them")
	decryptCmd.Flags().BoolVar(&decryptDryRun, "dry-run", false, "list the artifacts that would be restored without restoring them")
}

func resetCryptCommandState() {
	encryptDryRun = false
	decryptDryRun = false
}

var encryptCmd = &cobra.Command{
	Use:   "encrypt [files|dirs|globs...]",
	Short: "Seal cache artifacts with the cache encryption key",
	Long: `Encrypts cache artifacts, writing <file>.sealed next to each one.

Directories are searched recursively and globs may use **. The keystore is
created on first use.

Examples:
  keystash encrypt build/cache
  keystash encrypt "build/**/*.bin"
  keystash encrypt --dry-run build/cache`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encrypt command")

		spinner, cleanup := startSpinner("Encrypting cache artifacts...", verbose)
		defer cleanup()

		ctx, cancel := commandContext()
		defer cancel()

		result, err := workflows.Encrypt(ctx, workflows.EncryptOptions{
			SourceOptions: sourceOptions(),
			FilePatterns:  args,
			DryRun:        encryptDryRun,
		})
		if err != nil {
			spinner.FinalMSG = formatCryptError(err)
			return err
		}

		if result.DryRun {
			spinner.FinalMSG = ui.DryRun() + " Would seal:" + utils.FormatPaths(result.SourceFiles)
			return nil
		}

		Logger.Infof("Sealed %d artifacts", len(result.EncryptedFiles))
		spinner.FinalMSG = keyOutcomeNotice(result.KeyOutcome) +
			ui.CheckMark() + " Cache artifacts encrypted successfully!\n" +
			"The following files were created:" + utils.FormatPaths(result.EncryptedFiles)
		return nil
	},
}

var decryptCmd = &cobra.Command{
	Use:   "decrypt [files|dirs|globs...]",
	Short: "Restore sealed cache artifacts",
	Long: `Decrypts .sealed artifacts back to their original names, overwriting
any file already there.

Artifacts sealed before the keystore was reset or replaced cannot be restored.

Examples:
  keystash decrypt build/cache
  keystash decrypt --dry-run build/cache`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting decrypt command")

		spinner, cleanup := startSpinner("Decrypting cache artifacts...", verbose)
		defer cleanup()

		ctx, cancel := commandContext()
		defer cancel()

		result, err := workflows.Decrypt(ctx, workflows.DecryptOptions{
			SourceOptions: sourceOptions(),
			FilePatterns:  args,
			DryRun:        decryptDryRun,
		})
		if err != nil {
			spinner.FinalMSG = formatCryptError(err)
			return err
		}

		if result.DryRun {
			msg := ui.DryRun() + " Would restore:" + utils.FormatPaths(result.DecryptedFiles)
			if len(result.ExistingFiles) > 0 {
				msg += ui.WarnMark() + " These files would be overwritten:" + utils.FormatPaths(result.ExistingFiles)
			}
			spinner.FinalMSG = msg
			return nil
		}

		Logger.Infof("Restored %d artifacts", len(result.DecryptedFiles))
		spinner.FinalMSG = keyOutcomeNotice(result.KeyOutcome) +
			ui.CheckMark() + " Cache artifacts decrypted successfully!\n" +
			"The following files were restored:" + utils.FormatPaths(result.DecryptedFiles)
		return nil
	},
}

// keyOutcomeNotice warns when the key was not simply loaded, since older
// sealed artifacts will not open under a new key.
func keyOutcomeNotice(outcome keysource.Outcome) string {
	switch outcome {
	case keysource.OutcomeCreated:
		return ui.InfoMark() + " Created a new cache encryption key\n"
	case keysource.OutcomeRecovered:
		return ui.WarnMark() + " The keystore was unreadable and has been replaced with a new key\n"
	default:
		return ""
	}
}

func formatCryptError(err error) string {
	switch {
	case errors.Is(err, kerrors.ErrNoFilesFound):
		return ui.CrossMark() + " No matching cache artifacts found"
	case errors.Is(err, kerrors.ErrFileNotFound), errors.Is(err, kerrors.ErrInvalidFileType):
		return ui.CrossMark() + " " + err.Error()
	case errors.Is(err, kerrors.ErrDecryptFailed):
		return ui.CrossMark() + " Failed to decrypt cache artifacts\n" +
			ui.Arrow() + " They may have been sealed with a key that was since reset or replaced\n" +
			ui.ErrorLabel() + err.Error()
	case errors.Is(err, kerrors.ErrEncryptFailed):
		return ui.CrossMark() + " Failed to encrypt cache artifacts\n" +
			ui.ErrorLabel() + err.Error()
	default:
		return formatKeyError(err)
	}
}
