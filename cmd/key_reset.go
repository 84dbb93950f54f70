package cmd

import (
	"github.com/PolarWolf314/keystash/internal/ui"
	"github.com/PolarWolf314/keystash/internal/workflows"

	"github.com/spf13/cobra"
)

var keyResetDryRun bool

func init() {
	keyResetCmd.Flags().BoolVar(&keyResetDryRun, "dry-run", false, "show what would be removed without removing it")
}

func resetKeyResetState() {
	keyResetDryRun = false
}

var keyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the keystore so a new key is generated",
	Long: `Deletes the keystore while holding the cache lock.

The next command that needs the key creates a new one. Artifacts sealed under
the old key can no longer be decrypted.

Examples:
  keystash key reset --dry-run
  keystash key reset`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting key reset command")

		spinner, cleanup := startSpinner("Resetting keystore...", verbose)
		defer cleanup()

		ctx, cancel := commandContext()
		defer cancel()

		result, err := workflows.Reset(ctx, workflows.ResetOptions{
			SourceOptions: sourceOptions(),
			DryRun:        keyResetDryRun,
		})
		if err != nil {
			spinner.FinalMSG = formatKeyError(err)
			return err
		}

		switch {
		case result.DryRun && result.Removed:
			spinner.FinalMSG = ui.DryRun() + " Would remove " + ui.Path.Sprint(result.Path) + "\n" +
				ui.Arrow() + " Artifacts sealed with the current key would no longer decrypt"
		case result.DryRun:
			spinner.FinalMSG = ui.DryRun() + " No keystore at " + ui.Path.Sprint(result.Path)
		case result.Removed:
			spinner.FinalMSG = ui.CheckMark() + " Removed the " + result.Description + "\n" +
				ui.Arrow() + " A new key is created on next use"
		default:
			spinner.FinalMSG = ui.InfoMark() + " No keystore to remove at " + ui.Path.Sprint(result.Path)
		}
		return nil
	},
}
