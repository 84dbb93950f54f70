package cmd

import (
	"context"
	"fmt"
	"time"

	logger "github.com/PolarWolf314/keystash/internal/logging"
	"github.com/PolarWolf314/keystash/internal/ui"
	"github.com/PolarWolf314/keystash/internal/workflows"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose     bool
	debug       bool
	keystoreDir string
	lockTimeout time.Duration
	Logger      logger.Logger

	RootCmd = &cobra.Command{
		Use:   "keystash",
		Short: "keystash - the persistent key behind an encrypted build cache.",
		Long: `keystash keeps the secret key that encrypts an on-disk build cache.

The key is generated once, stored in a keystore readable only by you, and
reused on every later run. A damaged keystore is replaced automatically.

Usage:
  keystash <command> [flags]

Run 'keystash help <command>' for more details on a specific command.
`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing %s with verbose=%t, debug=%t", cmd.Name(), verbose, debug)
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println()
			figure.NewColorFigure("keystash", "standard", "green", true).Print()
			fmt.Println()
			fmt.Println("Run " + ui.Code.Sprint("keystash --help") + " to see available commands.")
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringVar(&keystoreDir, "keystore-dir", "", "use a keystore under this directory instead of the cache root")
	RootCmd.PersistentFlags().DurationVar(&lockTimeout, "lock-timeout", 0, "give up waiting for the keystore lock after this long (0 waits forever)")

	RootCmd.AddCommand(KeyCmd)
	RootCmd.AddCommand(encryptCmd)
	RootCmd.AddCommand(decryptCmd)
}

// sourceOptions returns the keystore selection shared by every command.
func sourceOptions() workflows.SourceOptions {
	return workflows.SourceOptions{
		KeystoreDir: keystoreDir,
		Logger:      Logger,
	}
}

// commandContext bounds the wait for the keystore lock by --lock-timeout.
func commandContext() (context.Context, context.CancelFunc) {
	if lockTimeout > 0 {
		return context.WithTimeout(context.Background(), lockTimeout)
	}
	return context.WithCancel(context.Background())
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	keystoreDir = ""
	lockTimeout = 0
	resetKeyShowState()
	resetKeyResetState()
	resetDoctorCommandState()
	resetLogCommandState()
	resetCryptCommandState()
	resetCobraFlagState(RootCmd)
}

// resetCobraFlagState marks every flag of c and its subcommands as unset to
// prevent test pollution.
func resetCobraFlagState(c *cobra.Command) {
	reset := func(flag *pflag.Flag) {
		flag.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetCobraFlagState(sub)
	}
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
