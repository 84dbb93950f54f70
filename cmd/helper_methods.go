package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/keystash/internal/errors"
	"github.com/PolarWolf314/keystash/internal/secrets"
	"github.com/PolarWolf314/keystash/internal/ui"
	"github.com/PolarWolf314/keystash/internal/utils"

	"github.com/briandowns/spinner"
)

// startSpinner creates a spinner with the given message and starts it when
// stdout is a terminal and neither --verbose nor --debug is set.
// Returns the spinner and a function that should be deferred to clean up.
//
// spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	animate := !verbose && !debug && utils.IsTerminal()
	if animate {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("%s", message)
	}

	cleanup := func() {
		if animate {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if animate {
			s.Stop()
		}

		// Printed to stdout so tests can capture it.
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// formatKeyError turns a key acquisition failure into a user-facing message.
func formatKeyError(err error) string {
	var genErr *kerrors.KeyGenerationError
	var regenErr *kerrors.RegenerationError

	switch {
	case errors.As(err, &genErr):
		return ui.CrossMark() + " Cannot generate a " + ui.Highlight.Sprint(genErr.Algorithm) + " key\n" +
			ui.Arrow() + " Supported algorithms: " + strings.Join(secrets.SupportedAlgorithms(), ", ")

	case errors.As(err, &regenErr):
		msg := ui.CrossMark() + " The keystore could not be loaded and could not be replaced\n" +
			ui.ErrorLabel() + regenErr.Err.Error()
		if regenErr.LoadErr != nil {
			msg += "\n" + ui.Muted.Sprint("load failure: "+regenErr.LoadErr.Error())
		}
		return msg

	case errors.Is(err, kerrors.ErrKeystorePermissions):
		return ui.CrossMark() + " Could not make the keystore private; it was not saved\n" +
			ui.ErrorLabel() + err.Error()

	case errors.Is(err, kerrors.ErrUnsupportedKeystoreType):
		return ui.CrossMark() + " Unsupported keystore type\n" +
			ui.Arrow() + " Set " + ui.Code.Sprint("[keystore] type") + " to cbor or toml"

	case errors.Is(err, kerrors.ErrUnsupportedAlgorithm):
		return ui.CrossMark() + " " + err.Error() + "\n" +
			ui.Arrow() + " Supported algorithms: " + strings.Join(secrets.SupportedAlgorithms(), ", ")

	case errors.Is(err, context.DeadlineExceeded):
		return ui.CrossMark() + " Timed out waiting for the keystore lock\n" +
			ui.Arrow() + " Another keystash process is holding it; retry or raise " + ui.Flag.Sprint("--lock-timeout")

	default:
		return ui.CrossMark() + " " + err.Error()
	}
}
