package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter renders one kind of CLI value. Without color it falls back to a
// plain-text decoration so the kind stays recognizable in logs and pipes.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments like fmt.Sprint.
func (f Formatter) Sprint(a ...interface{}) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats according to a format specifier.
func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

func newFormatter(attr color.Attribute, prefix, suffix string) Formatter {
	return Formatter{color: color.New(attr), prefix: prefix, suffix: suffix}
}

// EnsureNewline appends a newline unless s already ends with one.
func EnsureNewline(s string) string {
	if len(s) == 0 || s[len(s)-1] != '\n' {
		return s + "\n"
	}
	return s
}

// noColor honors NO_COLOR (https://no-color.org/) and fatih/color's own
// terminal detection.
func noColor() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Code renders runnable commands and config keys, `backticked` without color.
	Code = newFormatter(color.FgYellow, "`", "`")

	// Path renders keystore, cache and artifact paths.
	Path = newFormatter(color.FgYellow, "", "")

	// Flag renders CLI flags such as --lock-timeout.
	Flag = newFormatter(color.FgYellow, "", "")

	Success = newFormatter(color.FgGreen, "", "")
	Error   = newFormatter(color.FgRed, "", "")
	Warning = newFormatter(color.FgYellow, "", "")
	Info    = newFormatter(color.FgCyan, "", "")

	// Highlight renders aliases, algorithms and keystore types, 'quoted' without color.
	Highlight = newFormatter(color.FgCyan, "'", "'")

	// Muted renders secondary detail such as an earlier load failure.
	Muted = newFormatter(color.FgHiBlack, "(", ")")

	// Fingerprint renders key fingerprints, [bracketed] without color.
	// Key material itself is never passed through a formatter.
	Fingerprint = newFormatter(color.FgMagenta, "[", "]")
)

// Marks that open CLI result lines.
func CheckMark() string { return Success.Sprint("✓") }
func CrossMark() string { return Error.Sprint("✗") }
func WarnMark() string  { return Warning.Sprint("⚠") }
func InfoMark() string  { return Info.Sprint("ℹ") }
func Arrow() string     { return Info.Sprint("→") }

// DryRun prefixes lines describing changes that were not made.
func DryRun() string { return Warning.Sprint("[dry-run]") }

// ErrorLabel introduces the underlying error under a result line.
func ErrorLabel() string { return Error.Sprint("Error: ") }
