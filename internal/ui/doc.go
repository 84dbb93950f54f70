// Package ui formats keystash's CLI output.
//
// Each Formatter stands for one kind of value: a command to run, a keystore
// path, an alias, a key fingerprint. With color available the value is
// colorized. With NO_COLOR set, or when stdout is not a terminal, a plain
// decoration is used instead:
//
//	ui.Code.Sprint("keystash key reset")  // `keystash key reset`
//	ui.Highlight.Sprint("gradle-secret")  // 'gradle-secret'
//	ui.Fingerprint.Sprint("3f2a9c1d")     // [3f2a9c1d]
//	ui.Muted.Sprint("load failure: ...")  // (load failure: ...)
//
// Result lines start with one of the marks: CheckMark, CrossMark, WarnMark,
// InfoMark or Arrow for follow-up hints.
package ui
