// Package cliutil provides the diagnostic output shared by the five
// helper mains: a consistent "<helper>: <message>: <cause>" format and
// the associated non-zero exit.
package cliutil

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// Fatalf prints "<prog>: <format>" to stderr and exits 1.
func Fatalf(prog, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", prog, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// FatalErr prints "<prog>: <msg>: <cause>" (err itself in place of the
// cause if err wraps nothing further) to stderr and exits 1. Uses errors.Cause so a
// github.com/pkg/errors chain reports its root cause, not just the
// outermost wrap.
func FatalErr(prog, msg string, err error) {
	cause := errors.Cause(err)
	if cause != nil && cause.Error() != err.Error() {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", prog, msg, cause)
	} else {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", prog, msg, err)
	}
	os.Exit(1)
}

// Warnf prints "<prog>: <format>" to stderr without exiting, for
// non-fatal diagnostics (nofail mount entries, best-effort login steps).
func Warnf(prog, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", prog, fmt.Sprintf(format, args...))
}
