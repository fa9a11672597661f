package errors

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	pkgerrors "github.com/pkg/errors"
)

// Fatal prints a red "fatal error" diagnostic to stderr and exits the
// process. It is used for violated compiler invariants (corrupted
// dominance, a block with no terminator, an IR opcode with no lowering) --
// conditions spec.md classifies as not recoverable within a single pass,
// as opposed to a pass simply declining to rewrite something.
func Fatal(format string, args ...interface{}) {
	color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "fatal error: ")
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// Wrap annotates err with a message using the same cause chain the rest of
// the toolchain's indirect dependency graph already carries, so a top-level
// handler can unwrap to report the original I/O or codegen failure.
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Cause returns the underlying cause of a wrapped error, or err itself.
func Cause(err error) error {
	return pkgerrors.Cause(err)
}
