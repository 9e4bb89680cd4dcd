package runtimeio

import (
	"os"

	"golang.org/x/term"
)

// IsInteractive reports whether stdin is attached to a terminal. The driver
// uses this to choose between the REPL and interpreting piped input.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
