package config

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ExitUsage is the exit status for invalid command-line usage.
const ExitUsage = 2

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	ExitCodef(1, format, args...)
}

// ExitCodef writes a formatted error message to stderr and exits with code.
func ExitCodef(code int, format string, args ...any) {
	writeExitMessage(os.Stderr, format, args...)
	os.Exit(code)
}

func writeExitMessage(w io.Writer, format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintln(w, msg)
}
