package pandoc

import (
	"fmt"
	"strings"
)

// ConversionError describes a failed pandoc invocation. Its message carries
// the full command line and both captured streams.
type ConversionError struct {
	Command  []string
	ExitCode int
	Stdout   string
	Stderr   string
	// Err is the underlying cause: a start/kill error from the runner, or one
	// of the domain sentinels for a clean exit with unusable output.
	Err error
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	switch {
	case e.Err != nil:
		fmt.Fprintf(&b, "pandoc failed: %v (exit code %d)\n", e.Err, e.ExitCode)
	default:
		fmt.Fprintf(&b, "pandoc failed with exit code %d\n", e.ExitCode)
	}
	fmt.Fprintf(&b, "command: %s\n", quoteCommand(e.Command))
	fmt.Fprintf(&b, "stdout:\n%s\n", e.Stdout)
	fmt.Fprintf(&b, "stderr:\n%s", e.Stderr)
	return b.String()
}

func (e *ConversionError) Unwrap() error { return e.Err }

func quoteCommand(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'\\$") {
			quoted[i] = fmt.Sprintf("%q", a)
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}
