// Package printer formats operator-facing CLI output with colors.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

// Printer writes formatted messages. Out receives progress, Err receives errors.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

// New returns a printer writing to out and errOut.
func New(out, errOut io.Writer) *Printer {
	return &Printer{Out: out, Err: errOut}
}

var std = New(os.Stdout, os.Stderr)

// Success prints a green message with a checkmark prefix.
func (p *Printer) Success(format string, a ...any) {
	green.Fprint(p.Out, withPrefix("✓", fmt.Sprintf(format, a...)))
}

// Warning prints a yellow message with a warning prefix.
func (p *Printer) Warning(format string, a ...any) {
	yellow.Fprint(p.Out, withPrefix("⚠️ ", fmt.Sprintf(format, a...)))
}

// Failure prints a red message with a cross prefix.
func (p *Printer) Failure(format string, a ...any) {
	red.Fprint(p.Out, withPrefix("✗", fmt.Sprintf(format, a...)))
}

// Step prints a cyan progress message.
func (p *Printer) Step(format string, a ...any) {
	cyan.Fprint(p.Out, withPrefix("→", fmt.Sprintf(format, a...)))
}

// Detail prints a dimmed secondary line.
func (p *Printer) Detail(format string, a ...any) {
	faint.Fprintf(p.Out, format, a...)
}

// Info prints an uncolored message.
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.Out, format, a...)
}

// Error prints a titled error with explanation, context and suggestions to Err
// and returns an error carrying only the title, for Cobra.
func (p *Printer) Error(title, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(p.Err, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(p.Err, "%s\n", explanation)
	}

	if len(context) > 0 {
		fmt.Fprintln(p.Err)
		for key, value := range context {
			fmt.Fprintf(p.Err, "  %s: %s\n", key, value)
		}
	}

	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(p.Err, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(p.Err, "\nEither:\n")
		for i, suggestion := range suggestions {
			fmt.Fprintf(p.Err, "  %d. %s\n", i+1, suggestion)
		}
	}

	// Cobra does not print it again (SilenceErrors)
	return fmt.Errorf("%s", title)
}

func withPrefix(prefix, msg string) string {
	if strings.HasPrefix(msg, prefix) {
		return msg
	}
	return prefix + " " + msg
}

// Success prints to stdout.
func Success(format string, a ...any) { std.Success(format, a...) }

// Warning prints to stdout.
func Warning(format string, a ...any) { std.Warning(format, a...) }

// Step prints to stdout.
func Step(format string, a ...any) { std.Step(format, a...) }

// Info prints to stdout.
func Info(format string, a ...any) { std.Info(format, a...) }

// Error prints a formatted error to stderr and returns the title as an error.
func Error(title, explanation string, suggestions []string) error {
	return std.Error(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value context lines.
func ErrorWithContext(title, explanation string, context map[string]string, suggestions []string) error {
	return std.Error(title, explanation, context, suggestions)
}
