package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // expected verdicts only
	ExitFailure      = 1 // counterexample, unsatisfiable run, or timeout
	ExitCommandError = 2 // bad usage, unreadable model, scope contradiction
)

// ExitError carries a specific exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError builds an ExitError without an underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to an existing error.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error, defaulting to
// ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter switches command output between text and JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Text writes a text payload, or wraps it when the format is JSON.
func (f *OutputFormatter) Text(s string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(map[string]string{"text": s})
	}
	_, err := fmt.Fprintln(f.Writer, s)
	return err
}

// Raw writes pre-rendered bytes followed by a newline.
func (f *OutputFormatter) Raw(b []byte) error {
	if _, err := f.Writer.Write(b); err != nil {
		return err
	}
	_, err := fmt.Fprintln(f.Writer)
	return err
}
