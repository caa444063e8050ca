package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/northwind/internal/provision"
	"github.com/roach88/northwind/internal/registry"
	"github.com/roach88/northwind/internal/schema"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The store or the request was rejected (version mismatch, unknown field, ...)
	ExitCommandError = 2 // Command error (invalid paths, unreadable files, bad configuration, ...)
)

// Error codes reported in JSON error responses.
const (
	ErrCodeGeneric       = "E001"
	ErrCodeConfig        = "E002"
	ErrCodeNotFound      = "E005"
	ErrCodeVersion       = "E010"
	ErrCodeDestination   = "E020"
	ErrCodeFilesystem    = "E021"
	ErrCodeUnknownField  = "E030"
	ErrCodeBadPredicate  = "E031"
	ErrCodeUnknownEntity = "E032"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	ErrCode string // Error code for JSON output (optional)
	Message string // Error message
	Err     error  // Underlying error (optional)
	// Reported is set once the error has been written to the command output.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// Reported reports whether err was already written by an OutputFormatter.
func Reported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify wraps a library error with the exit and error codes of its kind.
func classify(message string, err error) *ExitError {
	e := WrapExitError(ExitCommandError, message, err)
	switch {
	case errors.Is(err, errStoreNotFound):
		e.Code, e.ErrCode = ExitFailure, ErrCodeNotFound
	case errors.Is(err, provision.ErrDestinationUnresolvable):
		e.ErrCode = ErrCodeDestination
	case errors.Is(err, provision.ErrFilesystem):
		e.ErrCode = ErrCodeFilesystem
	case schema.IsVersionMismatch(err):
		e.Code, e.ErrCode = ExitFailure, ErrCodeVersion
	case registry.IsUnknownField(err):
		e.Code, e.ErrCode = ExitFailure, ErrCodeUnknownField
	case errors.Is(err, registry.ErrUnknownEntity):
		e.Code, e.ErrCode = ExitFailure, ErrCodeUnknownEntity
	default:
		e.ErrCode = ErrCodeGeneric
	}
	return e
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	if s, ok := data.(fmt.Stringer); ok {
		fmt.Fprint(f.Writer, s.String())
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns it unchanged, so
// commands can write `return f.Fail(err)`.
func (f *OutputFormatter) Fail(err *ExitError) error {
	code := err.ErrCode
	if code == "" {
		code = ErrCodeGeneric
	}
	var details any
	if err.Err != nil {
		details = err.Err.Error()
	}
	if outErr := f.Error(code, err.Message, details); outErr != nil {
		return outErr
	}
	err.Reported = true
	return err
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
