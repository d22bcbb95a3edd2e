// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes shared by incrime commands.
//
// Commands always return errors; the Handle* wrappers decide how to display
// them and which exit code to use.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/incrime/incrime-tui/internal/api"
	"github.com/incrime/incrime-tui/internal/auth"
	"github.com/incrime/incrime-tui/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a missing, rejected or expired session
	ExitAuthError = 4
	// ExitNetworkError indicates the server could not be reached
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a failed command with context.
type CommandError struct {
	Command string // e.g. "sessions"
	Action  string // e.g. "delete"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents bad user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string // optional
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string // e.g. "chat"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// RejectedError is a login or registration the server refused.
type RejectedError struct {
	Op      string // "login" or "signup"
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// ConfigError wraps a failure to load or validate the config file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// ErrMissingArgument creates an error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{Field: argName, Reason: "required argument missing", Example: usage}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// ErrUnsupportedFormat creates an error for an unsupported output format.
func ErrUnsupportedFormat(format string, supported []string) error {
	return &ValidationError{
		Field:   "format",
		Value:   format,
		Reason:  "unsupported format",
		Example: fmt.Sprintf("supported formats: %v", supported),
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayErrorJSON writes err to stdout as a JSON error response.
func DisplayErrorJSON(err error) {
	writeErrorJSON(os.Stdout, err)
}

func writeErrorJSON(w io.Writer, err error) {
	output := map[string]interface{}{
		"error":      err.Error(),
		"success":    false,
		"error_type": errorType(err),
		"exit_code":  GetExitCode(err),
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status != 0 {
			output["status"] = apiErr.Status
		}
		if apiErr.RequestID != "" {
			output["request_id"] = apiErr.RequestID
		}
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		output["resource"] = notFound.Resource
		output["id"] = notFound.ID
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(output)
}

func errorType(err error) string {
	var (
		validationErr *ValidationError
		formErr       *auth.ValidationError
		notFoundErr   *NotFoundError
		configErr     *ConfigError
		apiErr        *api.Error
		cmdErr        *CommandError
		rejectedErr   *RejectedError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &formErr):
		return "validation_error"
	case errors.As(err, &notFoundErr):
		return "not_found_error"
	case errors.As(err, &rejectedErr):
		return "auth_rejected"
	case errors.As(err, &configErr):
		return "config_error"
	case errors.As(err, &apiErr):
		return "api_error"
	case errors.As(err, &cmdErr):
		return "command_error"
	default:
		return "generic_error"
	}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error onto an exit code by type.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var formErr *auth.ValidationError
	if errors.As(err, &validationErr) || errors.As(err, &formErr) {
		return ExitUsageError
	}

	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return ExitNotFoundError
	}

	var configErr *ConfigError
	var configInvalid config.ValidateErrors
	if errors.As(err, &configErr) || errors.As(err, &configInvalid) {
		return ExitConfigError
	}

	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return ExitAuthError
	}

	if errors.Is(err, auth.ErrNotAuthenticated) || errors.Is(err, auth.ErrSessionExpired) || api.IsUnauthorized(err) {
		return ExitAuthError
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeoutError
	}

	var apiErr *api.Error
	if errors.Is(err, api.ErrCircuitOpen) || (errors.As(err, &apiErr) && apiErr.Status == 0) {
		return ExitNetworkError
	}

	return ExitGeneralError
}
