// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error variables for common API failures.
var (
	// ErrNoToken indicates an authenticated call was made without a token.
	ErrNoToken = errors.New("no auth token set")

	// ErrCircuitOpen indicates the chat endpoint is failing and calls are
	// being short-circuited.
	ErrCircuitOpen = errors.New("assistant temporarily unavailable")

	// ErrEmptyReply indicates the server accepted the message but sent no text.
	ErrEmptyReply = errors.New("assistant returned an empty reply")
)

// Error is a failed API call.
type Error struct {
	// Op is the logical operation: "chat", "login", "register", "me".
	Op string
	// Status is the HTTP status, or 0 when no response was received.
	Status int
	// Message is the server-provided or synthesized explanation.
	Message string
	// RequestID is the X-Request-ID sent with the call.
	RequestID string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s failed (HTTP %d): %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s failed (HTTP %d)", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is an API rejection of the credentials.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return errors.Is(err, ErrNoToken)
}

// UserMessage returns text suitable for showing in a form.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == 0 {
			return "Could not reach the server. Check your connection and try again."
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("Server error (HTTP %d). Please try again.", apiErr.Status)
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
