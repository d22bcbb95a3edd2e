// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the InCrime legal assistance API.
//
// The client covers the four endpoints the terminal client needs: posting a
// chat message, logging in, registering, and fetching the current user.
// Requests are throttled with a token bucket, tagged with an X-Request-ID,
// and the chat endpoint runs behind a circuit breaker so a dead backend
// fails fast instead of stalling every send for the full timeout.
//
// # Errors
//
// Transport failures and unexpected HTTP statuses are returned as *Error.
// Login and registration rejections that the server explains with a JSON
// body are not errors; they come back as AuthResponse{Success: false}.
package api
