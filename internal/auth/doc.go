// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth holds the client-side authentication state.
//
// A Context owns the bearer token and the current user. The token is read
// from durable storage when the Context is created, verified against the
// server by Init, and attached to the API backend for every later call.
// Any failure to confirm the session logs the user out locally.
//
// Form validation for login and signup lives here too, so the TUI and the
// line-mode commands reject the same input with the same messages.
package auth
