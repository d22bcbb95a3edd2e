// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation drives the chat: it owns the transcript collection,
// tracks which transcript is active, and mediates each send with the remote
// assistant.
//
// # State Machine
//
//	Idle ──send──▶ Awaiting-Reply ──reply or failure──▶ Active
//	 ▲                   ▲                                 │
//	 └──new/delete───────┴─────────────send────────────────┘
//
// A send appends the user entry, makes exactly one remote call, appends the
// reply (or a fixed apology when the call fails), then rewrites the whole
// collection to storage. Remote failures never reach the caller.
//
// # Concurrency
//
// Bubble Tea runs commands on their own goroutines, so the controller
// guards its state with a mutex. The lock is never held across the remote
// call. Only one send may be outstanding; a second one gets ErrBusy.
package conversation
