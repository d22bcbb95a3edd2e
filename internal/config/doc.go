// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for incrime.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - APIConfig: Remote InCrime API endpoint, timeouts and throttling
//   - StorageConfig: Durable key-value backend and storage keys
//   - UIConfig: Theme and rendering options
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (INCRIME_*)
//   - ~/.incrime/config.toml
//   - ~/.incrime/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// React to edits while the TUI is running:
//
//	go config.Watch(ctx, path, func(cfg *config.Config) { ... })
package config
