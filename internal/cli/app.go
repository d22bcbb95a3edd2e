// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Application wiring shared by the TUI and every command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/incrime/incrime-tui/internal/api"
	"github.com/incrime/incrime-tui/internal/auth"
	"github.com/incrime/incrime-tui/internal/config"
	"github.com/incrime/incrime-tui/internal/conversation"
	"github.com/incrime/incrime-tui/internal/logging"
	"github.com/incrime/incrime-tui/internal/security"
	"github.com/incrime/incrime-tui/internal/storage"
)

// App holds the wired components of a running incrime process.
type App struct {
	Config *config.Config
	// ConfigPath is the file the config came from, or would come from.
	ConfigPath string
	Logger     zerolog.Logger

	KV         storage.KV
	Client     *api.Client
	Auth       *auth.Context
	Store      *storage.TranscriptStore
	Controller *conversation.Controller

	// Out receives command output.
	Out io.Writer

	// Prompt readers; replaced in tests.
	readLine     func(prompt string) (string, error)
	readPassword func(prompt string) (string, error)

	closers []io.Closer
}

// NewApp loads configuration and wires the application for args.
//
// Wiring order: config, logging, storage, API client, token sealer, auth
// context, transcript store, conversation controller.
func NewApp(args Args) (*App, error) {
	cfg, path, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:       cfg,
		ConfigPath:   path,
		Out:          os.Stdout,
		readLine:     promptLine,
		readPassword: promptPassword,
	}

	logger, closer, err := openLogger(cfg, args)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	app.Logger = logger
	app.closers = append(app.closers, closer)

	backend := cfg.Storage.Backend
	if args.Ephemeral {
		backend = storage.BackendMemory
	}
	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		app.Close()
		return nil, &ConfigError{Path: path, Err: err}
	}
	kv, err := storage.Open(backend, dataDir)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to open %s storage in %s: %w", backend, dataDir, err)
	}

	// A token sealer only makes sense for durable storage.
	var sealer auth.TokenSealer
	if cfg.Storage.SealToken && backend != storage.BackendMemory {
		s, err := security.NewSealer(security.NewFileKeyStoreInDir(dataDir))
		if err != nil {
			kv.Close()
			app.Close()
			return nil, fmt.Errorf("failed to prepare token encryption: %w", err)
		}
		sealer = s
	}

	app.wire(kv, sealer)
	logger.Debug().
		Str("backend", backend).
		Str("data_dir", dataDir).
		Str("api", app.Client.BaseURL()).
		Msg("application ready")
	return app, nil
}

// wire builds the remote and domain components over kv.
func (a *App) wire(kv storage.KV, sealer auth.TokenSealer) {
	cfg := a.Config
	a.KV = kv
	a.closers = append(a.closers, kv)

	a.Client = api.New(api.Options{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         time.Duration(cfg.API.TimeoutSecs) * time.Second,
		RatePerSecond:   cfg.API.RatePerSecond,
		Burst:           cfg.API.Burst,
		BreakerFailures: cfg.API.BreakerFailures,
		BreakerCooldown: time.Duration(cfg.API.BreakerCooldownSecs) * time.Second,
		UserAgent:       "incrime/" + Version,
		Logger:          logging.Component(a.Logger, "api"),
	})

	a.Auth = auth.New(kv, a.Client, auth.Options{
		TokenKey: cfg.Storage.TokenKey,
		Sealer:   sealer,
		Logger:   logging.Component(a.Logger, "auth"),
	})

	a.Store = storage.NewTranscriptStore(kv, cfg.Storage.ChatsKey, logging.Component(a.Logger, "storage"))
	a.Controller = conversation.New(a.Store, a.Client, conversation.Options{
		Logger: logging.Component(a.Logger, "conversation"),
	})
}

// Close releases storage and the log file. It is safe to call twice.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// context returns a context cancelled on Ctrl+C.
func (a *App) context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// =============================================================================
// CONFIG AND LOGGING
// =============================================================================

// loadConfig reads --config or the default file, and reports the path to
// watch for edits.
func loadConfig(args Args) (*config.Config, string, error) {
	if args.ConfigPath != "" {
		cfg, err := config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, args.ConfigPath, &ConfigError{Path: args.ConfigPath, Err: err}
		}
		return cfg, args.ConfigPath, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, "", &ConfigError{Err: err}
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		path = ""
	}
	return cfg, path, nil
}

// openLogger logs to a file by default, since the TUI owns the terminal.
// --verbose switches to stderr. --ephemeral leaves no log file behind.
func openLogger(cfg *config.Config, args Args) (zerolog.Logger, io.Closer, error) {
	opts := logging.Options{Level: cfg.Log.Level, Stderr: args.Verbose}
	if !args.Verbose && !args.Ephemeral {
		file, err := cfg.ResolveLogFile()
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		opts.File = file
	}
	if args.Verbose && cfg.Log.Level == "info" {
		opts.Level = "debug"
	}
	return logging.New(opts)
}
