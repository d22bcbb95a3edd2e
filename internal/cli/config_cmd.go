// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - View and edit the configuration.
//
// Command: config [subcommand]
//
// Subcommands:
//
//	show (default)   Print the effective config (file + env overrides) as TOML
//	path             Print the config file, data directory and log file
//	get KEY          Print one value, e.g. "api.base_url"
//	set KEY VALUE    Write one value to the config file
//	keys             List every key accepted by get and set
//
// The file can also be edited with any editor; the chat UI reloads it on save.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/incrime/incrime-tui/internal/config"
)

// PathData is the data of "config path".
type PathData struct {
	ConfigFile string `json:"config_file"`
	Exists     bool   `json:"exists"`
	DataDir    string `json:"data_dir"`
	LogFile    string `json:"log_file"`
}

// SetData is the data of "config set".
type SetData struct {
	Key        string      `json:"key"`
	Value      interface{} `json:"value"`
	ConfigFile string      `json:"config_file"`
}

// RunConfig runs the config command, writing to w.
func RunConfig(w io.Writer, args Args) error {
	// set edits the file itself, so it must work even when the current
	// effective config does not load.
	if args.Subcommand == "set" {
		return runConfigSet(w, args)
	}

	cfg, path, err := loadConfig(args)
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "", "show":
		if args.JSON {
			return NewJSONResponse("config show", cfg).Print(w)
		}
		if path != "" {
			fmt.Fprintln(w, DimStyle.Render("# "+path))
		}
		return toml.NewEncoder(w).Encode(cfg)

	case "path", "paths":
		data := PathData{ConfigFile: path}
		if _, statErr := os.Stat(path); path != "" && statErr == nil {
			data.Exists = true
		}
		if data.DataDir, err = cfg.ResolveDataDir(); err != nil {
			return &ConfigError{Path: path, Err: err}
		}
		if data.LogFile, err = cfg.ResolveLogFile(); err != nil {
			return &ConfigError{Path: path, Err: err}
		}
		if args.JSON {
			return NewJSONResponse("config path", data).Print(w)
		}
		exists := ""
		if !data.Exists {
			exists = DimStyle.Render(" (not created, using defaults)")
		}
		fmt.Fprintf(w, "%s %s%s\n", RenderLabel("Config file"), data.ConfigFile, exists)
		fmt.Fprintf(w, "%s %s\n", RenderLabel("Data dir"), data.DataDir)
		fmt.Fprintf(w, "%s %s\n", RenderLabel("Log file"), data.LogFile)
		return nil

	case "get":
		if args.Query == "" {
			return ErrMissingArgument("key", "incrime config get api.base_url")
		}
		val, err := cfg.Get(args.Query)
		if err != nil {
			return &ValidationError{Field: "key", Value: args.Query, Reason: err.Error(), Example: "incrime config keys"}
		}
		if args.JSON {
			return NewJSONResponse("config get", map[string]interface{}{"key": args.Query, "value": val}).Print(w)
		}
		fmt.Fprintln(w, val)
		return nil

	case "keys":
		keys := config.GetAllKeys()
		if args.JSON {
			return NewJSONResponse("config keys", keys).Print(w)
		}
		for _, k := range keys {
			fmt.Fprintln(w, k)
		}
		return nil

	default:
		return &ValidationError{
			Field:   "subcommand",
			Value:   args.Subcommand,
			Reason:  "unknown config subcommand",
			Example: "incrime config [show|path|get KEY|set KEY VALUE|keys]",
		}
	}
}

// runConfigSet writes one key to the config file named by --config, or to
// the default file.
func runConfigSet(w io.Writer, args Args) error {
	key, value, ok := strings.Cut(strings.TrimSpace(args.Query), " ")
	if key == "" {
		return ErrMissingArgument("key", "incrime config set ui.theme dark")
	}
	if !ok {
		return ErrMissingArgument("value", "incrime config set "+key+" VALUE")
	}

	cfg, path, err := config.SetInFile(args.ConfigPath, key, value)
	if err != nil {
		var verrs config.ValidateErrors
		if errors.Is(err, config.ErrUnknownKey) || errors.Is(err, config.ErrInvalidValue) || errors.As(err, &verrs) {
			return &ValidationError{Field: key, Value: strings.TrimSpace(value), Reason: err.Error(), Example: "incrime config keys"}
		}
		return &ConfigError{Path: path, Err: err}
	}

	saved, _ := cfg.Get(key)
	if args.JSON {
		return NewJSONResponse("config set", SetData{Key: key, Value: saved, ConfigFile: path}).Print(w)
	}
	fmt.Fprintf(w, "%s %s = %v\n", RenderLabel("Set"), key, saved)
	fmt.Fprintln(w, DimStyle.Render("# "+path))
	return nil
}
