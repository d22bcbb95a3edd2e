// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "subcommand with flag",
			args:    []string{"export", "--format", "json"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("format") != "json" {
					t.Errorf("Flag(format) = %q, want %q", p.Flag("format"), "json")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"export", "--output=chat.md"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("output") != "chat.md" {
					t.Errorf("Flag(output) = %q, want %q", p.Flag("output"), "chat.md")
				}
			},
		},
		{
			name:    "boolean flag",
			args:    []string{"delete", "3", "--confirm"},
			wantSub: "delete",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("confirm") {
					t.Error("BoolFlag(confirm) should be true")
				}
				if got := JoinPositionalArgs(p, 1); got != "3" {
					t.Errorf("JoinPositionalArgs(1) = %q, want %q", got, "3")
				}
			},
		},
		{
			name:    "boolean flag with explicit value",
			args:    []string{"delete", "--confirm=false"},
			wantSub: "delete",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("confirm") {
					t.Error("BoolFlag(confirm) should be false")
				}
				if p.Flag("confirm") != "" {
					t.Errorf("Flag(confirm) = %q, want empty", p.Flag("confirm"))
				}
			},
		},
		{
			name:    "lone dash is positional",
			args:    []string{"export", "-"},
			wantSub: "export",
			validate: func(t *testing.T, p *ArgParser) {
				if got := JoinPositionalArgs(p, 1); got != "-" {
					t.Errorf("JoinPositionalArgs(1) = %q, want %q", got, "-")
				}
			},
		},
		{
			name:    "multi-word query",
			args:    []string{"search", "bail", "application"},
			wantSub: "search",
			validate: func(t *testing.T, p *ArgParser) {
				if got := JoinPositionalArgs(p, 1); got != "bail application" {
					t.Errorf("JoinPositionalArgs = %q, want %q", got, "bail application")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args)
			if p.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", p.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_EmptyArgs(t *testing.T) {
	p := NewArgParser(nil)
	if p.Subcommand() != "" {
		t.Errorf("Subcommand() = %q, want empty", p.Subcommand())
	}
	if got := p.PositionalFrom(0); len(got) != 0 {
		t.Errorf("PositionalFrom(0) = %v, want empty", got)
	}
	if got := p.PositionalFrom(-1); len(got) != 0 {
		t.Errorf("PositionalFrom(-1) = %v, want empty", got)
	}
	if got := JoinPositionalArgs(p, 1); got != "" {
		t.Errorf("JoinPositionalArgs(1) = %q, want empty", got)
	}
}

func TestParseIntWithValidation(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{"", 0, true},
		{"abc", 0, true},
		{"0", 0, true},
		{"-2", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseIntWithValidation(tt.input, "position")
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIntWithValidation(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseIntWithValidation(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParseArgs_Commands(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
	}{
		{"no args starts the UI", nil, CmdTUI},
		{"tui", []string{"tui"}, CmdTUI},
		{"ask", []string{"ask", "what", "is", "bail"}, CmdAsk},
		{"ask alias", []string{"a", "hi"}, CmdAsk},
		{"chat", []string{"chat"}, CmdChat},
		{"login", []string{"login"}, CmdLogin},
		{"login alias", []string{"signin"}, CmdLogin},
		{"signup", []string{"signup"}, CmdSignup},
		{"signup alias", []string{"register"}, CmdSignup},
		{"logout", []string{"logout"}, CmdLogout},
		{"whoami", []string{"whoami"}, CmdWhoami},
		{"whoami alias", []string{"me"}, CmdWhoami},
		{"sessions", []string{"sessions"}, CmdSessions},
		{"history alias", []string{"history", "list"}, CmdSessions},
		{"config", []string{"config", "path"}, CmdConfig},
		{"version", []string{"version"}, CmdVersion},
		{"version flag", []string{"--version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
		{"help flag", []string{"-h"}, CmdHelp},
		{"case insensitive", []string{"WHOAMI"}, CmdWhoami},
		{"unknown word is a question", []string{"what", "is", "khula"}, CmdAsk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := ParseArgs(tt.argv)
			if cmd != tt.wantCmd {
				t.Errorf("ParseArgs(%v) = %v, want %v", tt.argv, cmd, tt.wantCmd)
			}
		})
	}
}

func TestParseArgs_GlobalFlags(t *testing.T) {
	cmd, args := ParseArgs([]string{"--json", "ask", "--ephemeral", "-v", "--config", "/tmp/c.toml", "hello"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want ask", cmd)
	}
	if !args.JSON || !args.Ephemeral || !args.Verbose {
		t.Errorf("global flags not parsed: %+v", args)
	}
	if args.ConfigPath != "/tmp/c.toml" {
		t.Errorf("ConfigPath = %q, want /tmp/c.toml", args.ConfigPath)
	}
	if args.Query != "hello" {
		t.Errorf("Query = %q, want hello", args.Query)
	}

	_, args = ParseArgs([]string{"config", "--config=/etc/incrime.toml"})
	if args.ConfigPath != "/etc/incrime.toml" {
		t.Errorf("ConfigPath = %q, want /etc/incrime.toml", args.ConfigPath)
	}
}

func TestParseArgs_Questions(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want string
	}{
		{"ask joins words", []string{"ask", "How", "do", "I", "file", "an", "FIR?"}, "How do I file an FIR?"},
		{"double dash is skipped", []string{"ask", "--", "-v", "means", "verbose"}, "means verbose"},
		{"bare question keeps first word case", []string{"What", "is", "khula"}, "What is khula"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, args := ParseArgs(tt.argv)
			if args.Query != tt.want {
				t.Errorf("Query = %q, want %q", args.Query, tt.want)
			}
		})
	}
}

func TestParseArgs_Options(t *testing.T) {
	_, args := ParseArgs([]string{"sessions", "Export", "2", "--format", "json", "--output", "out.json"})
	if args.Subcommand != "export" {
		t.Errorf("Subcommand = %q, want export", args.Subcommand)
	}
	if args.Query != "2" {
		t.Errorf("Query = %q, want 2", args.Query)
	}
	if args.Options["format"] != "json" || args.Options["output"] != "out.json" {
		t.Errorf("Options = %v", args.Options)
	}

	for _, flag := range []string{"--confirm", "--yes", "-y"} {
		_, args = ParseArgs([]string{"sessions", "delete", "1", flag})
		if args.Options["confirm"] != "true" {
			t.Errorf("%s: confirm option not set", flag)
		}
	}

	_, args = ParseArgs([]string{"login", "--username", "ayesha"})
	if args.Options["username"] != "ayesha" {
		t.Errorf("username = %q, want ayesha", args.Options["username"])
	}

	_, args = ParseArgs([]string{"sessions", "search", "bail", "hearing"})
	if args.Query != "bail hearing" {
		t.Errorf("Query = %q, want %q", args.Query, "bail hearing")
	}
}

func TestCommandString(t *testing.T) {
	if CmdSessions.String() != "sessions" {
		t.Errorf("CmdSessions.String() = %q", CmdSessions.String())
	}
	if CmdTUI.String() != "tui" {
		t.Errorf("CmdTUI.String() = %q", CmdTUI.String())
	}
}

// =============================================================================
// JSON OUTPUT TESTS (json_output.go)
// =============================================================================

func TestJSONResponse_Print(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONResponse("version", VersionData{Version: "1.2.3"}).Print(&buf); err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	var got struct {
		Success bool            `json:"success"`
		Command string          `json:"command"`
		Error   *string         `json:"error"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if !got.Success || got.Command != "version" || got.Error != nil {
		t.Errorf("unexpected envelope: %+v", got)
	}
	if !strings.Contains(string(got.Data), `"version": "1.2.3"`) {
		t.Errorf("data = %s", got.Data)
	}
}

func TestOutputJSON_TextModeLeavesOutputToHandler(t *testing.T) {
	var buf bytes.Buffer
	err := OutputJSON(&buf, false, "x", func() (interface{}, error) { return "data", nil })
	if err != nil {
		t.Fatalf("OutputJSON() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("text mode wrote %q", buf.String())
	}
}

func TestOutputJSON_ErrorIsReturnedUnprinted(t *testing.T) {
	var buf bytes.Buffer
	want := errors.New("disk full")
	err := OutputJSON(&buf, true, "x", func() (interface{}, error) { return nil, want })
	if !errors.Is(err, want) {
		t.Fatalf("OutputJSON() error = %v, want %v", err, want)
	}
	if buf.Len() != 0 {
		t.Errorf("error was printed as well as returned: %q", buf.String())
	}
}

// =============================================================================
// BENCHMARKS
// =============================================================================

func BenchmarkArgParser(b *testing.B) {
	args := []string{"export", "1718000000000", "--format", "json", "--output=chat.json", "--confirm"}
	for i := 0; i < b.N; i++ {
		NewArgParser(args)
	}
}
