// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and top-level command handlers for incrime.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdLogin
	CmdSignup
	CmdLogout
	CmdWhoami
	CmdSessions
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdLogin:
		return "login"
	case CmdSignup:
		return "signup"
	case CmdLogout:
		return "logout"
	case CmdWhoami:
		return "whoami"
	case CmdSessions:
		return "sessions"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config: explicit config file
	Ephemeral  bool   // --ephemeral: keep chats and token in memory only
	JSON       bool   // --json: machine-readable output
	Verbose    bool   // -v/--verbose: log to stderr

	// Command-specific
	Subcommand string
	Query      string

	// Raw args (remaining after the command word)
	Raw []string

	// Options holds command-specific named options (e.g. --format)
	Options map[string]string
}

const usageText = `incrime - InCrime Legal AI assistant for the terminal

Ask questions about Pakistani criminal and family law, keep a history of
your conversations, and sign in to your InCrime account.

Usage:
  incrime                          Start the chat UI (default)
  incrime ask "question"           Ask a single question
  incrime chat                     Line-oriented chat
  incrime login [--username U]     Sign in
  incrime signup                   Create an account
  incrime logout                   Sign out
  incrime whoami                   Show the signed-in user
  incrime sessions [subcommand]    Manage saved chats
  incrime config [subcommand]      Show or edit configuration
  incrime version                  Show version information
  incrime help                     Show this help

Sessions:
  incrime sessions list                         List saved chats (default)
  incrime sessions show ID                      Print one chat
  incrime sessions delete ID                    Delete one chat
  incrime sessions export ID [--format md|json] Export one chat
  incrime sessions search QUERY                 Search titles and messages

Config:
  incrime config show                           Print the effective config (default)
  incrime config path                           Print config, data and log paths
  incrime config get KEY                        Print one value
  incrime config set KEY VALUE                  Write one value to the config file
  incrime config keys                           List config keys

Chat UI keys:
  enter      Send            ctrl+n  New chat
  ctrl+h     History         ctrl+d  Delete selected chat
  ctrl+t     Dark/light      1-4     Use a suggestion
  f1         Help            ctrl+c  Quit

Global flags:
  --config PATH     Use this config file
  --ephemeral       Do not read or write stored chats or token
  --json            Machine-readable output
  -v, --verbose     Log to stderr

Environment:
  INCRIME_HOME       Config and data directory (default ~/.incrime)
  INCRIME_API_URL    Server base URL
  INCRIME_THEME      dark or light
  NO_COLOR           Disable colored output

Examples:
  incrime ask "How do I file a bail application?"
  incrime sessions export 1718000000000 --format json > chat.json
  INCRIME_THEME=dark incrime
`

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes the version banner to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "incrime %s\n", Version)
	fmt.Fprintf(w, "  commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  built:  %s\n", BuildDate)
	fmt.Fprintf(w, "  go:     %s\n", runtime.Version())
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses argv (without the program name).
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	// If no remaining args, default to TUI
	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	word := remaining[0]
	cmd := strings.ToLower(word)
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask", "a":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "login", "signin":
		parseOptions(&parsedArgs, remaining)
		return CmdLogin, parsedArgs

	case "signup", "register":
		return CmdSignup, parsedArgs

	case "logout", "signout":
		return CmdLogout, parsedArgs

	case "whoami", "me":
		return CmdWhoami, parsedArgs

	case "sessions", "session", "history":
		parseOptions(&parsedArgs, remaining)
		return CmdSessions, parsedArgs

	case "config":
		parseOptions(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Anything else is a question: `incrime what is an FIR`.
		parseAskArgs(&parsedArgs, append([]string{word}, remaining...))
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsedArgs := Args{
		Options: make(map[string]string),
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "--ephemeral":
			parsedArgs.Ephemeral = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--config":
			if i+1 < len(args) {
				i++
				parsedArgs.ConfigPath = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--config=") {
				parsedArgs.ConfigPath = strings.TrimPrefix(arg, "--config=")
			} else {
				remaining = append(remaining, arg)
			}
		}
	}

	return remaining, parsedArgs
}

// parseAskArgs joins the non-flag words into the query.
func parseAskArgs(args *Args, remaining []string) {
	var query []string
	for _, arg := range remaining {
		if arg == "--" {
			continue
		}
		query = append(query, arg)
	}
	args.Query = strings.TrimSpace(strings.Join(query, " "))
}

// parseOptions records the subcommand and any --name value options.
func parseOptions(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Subcommand = strings.ToLower(p.Subcommand())
	for _, name := range []string{"username", "format", "output"} {
		if v := p.Flag(name); v != "" {
			args.Options[name] = v
		}
	}
	if p.BoolFlag("confirm") || p.BoolFlag("yes") || p.BoolFlag("y") {
		args.Options["confirm"] = "true"
	}
	args.Query = JoinPositionalArgs(p, 1)
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// exitOnError prints err and exits with its category code.
func exitOnError(err error, args Args) {
	if err == nil {
		return
	}
	if args.JSON {
		DisplayErrorJSON(err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(GetExitCode(err))
}

// withApp opens the application, runs fn and closes it.
func withApp(args Args, fn func(*App) error) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) {
	exitOnError(withApp(args, func(a *App) error { return a.Ask(args) }), args)
}

// HandleChat handles the "chat" command.
func HandleChat(args Args) {
	exitOnError(withApp(args, func(a *App) error { return a.Chat(args) }), args)
}

// HandleLogin handles the "login" command.
func HandleLogin(args Args) {
	exitOnError(withApp(args, func(a *App) error { return a.Login(args) }), args)
}

// HandleSignup handles the "signup" command.
func HandleSignup(args Args) {
	exitOnError(withApp(args, func(a *App) error { return a.Signup(args) }), args)
}

// HandleLogout handles the "logout" command.
func HandleLogout(args Args) {
	exitOnError(withApp(args, func(a *App) error { return a.Logout(args) }), args)
}

// HandleWhoami handles the "whoami" command.
func HandleWhoami(args Args) {
	exitOnError(withApp(args, func(a *App) error { return a.Whoami(args) }), args)
}

// HandleSessions handles the "sessions" command.
func HandleSessions(args Args) {
	exitOnError(withApp(args, func(a *App) error { return a.Sessions(args) }), args)
}

// HandleConfig handles the "config" command. It does not open storage.
func HandleConfig(args Args) {
	exitOnError(RunConfig(os.Stdout, args), args)
}

// HandleVersion handles the "version" command with JSON output support.
func HandleVersion(args Args) {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		_ = NewJSONResponse("version", data).Print(os.Stdout)
		return
	}
	PrintVersion(os.Stdout)
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
