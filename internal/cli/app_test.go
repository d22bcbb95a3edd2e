// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incrime/incrime-tui/internal/api"
	"github.com/incrime/incrime-tui/internal/conversation"
	"github.com/incrime/incrime-tui/internal/storage"
)

// =============================================================================
// TEST SERVER
// =============================================================================

const testToken = "tok-1"

// fakeServer answers the chatbot and auth endpoints.
type fakeServer struct {
	mu       sync.Mutex
	failChat bool
	asked    []string
}

func (s *fakeServer) setFailChat(v bool) {
	s.mu.Lock()
	s.failChat = v
	s.mu.Unlock()
}

func (s *fakeServer) handler() http.Handler {
	user := api.User{ID: "u1", FullName: "Ayesha Khan", Username: "ayesha", Email: "ayesha@example.com", Role: "user"}

	mux := http.NewServeMux()
	mux.HandleFunc(api.PathChat, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		s.mu.Lock()
		s.asked = append(s.asked, req.Message)
		fail := s.failChat
		s.mu.Unlock()

		if fail {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "message": "model offline"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "response": "Answer: " + req.Message})
	})
	mux.HandleFunc(api.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		var creds api.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "Invalid credentials"})
			return
		}
		if creds.Username == "root" {
			admin := api.User{ID: "u0", FullName: "Site Admin", Username: "root", Role: "admin"}
			writeJSON(w, http.StatusOK, api.AuthResponse{Success: true, Token: "tok-admin", User: &admin})
			return
		}
		writeJSON(w, http.StatusOK, api.AuthResponse{Success: true, Token: testToken, User: &user})
	})
	mux.HandleFunc(api.PathRegister, func(w http.ResponseWriter, r *http.Request) {
		var reg api.Registration
		_ = json.NewDecoder(r.Body).Decode(&reg)
		if reg.Username == "taken" {
			writeJSON(w, http.StatusConflict, map[string]interface{}{"success": false, "message": "Username already exists"})
			return
		}
		created := api.User{ID: "u2", FullName: reg.FullName, Username: reg.Username, Email: reg.Email, Role: "user"}
		writeJSON(w, http.StatusCreated, api.AuthResponse{Success: true, Token: testToken, User: &created})
	})
	mux.HandleFunc(api.PathMe, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "Invalid token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "user": user})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newTestApp wires an App against a fresh fake server in a private home
// directory. Ephemeral apps keep everything in memory.
func newTestApp(t *testing.T, ephemeral bool) (*App, *fakeServer, *bytes.Buffer) {
	t.Helper()
	srv := &fakeServer{}
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)

	t.Setenv("INCRIME_HOME", t.TempDir())
	t.Setenv("INCRIME_API_URL", ts.URL)
	t.Setenv("INCRIME_API_RATE", "0")

	app := openTestApp(t, ephemeral)
	return app, srv, app.Out.(*bytes.Buffer)
}

// openTestApp opens an App over the current environment.
func openTestApp(t *testing.T, ephemeral bool) *App {
	t.Helper()
	app, err := NewApp(Args{Ephemeral: ephemeral, Options: map[string]string{}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	app.Out = &bytes.Buffer{}
	app.readLine = func(string) (string, error) { return "", io.EOF }
	app.readPassword = func(string) (string, error) { return "", io.EOF }
	return app
}

func askArgs(q string) Args {
	return Args{Query: q, Options: map[string]string{}}
}

func sessionArgs(sub, query string, opts map[string]string) Args {
	if opts == nil {
		opts = map[string]string{}
	}
	return Args{Subcommand: sub, Query: query, Options: opts}
}

// =============================================================================
// WIRING
// =============================================================================

func TestNewApp_Ephemeral(t *testing.T) {
	app, _, _ := newTestApp(t, true)

	assert.NotNil(t, app.Controller)
	assert.NotNil(t, app.Auth)
	assert.Empty(t, app.Auth.Token())
	assert.Empty(t, app.Controller.Sessions())
	assert.NoError(t, app.Close())
	assert.NoError(t, app.Close(), "second Close is a no-op")
}

func TestNewApp_BadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"neon\"\n"), 0600))

	_, err := NewApp(Args{ConfigPath: path, Ephemeral: true, Options: map[string]string{}})
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_PrintsReplyAndSavesChat(t *testing.T) {
	app, srv, out := newTestApp(t, true)

	require.NoError(t, app.Ask(askArgs("What is bail?")))
	assert.Contains(t, out.String(), "Answer: What is bail?")
	assert.Equal(t, []string{"What is bail?"}, srv.asked)

	sessions := app.Controller.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "What is bail?", sessions[0].Title)
	require.Len(t, sessions[0].Messages, 2)
}

func TestAsk_EachQuestionStartsANewChat(t *testing.T) {
	app, _, _ := newTestApp(t, true)

	require.NoError(t, app.Ask(askArgs("first")))
	require.NoError(t, app.Ask(askArgs("second")))

	sessions := app.Controller.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "second", sessions[0].Title, "newest first")
}

func TestAsk_FailureStoresFallback(t *testing.T) {
	app, srv, out := newTestApp(t, true)
	srv.setFailChat(true)

	require.NoError(t, app.Ask(askArgs("Is this offline?")))
	assert.Contains(t, out.String(), conversation.FallbackReply)

	sessions := app.Controller.Sessions()
	require.Len(t, sessions, 1)
	msgs := sessions[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, conversation.FallbackReply, msgs[1].Text)
	assert.Empty(t, msgs[1].Time)
}

func TestAsk_BlankQuestion(t *testing.T) {
	app, _, _ := newTestApp(t, true)

	err := app.Ask(askArgs("   "))
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	assert.Empty(t, app.Controller.Sessions())
}

func TestAsk_JSON(t *testing.T) {
	app, _, out := newTestApp(t, true)

	args := askArgs("What is khula?")
	args.JSON = true
	require.NoError(t, app.Ask(args))

	var resp struct {
		Success bool    `json:"success"`
		Data    AskData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "What is khula?", resp.Data.Question)
	assert.Equal(t, "Answer: What is khula?", resp.Data.Reply)
	assert.Equal(t, app.Controller.ActiveID(), resp.Data.TranscriptID)
}

// =============================================================================
// CHAT
// =============================================================================

// scriptReader replays lines and records pre-filled prompts.
type scriptReader struct {
	lines    []string
	prefills []string
}

func (r *scriptReader) ReadInput(string) (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptReader) ReadInputWithText(prompt, text string) (string, error) {
	r.prefills = append(r.prefills, text)
	return r.ReadInput(prompt)
}

func (r *scriptReader) Close() {}

func TestRunChat_SlashCommands(t *testing.T) {
	app, _, out := newTestApp(t, true)
	first := conversation.Suggestions()[0]

	r := &scriptReader{lines: []string{
		"/suggest",
		"/suggest 1",
		first,
		"/history",
		"/new",
		"second question",
		"/load 2",
		"/delete 1",
		"/bogus",
		"/quit",
		"never sent",
	}}
	require.NoError(t, app.runChat(r))

	assert.Equal(t, []string{first}, r.prefills)
	text := out.String()
	assert.Contains(t, text, "Guest")
	assert.Contains(t, text, "Answer: "+first)
	assert.Contains(t, text, "Started a new chat.")
	assert.Contains(t, text, `Deleted "second question".`)
	assert.Contains(t, text, "unknown command /bogus")
	assert.NotContains(t, text, "never sent")

	sessions := app.Controller.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, sessions[0].ID, app.Controller.ActiveID(), "loaded chat stays active")
}

func TestRunChat_EOFEndsChat(t *testing.T) {
	app, _, _ := newTestApp(t, true)
	require.NoError(t, app.runChat(&scriptReader{}))
}

func TestRunChat_ExitWordAndEmptyHistory(t *testing.T) {
	app, _, out := newTestApp(t, true)
	require.NoError(t, app.runChat(&scriptReader{lines: []string{"", "/history", "/load 3", "exit"}}))

	assert.Contains(t, out.String(), "No chat history yet")
	assert.Contains(t, out.String(), "chat not found: 3")
}

// =============================================================================
// SESSIONS
// =============================================================================

func seedChats(t *testing.T, app *App, questions ...string) {
	t.Helper()
	for _, q := range questions {
		require.NoError(t, app.Ask(askArgs(q)))
	}
	app.Out.(*bytes.Buffer).Reset()
}

func TestSessions_ListAndSearch(t *testing.T) {
	app, _, out := newTestApp(t, true)
	seedChats(t, app, "bail after arrest", "khula procedure")

	require.NoError(t, app.Sessions(sessionArgs("", "", nil)))
	assert.Contains(t, out.String(), "Answer: bail after arrest")
	assert.Contains(t, out.String(), "khula procedure")

	out.Reset()
	args := sessionArgs("search", "KHULA", nil)
	args.JSON = true
	require.NoError(t, app.Sessions(args))

	var resp struct {
		Data []SessionSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "khula procedure", resp.Data[0].Title)
	assert.Equal(t, 2, resp.Data[0].Messages)
	assert.Equal(t, "Answer: khula procedure", resp.Data[0].Preview)
}

func TestSessions_ShowByPositionAndID(t *testing.T) {
	app, _, out := newTestApp(t, true)
	seedChats(t, app, "older", "newer")

	require.NoError(t, app.Sessions(sessionArgs("show", "2", nil)))
	assert.Contains(t, out.String(), "Answer: older")
	assert.Contains(t, out.String(), strings.Repeat("─", 60))

	id := app.Controller.Sessions()[0].ID
	out.Reset()
	require.NoError(t, app.Sessions(sessionArgs("show", id, nil)))
	assert.Contains(t, out.String(), "Answer: newer")
}

func TestSessions_NotFound(t *testing.T) {
	app, _, _ := newTestApp(t, true)
	seedChats(t, app, "only one")

	err := app.Sessions(sessionArgs("show", "5", nil))
	require.Error(t, err)
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))

	err = app.Sessions(sessionArgs("show", "", nil))
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	err = app.Sessions(sessionArgs("rename", "", nil))
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestResolveSession(t *testing.T) {
	ts := []storage.Transcript{
		{ID: "1718000000002", Title: "newer"},
		{ID: "1718000000001", Title: "older"},
	}

	tests := []struct {
		ref       string
		wantTitle string
		wantCode  int
	}{
		{"1", "newer", ExitSuccess},
		{" 2 ", "older", ExitSuccess},
		{"1718000000001", "older", ExitSuccess},
		{"3", "", ExitNotFoundError},
		{"0", "", ExitNotFoundError},
		{"-1", "", ExitNotFoundError},
		{"two", "", ExitNotFoundError},
		{"", "", ExitUsageError},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := resolveSession(ts, tt.ref)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Equal(t, tt.wantTitle, got.Title)
		})
	}
}

func TestSessions_Export(t *testing.T) {
	app, _, out := newTestApp(t, true)
	seedChats(t, app, "FIR registration")

	require.NoError(t, app.Sessions(sessionArgs("export", "1", nil)))
	assert.True(t, strings.HasPrefix(out.String(), "# FIR registration"))
	assert.Contains(t, out.String(), "Answer: FIR registration")

	out.Reset()
	path := filepath.Join(t.TempDir(), "chat.json")
	require.NoError(t, app.Sessions(sessionArgs("export", "1", map[string]string{"format": "json", "output": path})))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var exported struct {
		Title    string            `json:"title"`
		Messages []json.RawMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, "FIR registration", exported.Title)
	assert.Len(t, exported.Messages, 2)

	err = app.Sessions(sessionArgs("export", "1", map[string]string{"format": "pdf"}))
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestSessions_DeleteWithConfirm(t *testing.T) {
	app, _, out := newTestApp(t, true)
	seedChats(t, app, "keep me", "delete me")

	require.NoError(t, app.Sessions(sessionArgs("delete", "1", map[string]string{"confirm": "true"})))
	assert.Contains(t, out.String(), "delete me")

	sessions := app.Controller.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "keep me", sessions[0].Title)
}

// =============================================================================
// ACCOUNT
// =============================================================================

func TestLogin_SuccessThenWhoamiAndLogout(t *testing.T) {
	app, _, out := newTestApp(t, true)
	app.readPassword = func(string) (string, error) { return "secret", nil }

	args := Args{Options: map[string]string{"username": "ayesha"}}
	require.NoError(t, app.Login(args))
	assert.Contains(t, out.String(), "Signed in")
	assert.Contains(t, out.String(), "Ayesha Khan")
	assert.Equal(t, testToken, app.Auth.Token())

	out.Reset()
	args.JSON = true
	require.NoError(t, app.Whoami(args))
	var resp struct {
		Data UserData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.True(t, resp.Data.Authenticated)
	assert.Equal(t, "ayesha", resp.Data.Username)
	assert.False(t, resp.Data.Admin)

	out.Reset()
	require.NoError(t, app.runChat(&scriptReader{lines: []string{"/quit"}}))
	assert.Contains(t, out.String(), "Signed in as Ayesha Khan.")

	out.Reset()
	require.NoError(t, app.Logout(Args{Options: map[string]string{}}))
	assert.Contains(t, out.String(), "Signed out.")
	assert.Empty(t, app.Auth.Token())
}

func TestLogin_AdminIsMarked(t *testing.T) {
	app, _, out := newTestApp(t, true)
	app.readPassword = func(string) (string, error) { return "secret", nil }

	require.NoError(t, app.Login(Args{Options: map[string]string{"username": "root"}}))
	assert.Contains(t, out.String(), "admin (administrator)")
	assert.True(t, app.Auth.IsAdmin())
}

func TestLogin_Rejected(t *testing.T) {
	app, _, _ := newTestApp(t, true)
	app.readLine = func(string) (string, error) { return "ayesha", nil }
	app.readPassword = func(string) (string, error) { return "wrong", nil }

	err := app.Login(Args{Options: map[string]string{}})
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.Equal(t, ExitAuthError, GetExitCode(err))
	assert.Empty(t, app.Auth.Token())
}

func TestLogin_EmptyPasswordIsAFormError(t *testing.T) {
	app, _, _ := newTestApp(t, true)
	app.readPassword = func(string) (string, error) { return "", nil }

	err := app.Login(Args{Options: map[string]string{"username": "ayesha"}})
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

// scriptedPrompts answers prompts in order.
func scriptedPrompts(answers ...string) func(string) (string, error) {
	return func(string) (string, error) {
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
}

func TestSignup_CreatesAccountAndSignsIn(t *testing.T) {
	app, _, out := newTestApp(t, true)
	app.readLine = scriptedPrompts("Bilal Ahmed", "bilal", "bilal@example.com", "")
	app.readPassword = scriptedPrompts("Str0ng!Pass", "Str0ng!Pass")

	require.NoError(t, app.Signup(Args{Options: map[string]string{}}))
	assert.Contains(t, out.String(), "Account created, signed in")
	assert.Contains(t, out.String(), "Bilal Ahmed")
	assert.Equal(t, testToken, app.Auth.Token())
}

func TestSignup_Rejections(t *testing.T) {
	app, _, _ := newTestApp(t, true)

	app.readLine = scriptedPrompts("Bilal Ahmed", "taken", "bilal@example.com", "")
	app.readPassword = scriptedPrompts("Str0ng!Pass", "Str0ng!Pass")
	err := app.Signup(Args{Options: map[string]string{}})
	require.Error(t, err)
	assert.Equal(t, "Username already exists", err.Error())
	assert.Equal(t, ExitAuthError, GetExitCode(err))

	app.readLine = scriptedPrompts("Bilal Ahmed", "bilal", "bilal@example.com", "")
	app.readPassword = scriptedPrompts("Str0ng!Pass", "different")
	err = app.Signup(Args{Options: map[string]string{}})
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err), "mismatched confirmation is a form error")
	assert.Empty(t, app.Auth.Token())
}

func TestWhoami_NotSignedIn(t *testing.T) {
	app, _, out := newTestApp(t, true)

	require.NoError(t, app.Whoami(Args{Options: map[string]string{}}))
	assert.Contains(t, out.String(), "Not signed in")

	out.Reset()
	require.NoError(t, app.Logout(Args{Options: map[string]string{}}))
	assert.Contains(t, out.String(), "Not signed in.")
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func TestSealedTokenAndChatsSurviveRestart(t *testing.T) {
	t.Setenv("INCRIME_SEAL_TOKEN", "true")
	app, _, _ := newTestApp(t, false)
	app.readPassword = func(string) (string, error) { return "secret", nil }

	require.NoError(t, app.Login(Args{Options: map[string]string{"username": "ayesha"}}))
	require.NoError(t, app.Ask(askArgs("persist me")))

	raw, err := app.KV.Get(app.Config.Storage.TokenKey)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), testToken, "token is sealed at rest")
	require.NoError(t, app.Close())

	reopened := openTestApp(t, false)
	assert.Equal(t, testToken, reopened.Auth.Token())
	sessions := reopened.Controller.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "persist me", sessions[0].Title)
}

// =============================================================================
// CONFIG COMMAND
// =============================================================================

func TestRunConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("INCRIME_HOME", home)
	t.Setenv("INCRIME_API_URL", "https://legal.example.com")

	var buf bytes.Buffer
	require.NoError(t, RunConfig(&buf, Args{Subcommand: "get", Query: "api.base_url"}))
	assert.Equal(t, "https://legal.example.com\n", buf.String())

	buf.Reset()
	require.NoError(t, RunConfig(&buf, Args{Subcommand: "keys"}))
	assert.Contains(t, buf.String(), "storage.chats_key")

	buf.Reset()
	require.NoError(t, RunConfig(&buf, Args{Subcommand: "path", JSON: true}))
	var resp struct {
		Data PathData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, filepath.Join(home, "config.toml"), resp.Data.ConfigFile)
	assert.False(t, resp.Data.Exists)
	assert.Equal(t, home, resp.Data.DataDir)

	buf.Reset()
	require.NoError(t, RunConfig(&buf, Args{}))
	assert.Contains(t, buf.String(), "base_url")

	err := RunConfig(&buf, Args{Subcommand: "get", Query: "api.nope"})
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	err = RunConfig(&buf, Args{Subcommand: "edit"})
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestRunConfig_Set(t *testing.T) {
	home := t.TempDir()
	t.Setenv("INCRIME_HOME", home)

	var buf bytes.Buffer
	require.NoError(t, RunConfig(&buf, Args{Subcommand: "set", Query: "ui.theme dark"}))
	assert.Contains(t, buf.String(), "ui.theme = dark")
	assert.FileExists(t, filepath.Join(home, "config.toml"))

	buf.Reset()
	require.NoError(t, RunConfig(&buf, Args{Subcommand: "get", Query: "ui.theme"}))
	assert.Equal(t, "dark\n", buf.String())

	buf.Reset()
	require.NoError(t, RunConfig(&buf, Args{Subcommand: "set", Query: "api.timeout_secs 15", JSON: true}))
	var resp struct {
		Data SetData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "api.timeout_secs", resp.Data.Key)
	assert.EqualValues(t, 15, resp.Data.Value)
	assert.Equal(t, filepath.Join(home, "config.toml"), resp.Data.ConfigFile)

	explicit := filepath.Join(t.TempDir(), "alt.toml")
	require.NoError(t, RunConfig(&buf, Args{Subcommand: "set", Query: "log.level debug", ConfigPath: explicit}))
	assert.FileExists(t, explicit)

	for _, query := range []string{"", "ui.theme", "api.nope 1", "api.burst many", "ui.theme purple"} {
		err := RunConfig(&buf, Args{Subcommand: "set", Query: query})
		assert.Equal(t, ExitUsageError, GetExitCode(err), "query %q", query)
	}
}

func TestParseArgs_ConfigSet(t *testing.T) {
	cmd, args := ParseArgs([]string{"config", "set", "api.base_url", "http://localhost:5000"})
	require.Equal(t, CmdConfig, cmd)
	assert.Equal(t, "set", args.Subcommand)
	assert.Equal(t, "api.base_url http://localhost:5000", args.Query)
}
