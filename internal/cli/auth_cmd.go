// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Account commands: login, signup, logout, whoami.
//
// Examples:
//
//	incrime login                    Prompt for username and password
//	incrime login --username ayesha  Prompt for the password only
//	incrime signup                   Create an account interactively
//	incrime whoami --json            Show the signed-in user
//	incrime logout                   Forget the stored token
//
// Passwords are read without echo and never accepted as flags.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/incrime/incrime-tui/internal/api"
	"github.com/incrime/incrime-tui/internal/auth"
)

// Fallback messages when the server rejects without explaining.
const (
	loginFailedMessage  = "Login failed"
	signupFailedMessage = "Registration failed"
)

// =============================================================================
// PROMPTS
// =============================================================================

var stdinReader = bufio.NewReader(os.Stdin)

// promptLine prints prompt and reads one line from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := stdinReader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptPassword prints prompt and reads a password without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if !IsTTY() {
		return "", &TTYRequiredError{Operation: "read a password"}
	}
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(passBytes), nil
}

// =============================================================================
// LOGIN
// =============================================================================

// Login signs in and stores the token.
func (a *App) Login(args Args) error {
	username := args.Options["username"]
	if username == "" {
		var err error
		if username, err = a.readLine("Username: "); err != nil {
			return err
		}
	}
	password, err := a.readPassword("Password: ")
	if err != nil {
		return err
	}

	ctx, cancel := a.context()
	defer cancel()

	resp, err := a.Auth.Login(ctx, username, password)
	if err != nil {
		return loginError(err, "Login failed. Check your credentials.")
	}
	if !resp.Success {
		return &RejectedError{Op: "login", Message: nonEmpty(resp.Message, loginFailedMessage)}
	}
	return a.printUser("login", a.Auth.User(), args.JSON, "Signed in")
}

// =============================================================================
// SIGNUP
// =============================================================================

// Signup collects the registration form, shows the password strength and
// creates the account.
func (a *App) Signup(args Args) error {
	var form auth.SignupForm
	var err error

	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Full name: ", &form.FullName},
		{"Username: ", &form.Username},
		{"Email (optional if phone given): ", &form.Email},
		{"Phone (optional if email given): ", &form.Phone},
	}
	for _, f := range fields {
		if *f.dst, err = a.readLine(f.prompt); err != nil {
			return err
		}
	}

	if form.Password, err = a.readPassword("Password: "); err != nil {
		return err
	}
	if form.Password != "" {
		fmt.Fprintln(os.Stderr, RenderStrength(auth.PasswordStrength(form.Password).String()))
	}
	if form.ConfirmPassword, err = a.readPassword("Confirm password: "); err != nil {
		return err
	}

	ctx, cancel := a.context()
	defer cancel()

	resp, err := a.Auth.Register(ctx, form)
	if err != nil {
		return loginError(err, "Registration failed. Please try again.")
	}
	if !resp.Success {
		return &RejectedError{Op: "signup", Message: nonEmpty(resp.Message, signupFailedMessage)}
	}

	user := a.Auth.User()
	if a.Auth.Token() == "" {
		// Some deployments create the account without signing in.
		if args.JSON {
			return NewJSONResponse("signup", UserData{Username: form.Normalize().Username}).Print(a.Out)
		}
		fmt.Fprintln(a.Out, SuccessStyle.Render("Account created.")+" Run 'incrime login' to sign in.")
		return nil
	}
	return a.printUser("signup", user, args.JSON, "Account created, signed in")
}

// =============================================================================
// LOGOUT AND WHOAMI
// =============================================================================

// Logout forgets the stored token.
func (a *App) Logout(args Args) error {
	had := a.Auth.Token() != ""
	if err := a.Auth.Logout(); err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("logout", map[string]bool{"was_signed_in": had}).Print(a.Out)
	}
	if had {
		fmt.Fprintln(a.Out, SuccessStyle.Render("Signed out."))
	} else {
		fmt.Fprintln(a.Out, "Not signed in.")
	}
	return nil
}

// Whoami confirms the stored token with the server and prints the user.
func (a *App) Whoami(args Args) error {
	if a.Auth.Token() == "" {
		if args.JSON {
			return NewJSONResponse("whoami", UserData{}).Print(a.Out)
		}
		fmt.Fprintln(a.Out, "Not signed in. Run 'incrime login' to sign in.")
		return nil
	}

	ctx, cancel := a.context()
	defer cancel()

	if err := a.Auth.Init(ctx); err != nil {
		if errors.Is(err, auth.ErrSessionExpired) || api.IsUnauthorized(err) {
			return fmt.Errorf("%w; run 'incrime login' to sign in again", auth.ErrSessionExpired)
		}
		return err
	}
	return a.printUser("whoami", a.Auth.User(), args.JSON, "")
}

// =============================================================================
// HELPERS
// =============================================================================

// printUser prints user as JSON or as a short labelled block.
func (a *App) printUser(command string, user *api.User, jsonMode bool, headline string) error {
	data := UserData{Authenticated: user != nil}
	if user != nil {
		data.Username = user.Username
		data.FullName = user.FullName
		data.Email = user.Email
		data.Phone = user.Phone
		data.Role = user.Role
		data.Admin = a.Auth.IsAdmin()
	}
	if jsonMode {
		return NewJSONResponse(command, data).Print(a.Out)
	}

	if headline != "" {
		fmt.Fprintln(a.Out, SuccessStyle.Render(headline))
	}
	if user == nil {
		return nil
	}
	role := user.Role
	if data.Admin {
		role += " (administrator)"
	}
	rows := [][2]string{
		{"Name", user.DisplayName()},
		{"Username", user.Username},
		{"Email", user.Email},
		{"Phone", user.Phone},
		{"Role", role},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		fmt.Fprintf(a.Out, "%s %s\n", RenderLabel(r[0]), ValueStyle.Render(r[1]))
	}
	return nil
}

// loginError keeps form and transport errors intact and gives server
// errors without a message the same fallback wording as the sign-in form.
func loginError(err error, fallback string) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 && apiErr.Message == "" {
		return &RejectedError{Op: apiErr.Op, Message: fallback}
	}
	return err
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
