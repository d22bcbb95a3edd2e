// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/incrime/incrime-tui/internal/api"
	"github.com/incrime/incrime-tui/internal/storage"
)

// DefaultTokenKey is the storage key of the bearer token.
const DefaultTokenKey = "incrime_token"

var (
	// ErrNotAuthenticated indicates an operation needs a logged-in user.
	ErrNotAuthenticated = errors.New("not logged in")

	// ErrSessionExpired indicates the stored token's exp has passed.
	ErrSessionExpired = errors.New("session expired, please log in again")
)

// Backend is the subset of the API client the auth context needs.
type Backend interface {
	Login(ctx context.Context, username, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, reg api.Registration) (*api.AuthResponse, error)
	Me(ctx context.Context) (*api.User, error)
	// SetToken attaches (or with "" detaches) the bearer header.
	SetToken(token string)
}

// TokenSealer protects the token at rest. *security.Sealer satisfies it.
type TokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
}

// Options configures a Context.
type Options struct {
	// TokenKey overrides DefaultTokenKey.
	TokenKey string
	// Sealer encrypts the stored token when set.
	Sealer TokenSealer
	Logger zerolog.Logger
	// Now overrides the clock (tests).
	Now func() time.Time
}

// Context is the authentication state shared by the TUI and CLI commands.
// It is safe for concurrent use.
type Context struct {
	kv      storage.KV
	backend Backend
	key     string
	sealer  TokenSealer
	logger  zerolog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	token string
	user  *api.User
}

// New creates a Context and hydrates the token from kv. The user stays
// unknown until Init confirms the token with the server.
func New(kv storage.KV, backend Backend, opts Options) *Context {
	c := &Context{
		kv:      kv,
		backend: backend,
		key:     opts.TokenKey,
		sealer:  opts.Sealer,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if c.key == "" {
		c.key = DefaultTokenKey
	}
	if c.now == nil {
		c.now = time.Now
	}

	c.token = c.readToken()
	backend.SetToken(c.token)
	return c
}

func (c *Context) readToken() string {
	data, err := c.kv.Get(c.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn().Err(err).Msg("token read failed")
		}
		return ""
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return ""
	}
	if c.sealer != nil {
		plain, err := c.sealer.Open(token)
		if err != nil {
			c.logger.Warn().Err(err).Msg("stored token could not be unsealed, ignoring it")
			return ""
		}
		token = plain
	}
	return token
}

func (c *Context) writeToken(token string) error {
	value := token
	if c.sealer != nil {
		sealed, err := c.sealer.Seal(token)
		if err != nil {
			return fmt.Errorf("failed to seal token: %w", err)
		}
		value = sealed
	}
	if err := c.kv.Put(c.key, []byte(value)); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// Init confirms a hydrated token by fetching the current user. Any failure
// logs out locally and is returned. Without a token Init does nothing.
func (c *Context) Init(ctx context.Context) error {
	token := c.Token()
	if token == "" {
		return nil
	}

	if TokenExpired(token, c.now()) {
		c.logger.Info().Msg("stored token expired, logging out")
		c.logout()
		return ErrSessionExpired
	}

	user, err := c.backend.Me(ctx)
	if err != nil {
		c.logger.Info().Err(err).Msg("session check failed, logging out")
		c.logout()
		return err
	}

	c.mu.Lock()
	// A concurrent Logout or Login wins over a stale check.
	if c.token == token {
		c.user = user
	}
	c.mu.Unlock()

	c.logger.Debug().Str("user", user.Username).Msg("session restored")
	return nil
}

// Login validates the form and calls the server. Server rejections return
// the response with Success=false and a nil error.
func (c *Context) Login(ctx context.Context, username, password string) (*api.AuthResponse, error) {
	form := LoginForm{Username: strings.TrimSpace(username), Password: password}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.backend.Login(ctx, form.Username, form.Password)
	if err != nil {
		c.logger.Warn().Err(err).Msg("login call failed")
		return nil, err
	}
	if !resp.Success {
		c.logger.Info().Str("user", form.Username).Msg("login rejected")
		return resp, nil
	}
	if err := c.establish(resp); err != nil {
		return nil, err
	}
	c.logger.Info().Str("user", form.Username).Msg("logged in")
	return resp, nil
}

// Register validates the form and creates the account. On success the new
// session is established, as after Login.
func (c *Context) Register(ctx context.Context, form SignupForm) (*api.AuthResponse, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.backend.Register(ctx, form.Registration())
	if err != nil {
		c.logger.Warn().Err(err).Msg("register call failed")
		return nil, err
	}
	if !resp.Success {
		c.logger.Info().Msg("registration rejected")
		return resp, nil
	}
	if err := c.establish(resp); err != nil {
		return nil, err
	}
	c.logger.Info().Str("user", form.Normalize().Username).Msg("registered")
	return resp, nil
}

// establish persists the token, attaches it and records the user.
func (c *Context) establish(resp *api.AuthResponse) error {
	if err := c.writeToken(resp.Token); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = resp.Token
	c.user = resp.User
	c.mu.Unlock()

	c.backend.SetToken(resp.Token)
	return nil
}

// Logout clears the stored token, the in-memory state and the header.
// The in-memory state is cleared even when the storage delete fails.
func (c *Context) Logout() error {
	return c.logout()
}

func (c *Context) logout() error {
	c.mu.Lock()
	c.token = ""
	c.user = nil
	c.mu.Unlock()

	c.backend.SetToken("")

	if err := c.kv.Delete(c.key); err != nil {
		c.logger.Warn().Err(err).Msg("token delete failed")
		return fmt.Errorf("failed to remove stored token: %w", err)
	}
	return nil
}

// =============================================================================
// ACCESSORS
// =============================================================================

// User returns a copy of the current user, or nil.
func (c *Context) User() *api.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// Token returns the current bearer token.
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// IsAuthenticated reports whether a user has been confirmed.
func (c *Context) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user != nil
}

// IsAdmin reports whether the current user has the admin role.
func (c *Context) IsAdmin() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user.IsAdmin()
}
