// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Configuration constants for the InCrime API.
const (
	// DefaultBaseURL is the hosted InCrime server.
	DefaultBaseURL = "https://incrime-server.onrender.com"

	// DefaultTimeout is the default timeout for API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the maximum accepted response body size.
	// SECURITY: bodies are read through a limit, so a huge reply is cut off
	// instead of buffered.
	MaxResponseSize = 2 * 1024 * 1024

	// Endpoint paths.
	PathChat     = "/api/chatbot/message"
	PathLogin    = "/api/auth/login"
	PathRegister = "/api/auth/register"
	PathMe       = "/api/auth/me"

	// RequestIDHeader carries a per-request UUID for log correlation.
	RequestIDHeader = "X-Request-ID"
)

// Options configures a Client. Zero values select defaults.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// RatePerSecond throttles outgoing requests; 0 disables throttling.
	RatePerSecond float64
	Burst         int

	// BreakerFailures consecutive chat failures open the breaker; 0 disables it.
	BreakerFailures int
	// BreakerCooldown is how long the breaker stays open before probing.
	BreakerCooldown time.Duration

	UserAgent string
	Logger    zerolog.Logger

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Client talks to the InCrime API. It is safe for concurrent use.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  zerolog.Logger
	baseURL string

	mu    sync.RWMutex
	token string
}

// New creates a client from opts.
func New(opts Options) *Client {
	baseURL := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "incrime-tui"
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(0)
	if opts.Transport != nil {
		rc.SetTransport(opts.Transport)
	}

	c := &Client{
		http:    rc,
		logger:  opts.Logger,
		baseURL: baseURL,
	}

	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	if opts.BreakerFailures > 0 {
		cooldown := opts.BreakerCooldown
		if cooldown <= 0 {
			cooldown = 30 * time.Second
		}
		threshold := uint32(opts.BreakerFailures)
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "chat",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.Warn().Str("breaker", name).
					Str("from", from.String()).Str("to", to.String()).
					Msg("circuit breaker state change")
			},
		})
	}

	return c
}

// BaseURL returns the configured server root.
func (c *Client) BaseURL() string { return c.baseURL }

// SetToken sets the bearer token attached to authenticated requests.
// An empty token detaches the header.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// httpReply is a completed request with its body read, capped at
// MaxResponseSize.
type httpReply struct {
	status int
	body   []byte
}

func (r *httpReply) StatusCode() int { return r.status }
func (r *httpReply) Body() []byte    { return r.body }
func (r *httpReply) IsSuccess() bool { return r.status > 199 && r.status < 300 }
func (r *httpReply) IsError() bool   { return r.status > 399 }

// errResponseTooLarge stops a body read at MaxResponseSize.
var errResponseTooLarge = errors.New("response too large")

// readCapped reads at most limit bytes of body and closes it.
func readCapped(body io.ReadCloser, limit int64) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, errResponseTooLarge
	}
	return data, nil
}

// do performs one request and returns the status and body. Transport
// failures are wrapped in *Error; HTTP statuses are left to the caller.
func (c *Client) do(ctx context.Context, op, method, path string, body interface{}) (*httpReply, string, error) {
	requestID := uuid.NewString()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, requestID, &Error{Op: op, RequestID: requestID, Err: err}
		}
	}

	// The body is read below through readCapped.
	req := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader(RequestIDHeader, requestID)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	reply := &httpReply{}
	if err == nil {
		reply.status = resp.StatusCode()
		reply.body, err = readCapped(resp.RawBody(), MaxResponseSize)
	} else if resp != nil && resp.RawBody() != nil {
		resp.RawBody().Close()
	}
	latency := time.Since(start)

	// SECURITY: never log bodies or headers; both can carry credentials.
	event := c.logger.Debug()
	if err != nil {
		event = c.logger.Warn().Err(err)
	}
	event.Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", reply.status).
		Int64("latency_ms", latency.Milliseconds()).
		Str("request_id", requestID).
		Msg("api request")

	if errors.Is(err, errResponseTooLarge) {
		return nil, requestID, &Error{Op: op, Status: reply.status, RequestID: requestID, Message: "response too large"}
	}
	if err != nil {
		return nil, requestID, &Error{Op: op, Status: reply.status, RequestID: requestID, Err: err}
	}
	return reply, requestID, nil
}

// =============================================================================
// CHAT
// =============================================================================

// Ask posts one message to the assistant and returns its reply.
// Any transport failure, non-2xx status or success=false is an error.
func (c *Client) Ask(ctx context.Context, text string) (string, error) {
	if c.breaker == nil {
		return c.ask(ctx, text)
	}

	reply, err := c.breaker.Execute(func() (interface{}, error) {
		return c.ask(ctx, text)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", &Error{Op: "chat", Message: ErrCircuitOpen.Error(), Err: ErrCircuitOpen}
	}
	if err != nil {
		return "", err
	}
	return reply.(string), nil
}

func (c *Client) ask(ctx context.Context, text string) (string, error) {
	resp, requestID, err := c.do(ctx, "chat", http.MethodPost, PathChat, chatRequest{Message: text})
	if err != nil {
		return "", err
	}

	var out chatResponse
	decodeErr := json.Unmarshal(resp.Body(), &out)

	if resp.IsError() {
		return "", &Error{Op: "chat", Status: resp.StatusCode(), RequestID: requestID, Message: out.Message}
	}
	if decodeErr != nil {
		return "", &Error{Op: "chat", Status: resp.StatusCode(), RequestID: requestID, Message: "malformed response", Err: decodeErr}
	}
	if !out.Success {
		msg := out.Message
		if msg == "" {
			msg = "assistant reported failure"
		}
		return "", &Error{Op: "chat", Status: resp.StatusCode(), RequestID: requestID, Message: msg}
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", &Error{Op: "chat", Status: resp.StatusCode(), RequestID: requestID, Err: ErrEmptyReply}
	}
	return out.Response, nil
}

// =============================================================================
// AUTH
// =============================================================================

// Login exchanges credentials for a token.
// A rejection the server explains (e.g. wrong password) is returned as
// AuthResponse{Success: false} with a nil error.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	return c.authCall(ctx, "login", PathLogin, Credentials{Username: username, Password: password})
}

// Register creates an account. Rejections follow the Login convention.
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResponse, error) {
	return c.authCall(ctx, "register", PathRegister, reg)
}

func (c *Client) authCall(ctx context.Context, op, path string, body interface{}) (*AuthResponse, error) {
	resp, requestID, err := c.do(ctx, op, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	decodeErr := json.Unmarshal(resp.Body(), &out)

	switch {
	case resp.IsSuccess() && decodeErr == nil:
		if out.Success && out.Token == "" {
			return nil, &Error{Op: op, Status: resp.StatusCode(), RequestID: requestID, Message: "response missing token"}
		}
		return &out, nil

	case resp.StatusCode() >= 400 && resp.StatusCode() < 500 && decodeErr == nil:
		// Server rejection with an explanation.
		out.Success = false
		if out.Message == "" {
			out.Message = http.StatusText(resp.StatusCode())
		}
		return &out, nil

	case decodeErr != nil && resp.IsSuccess():
		return nil, &Error{Op: op, Status: resp.StatusCode(), RequestID: requestID, Message: "malformed response", Err: decodeErr}

	default:
		return nil, &Error{Op: op, Status: resp.StatusCode(), RequestID: requestID, Message: out.Message}
	}
}

// Me fetches the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	if c.Token() == "" {
		return nil, &Error{Op: "me", Err: ErrNoToken}
	}

	resp, requestID, err := c.do(ctx, "me", http.MethodGet, PathMe, nil)
	if err != nil {
		return nil, err
	}

	var out meResponse
	decodeErr := json.Unmarshal(resp.Body(), &out)
	if resp.IsError() {
		return nil, &Error{Op: "me", Status: resp.StatusCode(), RequestID: requestID, Message: out.Message}
	}
	if decodeErr != nil {
		return nil, &Error{Op: "me", Status: resp.StatusCode(), RequestID: requestID, Message: "malformed response", Err: decodeErr}
	}
	if !out.Success || out.User == nil {
		return nil, &Error{Op: "me", Status: resp.StatusCode(), RequestID: requestID, Message: "session is no longer valid"}
	}
	return out.User, nil
}
