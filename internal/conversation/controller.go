// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/incrime/incrime-tui/internal/storage"
	"github.com/incrime/incrime-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// FallbackReply replaces the assistant reply when the remote call fails.
const FallbackReply = "Sorry, I could not process your request. Please try again."

// TitleLength is the number of characters of the first message kept as title.
const TitleLength = 30

// TimeFormat renders message times, e.g. "03:04 PM".
const TimeFormat = "03:04 PM"

// ErrBusy is returned when a send is attempted while a reply is pending.
var ErrBusy = errors.New("still waiting for the previous reply")

// suggestions are the starter prompts shown on the welcome view.
var suggestions = []string{
	"How to file a bail application?",
	"What is Nikah Nama?",
	"How to report theft to police?",
	"What is Dar-ul-Aman?",
}

// Suggestions returns the starter prompts.
func Suggestions() []string {
	return append([]string(nil), suggestions...)
}

// =============================================================================
// STATE
// =============================================================================

// State is the controller's position in the conversation state machine.
type State int

const (
	// StateIdle means no transcript is active; the view is an empty draft.
	StateIdle State = iota
	// StateActive means a transcript is shown and ready for the next send.
	StateActive
	// StateAwaiting means the active transcript has a reply outstanding.
	StateAwaiting
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateAwaiting:
		return "awaiting-reply"
	default:
		return "unknown"
	}
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Assistant answers one message. *api.Client satisfies it.
type Assistant interface {
	Ask(ctx context.Context, text string) (string, error)
}

// Store loads and rewrites the full transcript collection.
// *storage.TranscriptStore satisfies it.
type Store interface {
	Load() []storage.Transcript
	ReplaceAll(transcripts []storage.Transcript) error
}

// Options configures a Controller.
type Options struct {
	Logger zerolog.Logger
	// Now overrides the clock (tests).
	Now func() time.Time
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Turn is a send in progress, returned by Begin and completed by Finish.
type Turn struct {
	// TranscriptID is the transcript the reply will be appended to.
	TranscriptID string
	// Text is the trimmed message sent to the assistant.
	Text string
	// User is the entry already appended for the message.
	User storage.Message
	// Created reports whether Begin minted a new transcript.
	Created bool
}

// Controller owns the transcript collection and the active view.
type Controller struct {
	store     Store
	assistant Assistant
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions []storage.Transcript // most recent first
	activeID string               // "" means Idle with an empty draft
	pending  *Turn
	lastID   int64
}

// New creates a controller and loads the stored collection once.
func New(store Store, assistant Assistant, opts Options) *Controller {
	c := &Controller{
		store:     store,
		assistant: assistant,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}

	c.sessions = store.Load()
	for _, t := range c.sessions {
		if n, err := strconv.ParseInt(t.ID, 10, 64); err == nil && n > c.lastID {
			c.lastID = n
		}
	}
	c.logger.Debug().Int("transcripts", len(c.sessions)).Msg("controller ready")
	return c
}

// =============================================================================
// NAVIGATION
// =============================================================================

// StartNewChat returns to Idle with an empty draft. The previously active
// transcript stays in the store.
func (c *Controller) StartNewChat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeID = ""
}

// LoadSession makes the transcript with id active. Unknown ids are ignored
// and reported with false.
func (c *Controller) LoadSession(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf(id) < 0 {
		return false
	}
	c.activeID = id
	return true
}

// DeleteSession removes the transcript with id and persists the collection.
// Deleting the active transcript resets the view as StartNewChat does.
// Unknown ids are ignored without a storage write.
func (c *Controller) DeleteSession(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return false, nil
	}

	next := make([]storage.Transcript, 0, len(c.sessions)-1)
	next = append(next, c.sessions[:idx]...)
	next = append(next, c.sessions[idx+1:]...)
	c.sessions = next

	if c.activeID == id {
		c.activeID = ""
	}
	c.logger.Info().Str("transcript", id).Msg("transcript deleted")
	return true, c.persistLocked()
}

// =============================================================================
// SENDING
// =============================================================================

// SendMessage sends text and waits for the reply. Blank text is a no-op.
// Remote failures become the fallback reply and are not returned; the only
// errors are ErrBusy and storage write failures.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	turn, err := c.Begin(text)
	if err != nil || turn == nil {
		return err
	}
	_, err = c.Finish(ctx, turn)
	return err
}

// Begin performs the local half of a send: it creates the transcript if
// none is active, appends the user entry and enters Awaiting-Reply.
// It returns (nil, nil) for blank text.
func (c *Controller) Begin(text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil {
		return nil, ErrBusy
	}

	now := c.now()
	turn := &Turn{Text: text}

	if c.activeID == "" || c.indexOf(c.activeID) < 0 {
		t := storage.Transcript{
			ID:       c.mintIDLocked(now),
			Title:    util.TruncateRunesNoEllipsis(text, TitleLength),
			Messages: []storage.Message{},
		}
		// New transcripts go first.
		c.sessions = append([]storage.Transcript{t}, c.sessions...)
		c.activeID = t.ID
		turn.Created = true
		c.logger.Debug().Str("transcript", t.ID).Msg("transcript created")
	}
	turn.TranscriptID = c.activeID

	turn.User = storage.Message{Role: storage.RoleUser, Text: text, Time: now.Format(TimeFormat)}
	c.appendLocked(turn.TranscriptID, turn.User)

	c.pending = turn
	return turn, nil
}

// Finish performs the remote half of a send and returns the assistant entry
// that was appended. If the transcript was deleted while the call was in
// flight the reply is discarded.
func (c *Controller) Finish(ctx context.Context, turn *Turn) (storage.Message, error) {
	start := c.now()
	reply, err := c.assistant.Ask(ctx, turn.Text)

	msg := storage.Message{Role: storage.RoleAssistant, Text: reply, Time: c.now().Format(TimeFormat)}
	if err != nil {
		c.logger.Warn().Err(err).Str("transcript", turn.TranscriptID).Msg("assistant call failed, using fallback reply")
		msg = storage.Message{Role: storage.RoleAssistant, Text: FallbackReply, Time: ""}
	} else {
		c.logger.Debug().Str("transcript", turn.TranscriptID).
			Int64("latency_ms", c.now().Sub(start).Milliseconds()).Msg("assistant replied")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == turn {
		c.pending = nil
	}
	if !c.appendLocked(turn.TranscriptID, msg) {
		c.logger.Info().Str("transcript", turn.TranscriptID).Msg("transcript deleted while awaiting reply, reply discarded")
		return msg, nil
	}
	return msg, c.persistLocked()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Sessions returns a copy of the collection, most recent first.
func (c *Controller) Sessions() []storage.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]storage.Transcript, len(c.sessions))
	for i, t := range c.sessions {
		out[i] = t.Clone()
	}
	return out
}

// Active returns a copy of the active transcript.
func (c *Controller) Active() (storage.Transcript, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(c.activeID)
	if idx < 0 {
		return storage.Transcript{}, false
	}
	return c.sessions[idx].Clone(), true
}

// ActiveID returns the active transcript id, or "" when Idle.
func (c *Controller) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeID
}

// Messages returns the active view: the active transcript's entries, or an
// empty slice when Idle.
func (c *Controller) Messages() []storage.Message {
	t, ok := c.Active()
	if !ok {
		return []storage.Message{}
	}
	return t.Messages
}

// State reports the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.activeID == "":
		return StateIdle
	case c.pending != nil && c.pending.TranscriptID == c.activeID:
		return StateAwaiting
	default:
		return StateActive
	}
}

// Busy reports whether any reply is outstanding.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

// =============================================================================
// HELPERS (caller holds c.mu)
// =============================================================================

func (c *Controller) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, t := range c.sessions {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) appendLocked(id string, msg storage.Message) bool {
	idx := c.indexOf(id)
	if idx < 0 {
		return false
	}
	t := c.sessions[idx]
	msgs := make([]storage.Message, len(t.Messages), len(t.Messages)+1)
	copy(msgs, t.Messages)
	t.Messages = append(msgs, msg)
	c.sessions[idx] = t
	return true
}

// mintIDLocked returns a millisecond timestamp id, bumped past the last
// issued id so two sends in the same millisecond stay unique.
func (c *Controller) mintIDLocked(now time.Time) string {
	n := now.UnixMilli()
	if n <= c.lastID {
		n = c.lastID + 1
	}
	for c.indexOf(strconv.FormatInt(n, 10)) >= 0 {
		n++
	}
	c.lastID = n
	return strconv.FormatInt(n, 10)
}

func (c *Controller) persistLocked() error {
	if err := c.store.ReplaceAll(c.sessions); err != nil {
		c.logger.Error().Err(err).Int("transcripts", len(c.sessions)).Msg("transcript persist failed")
		return err
	}
	return nil
}
