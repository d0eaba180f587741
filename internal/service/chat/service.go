package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eryai/mimre/internal/engine"
	"github.com/eryai/mimre/internal/logging"
	"github.com/eryai/mimre/internal/model/chat"
	"github.com/eryai/mimre/internal/model/companion"
	"github.com/eryai/mimre/internal/storage"
)

// Apology replaces the assistant turn whenever the engine call fails.
const Apology = "Beklager, jeg hadde litt problemer der. Kan du prøve igjen?"

const subscriberBuffer = 32

var (
	ErrEmptyInput = errors.New("message is empty")
	ErrBusy       = errors.New("a reply is already pending")
	ErrStale      = errors.New("conversation was reset before the reply arrived")
	ErrClosed     = errors.New("conversation is closed")
)

// Backend is the remote engine as seen by a conversation.
type Backend interface {
	Chat(ctx context.Context, request engine.Request) (engine.Reply, error)
}

// Options is everything a conversation needs from its surroundings.
type Options struct {
	Companion companion.Companion
	Backend   Backend
	Storage   storage.Storage
	Slug      string
	Logger    *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Conversation owns the transcript and engine session of one chat with a
// companion.
type Conversation struct {
	companion companion.Companion
	backend   Backend
	store     storage.Storage
	slug      string
	logger    *zap.Logger
	now       func() time.Time

	mu          sync.Mutex
	transcript  []chat.Message
	sessionID   string
	inFlight    bool
	generation  uint64
	closed      bool
	subscribers map[int]chan Event
	nextSubID   int
}

// New opens a conversation seeded with the companion's greeting and the
// session id persisted by an earlier run, if any.
func New(opts Options) (*Conversation, error) {
	if opts.Backend == nil {
		return nil, errors.New("chat: backend is required")
	}
	if opts.Storage == nil {
		return nil, errors.New("chat: storage is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Conversation{
		companion:   opts.Companion,
		backend:     opts.Backend,
		store:       opts.Storage,
		slug:        opts.Slug,
		logger:      logging.OrNop(opts.Logger).With(zap.String("companion", opts.Companion.ID)),
		now:         opts.Now,
		subscribers: make(map[int]chan Event),
	}

	sessionID, ok, err := c.store.Get(storage.KeySessionID)
	switch {
	case err != nil:
		c.logger.Warn("failed to load session id, starting without one", zap.Error(err))
	case ok:
		c.sessionID = sessionID
	}

	c.transcript = []chat.Message{chat.Greeting(c.companion.Greeting, c.now())}
	return c, nil
}

// Companion returns who the user is talking to.
func (c *Conversation) Companion() companion.Companion {
	return c.companion
}

// Transcript returns a copy of the messages in display order.
func (c *Conversation) Transcript() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Message(nil), c.transcript...)
}

// SessionID returns the engine session id, empty when none was issued yet.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Busy reports whether a reply is pending.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// CanSend reports whether Send would issue a request for input.
func (c *Conversation) CanSend(input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.inFlight && !c.closed
}

// Send appends input as a user message, asks the engine for a reply and
// appends it. Engine failures are not returned: the apology is appended in
// place of the reply. The returned message is the appended assistant turn.
func (c *Conversation) Send(ctx context.Context, input string) (chat.Message, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return chat.Message{}, ErrEmptyInput
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return chat.Message{}, ErrClosed
	}
	if c.inFlight {
		c.mu.Unlock()
		return chat.Message{}, ErrBusy
	}

	request := engine.Request{
		Prompt:    text,
		Slug:      c.slug,
		Companion: c.companion.ID,
		History:   chat.History(c.transcript),
	}
	if c.sessionID != "" {
		sessionID := c.sessionID
		request.SessionID = &sessionID
	}

	userMessage := chat.NewMessage(chat.RoleUser, text, c.now())
	c.transcript = append(c.transcript, userMessage)
	c.inFlight = true
	generation := c.generation
	c.publishLocked(Event{Type: EventMessage, Message: &userMessage})
	c.publishLocked(c.statusLocked())
	c.mu.Unlock()

	reply, err := c.backend.Chat(ctx, request)

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		c.logger.Info("discarding reply for an earlier conversation",
			zap.Uint64("generation", generation),
			zap.Uint64("current_generation", c.generation),
			zap.Bool("failed", err != nil),
		)
		return chat.Message{}, ErrStale
	}
	c.inFlight = false

	content := reply.Text
	if err != nil {
		c.logger.Error("chat request failed",
			zap.String("session_id", c.sessionID),
			zap.Error(err),
		)
		content = Apology
	} else {
		c.adoptSessionLocked(reply.SessionID)
	}

	assistantMessage := chat.NewMessage(chat.RoleAssistant, content, c.now())
	c.transcript = append(c.transcript, assistantMessage)
	c.publishLocked(Event{Type: EventMessage, Message: &assistantMessage})
	c.publishLocked(c.statusLocked())

	return assistantMessage, nil
}

func (c *Conversation) adoptSessionLocked(sessionID string) {
	if sessionID == "" || sessionID == c.sessionID {
		return
	}
	c.sessionID = sessionID
	if err := c.store.Set(storage.KeySessionID, sessionID); err != nil {
		c.logger.Warn("failed to persist session id", zap.String("session_id", sessionID), zap.Error(err))
	}
	c.logger.Debug("engine session changed", zap.String("session_id", sessionID))
}

// NewConversation forgets the engine session and starts over from the
// greeting. A reply still pending for the old conversation is discarded when
// it arrives.
func (c *Conversation) NewConversation() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.generation++
	c.inFlight = false
	c.sessionID = ""
	c.transcript = []chat.Message{chat.Greeting(c.companion.Greeting, c.now())}
	c.publishLocked(Event{Type: EventReset, Messages: append([]chat.Message(nil), c.transcript...)})
	c.publishLocked(c.statusLocked())

	return c.store.Remove(storage.KeySessionID)
}

// Close ends the conversation: pending replies are discarded and subscribers
// are released. Persisted keys are left alone.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	c.inFlight = false
	for id, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, id)
	}
}
