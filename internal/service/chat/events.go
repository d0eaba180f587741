package chat

import (
	"go.uber.org/zap"

	"github.com/eryai/mimre/internal/model/chat"
)

// EventType names what changed in a conversation.
type EventType string

const (
	EventMessage EventType = "message"
	EventReset   EventType = "reset"
	EventStatus  EventType = "status"
)

// Event is pushed to subscribers after every state change.
type Event struct {
	Type      EventType      `json:"type"`
	Message   *chat.Message  `json:"message,omitempty"`
	Messages  []chat.Message `json:"messages,omitempty"`
	Busy      bool           `json:"busy"`
	SessionID string         `json:"sessionId,omitempty"`
}

// Subscribe returns a channel of events and a function that stops delivery.
// The channel is closed when the conversation is closed or cancel is called.
// Slow subscribers lose events rather than stall the conversation.
func (c *Conversation) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subscribers[id]; ok {
			close(sub)
			delete(c.subscribers, id)
		}
	}
	return ch, cancel
}

func (c *Conversation) statusLocked() Event {
	return Event{Type: EventStatus, Busy: c.inFlight, SessionID: c.sessionID}
}

func (c *Conversation) publishLocked(event Event) {
	for id, ch := range c.subscribers {
		select {
		case ch <- event:
		default:
			c.logger.Warn("subscriber is not keeping up, dropping event",
				zap.Int("subscriber", id),
				zap.String("event", string(event.Type)),
			)
		}
	}
}
