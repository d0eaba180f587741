package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// GreetingID marks the synthetic first message of every conversation.
const GreetingID = "greeting"

// Message is one entry of the transcript.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage stamps a message with a fresh id.
func NewMessage(role Role, content string, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}
}

// Greeting builds the synthetic opening message of a conversation.
func Greeting(content string, now time.Time) Message {
	return Message{
		ID:        GreetingID,
		Role:      RoleAssistant,
		Content:   content,
		CreatedAt: now,
	}
}

// IsGreeting reports whether m is the synthetic greeting.
func (m Message) IsGreeting() bool {
	return m.ID == GreetingID
}

// Turn is the {role, content} pair the engine receives as history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History reduces a transcript to engine turns, leaving out the greeting.
func History(messages []Message) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		if m.IsGreeting() {
			continue
		}
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
