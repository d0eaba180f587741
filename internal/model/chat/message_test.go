package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistorySkipsGreeting(t *testing.T) {
	now := time.Now()
	transcript := []Message{
		Greeting("hei", now),
		NewMessage(RoleUser, "hallo", now),
		NewMessage(RoleAssistant, "hei igjen", now),
	}

	assert.Equal(t, []Turn{
		{Role: RoleUser, Content: "hallo"},
		{Role: RoleAssistant, Content: "hei igjen"},
	}, History(transcript))
}

func TestHistoryOfGreetingOnlyIsEmptyNotNil(t *testing.T) {
	got := History([]Message{Greeting("hei", time.Now())})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNewMessageIDsAreUnique(t *testing.T) {
	now := time.Now()
	a := NewMessage(RoleUser, "a", now)
	b := NewMessage(RoleUser, "a", now)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.IsGreeting())
	assert.True(t, Greeting("x", now).IsGreeting())
}
