package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eryai/mimre/internal/engine"
	"github.com/eryai/mimre/internal/model/companion"
	chatService "github.com/eryai/mimre/internal/service/chat"
	"github.com/eryai/mimre/internal/service/selector"
	"github.com/eryai/mimre/internal/storage"
)

type echoBackend struct{}

func (echoBackend) Chat(_ context.Context, request engine.Request) (engine.Reply, error) {
	return engine.Reply{Text: "ekko: " + request.Prompt, SessionID: "s-1"}, nil
}

func newModel(t *testing.T, store storage.Storage) Model {
	t.Helper()
	sel, err := selector.New(selector.Config{
		Companions: companion.Default(),
		Backend:    echoBackend{},
		Storage:    store,
	})
	require.NoError(t, err)
	t.Cleanup(sel.Close)

	m, err := New(context.Background(), sel)
	require.NoError(t, err)
	return m
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStartsOnSelectorWithoutStoredChoice(t *testing.T) {
	m := newModel(t, storage.NewMemoryStore())
	assert.Equal(t, screenSelect, m.screen)

	view := m.View()
	assert.Contains(t, view, "Astrid")
	assert.Contains(t, view, "Ivar")
}

func TestStartsOnChatWithStoredChoice(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(storage.KeyCompanion, companion.Ivar))

	m := newModel(t, store)
	assert.Equal(t, screenChat, m.screen)
	assert.Equal(t, companion.Ivar, m.conv.Companion().ID)
	assert.Contains(t, m.View(), "Ivar")
}

func TestSelectByCursor(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newModel(t, store)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, screenChat, m.screen)
	assert.Equal(t, companion.Ivar, m.conv.Companion().ID)

	v, _, err := store.Get(storage.KeyCompanion)
	require.NoError(t, err)
	assert.Equal(t, companion.Ivar, v)
}

func TestSendNewConversationAndChangeCompanion(t *testing.T) {
	store := storage.NewMemoryStore()
	m := newModel(t, store)

	m, _ = press(t, m, runes("1"))
	require.Equal(t, screenChat, m.screen)
	conv := m.conv

	// Blank input does nothing.
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Len(t, conv.Transcript(), 1)

	m.input.SetValue("hei")
	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.NoError(t, m.err)

	transcript := conv.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, "ekko: hei", transcript[2].Content)
	assert.True(t, strings.Contains(m.viewport.View(), "ekko: hei"))

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Len(t, conv.Transcript(), 1)
	_, ok, _ := store.Get(storage.KeySessionID)
	assert.False(t, ok)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Equal(t, screenSelect, m.screen)
	assert.Nil(t, m.conv)
	_, ok, _ = store.Get(storage.KeyCompanion)
	assert.False(t, ok)
}

func TestStaleReplyIsNotShownAsError(t *testing.T) {
	m := newModel(t, storage.NewMemoryStore())
	m, _ = press(t, m, runes("1"))

	next, _ := m.Update(replyMsg{err: chatService.ErrStale})
	assert.NoError(t, next.(Model).err)

	next, _ = m.Update(replyMsg{err: chatService.ErrBusy})
	assert.ErrorIs(t, next.(Model).err, chatService.ErrBusy)
}

func TestEventsFromOldConversationAreIgnored(t *testing.T) {
	m := newModel(t, storage.NewMemoryStore())
	m, _ = press(t, m, runes("2"))

	stale := make(chan chatService.Event)
	_, cmd := m.Update(eventMsg{source: stale, open: true})
	assert.Nil(t, cmd)

	_, cmd = m.Update(eventMsg{source: m.events, open: true})
	assert.NotNil(t, cmd)
}
