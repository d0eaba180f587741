// Package tui is the terminal front end: pick a companion, then chat.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/eryai/mimre/internal/model/chat"
	"github.com/eryai/mimre/internal/model/companion"
	chatService "github.com/eryai/mimre/internal/service/chat"
	"github.com/eryai/mimre/internal/service/selector"
)

type screen int

const (
	screenSelect screen = iota
	screenChat
)

const inputHeight = 3

// replyMsg reports the end of a Send.
type replyMsg struct {
	err error
}

// eventMsg carries one conversation event, tagged with the channel it came
// from so events of a closed conversation are ignored.
type eventMsg struct {
	source <-chan chatService.Event
	event  chatService.Event
	open   bool
}

// Model is the bubbletea model of the terminal client.
type Model struct {
	ctx      context.Context
	selector *selector.Selector
	styles   styles
	now      func() time.Time

	screen     screen
	companions []companion.Companion
	cursor     int

	conv        *chatService.Conversation
	events      <-chan chatService.Event
	unsubscribe func()

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model

	width, height int
	err           error
}

// New builds the model, reopening the chat if a companion was chosen earlier.
func New(ctx context.Context, sel *selector.Selector) (Model, error) {
	ta := textarea.New()
	ta.Placeholder = "Skriv en melding..."
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight)
	ta.CharLimit = 4096
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:        ctx,
		selector:   sel,
		styles:     defaultStyles(),
		now:        time.Now,
		companions: sel.Companions(),
		input:      ta,
		viewport:   viewport.New(80, 20),
		spinner:    sp,
		width:      80,
		height:     24,
	}

	conv, ok, err := sel.Restore(ctx)
	if err != nil {
		return Model{}, fmt.Errorf("restore companion: %w", err)
	}
	if ok {
		m.attach(conv)
	}
	return m, nil
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.spinner.Tick}
	if m.events != nil {
		cmds = append(cmds, waitForEvent(m.events))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.detach()
			return m, tea.Quit
		}
		if m.screen == screenSelect {
			return m.updateSelect(msg)
		}
		return m.updateChat(msg)

	case eventMsg:
		if msg.source != m.events || !msg.open {
			return m, nil
		}
		m.refresh()
		return m, waitForEvent(m.events)

	case replyMsg:
		if msg.err != nil && !errors.Is(msg.err, chatService.ErrStale) && !errors.Is(msg.err, chatService.ErrClosed) {
			m.err = msg.err
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.companions)-1 {
			m.cursor++
		}
	case "q", "esc":
		return m, tea.Quit
	case "enter":
		return m.choose(m.cursor)
	default:
		if n := strings.TrimSpace(msg.String()); len(n) == 1 && n[0] >= '1' && n[0] <= '9' {
			if i := int(n[0] - '1'); i < len(m.companions) {
				m.cursor = i
				return m.choose(i)
			}
		}
	}
	return m, nil
}

func (m Model) choose(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.companions) {
		return m, nil
	}
	conv, err := m.selector.Select(m.ctx, m.companions[i].ID)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.attach(conv)
	return m, waitForEvent(m.events)
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		text := m.input.Value()
		if !m.conv.CanSend(text) {
			return m, nil
		}
		m.input.Reset()
		m.err = nil
		return m, sendCmd(m.ctx, m.conv, text)

	case tea.KeyCtrlN:
		if err := m.conv.NewConversation(); err != nil {
			m.err = err
		}
		m.refresh()
		return m, nil

	case tea.KeyCtrlO:
		m.detach()
		if err := m.selector.ChangeCompanion(m.ctx); err != nil {
			m.err = err
		}
		m.screen = screenSelect
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) attach(conv *chatService.Conversation) {
	m.detach()
	m.conv = conv
	m.events, m.unsubscribe = conv.Subscribe()
	m.screen = screenChat
	m.resize()
	m.refresh()
}

func (m *Model) detach() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.conv, m.events, m.unsubscribe = nil, nil, nil
}

func (m *Model) resize() {
	m.input.SetWidth(m.width)
	// header + status line + blank + input + help
	h := m.height - inputHeight - 5
	if h < 3 {
		h = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
	m.refresh()
}

func (m *Model) refresh() {
	if m.conv == nil {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	name := m.conv.Companion().Name
	body := m.styles.Body.Width(max(m.width-2, 10))

	var b strings.Builder
	for _, msg := range m.conv.Transcript() {
		label := m.styles.Assistant.Render(name)
		if msg.Role == chat.RoleUser {
			label = m.styles.User.Render("Deg")
		}
		fmt.Fprintf(&b, "%s %s\n%s\n\n", label, m.styles.Subtle.Render(humanize.RelTime(msg.CreatedAt, m.now(), "siden", "fra nå")), body.Render(msg.Content))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) View() string {
	if m.screen == screenSelect {
		return m.viewSelect()
	}
	return m.viewChat()
}

func (m Model) viewSelect() string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Mimre") + "\n")
	b.WriteString(m.styles.Subtle.Render("Din digitale samtalevenn") + "\n\n")
	b.WriteString("Velg hvem du vil snakke med.\n\n")

	for i, c := range m.companions {
		card := m.styles.Card
		if i == m.cursor {
			card = m.styles.Selected
		}
		b.WriteString(card.Render(fmt.Sprintf("%d. %s\n%s\n%s", i+1, m.styles.Header.Render(c.Name), c.Role, c.Bio)) + "\n")
	}

	if m.err != nil {
		b.WriteString(m.styles.Error.Render(m.err.Error()) + "\n")
	}
	b.WriteString(m.styles.Subtle.Render("↑/↓ velg • enter bekreft • q avslutt"))
	return b.String()
}

func (m Model) viewChat() string {
	if m.conv == nil {
		return ""
	}

	status := "Tilgjengelig"
	if m.conv.Busy() {
		status = m.spinner.View() + " Skriver..."
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render(m.conv.Companion().Name) + "  " + m.styles.Status.Render(status) + "\n\n")
	b.WriteString(m.viewport.View() + "\n")
	b.WriteString(m.input.View() + "\n")
	if m.err != nil {
		b.WriteString(m.styles.Error.Render(m.err.Error()) + "\n")
	}
	b.WriteString(m.styles.Subtle.Render("enter send • ctrl+n ny samtale • ctrl+o bytt samtalepartner • ctrl+c avslutt"))
	return b.String()
}

func sendCmd(ctx context.Context, conv *chatService.Conversation, text string) tea.Cmd {
	return func() tea.Msg {
		_, err := conv.Send(ctx, text)
		return replyMsg{err: err}
	}
}

func waitForEvent(events <-chan chatService.Event) tea.Cmd {
	return func() tea.Msg {
		ev, open := <-events
		return eventMsg{source: events, event: ev, open: open}
	}
}

// Run starts the terminal client and blocks until the user quits.
func Run(ctx context.Context, sel *selector.Selector) error {
	m, err := New(ctx, sel)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
