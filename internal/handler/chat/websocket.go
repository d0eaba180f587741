package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eryai/mimre/internal/model/chat"
	"github.com/eryai/mimre/internal/model/companion"
	chatService "github.com/eryai/mimre/internal/service/chat"
)

const (
	writeWait      = 10 * time.Second
	outboundBuffer = 8
)

type inboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type snapshotFrame struct {
	Type      string              `json:"type"`
	Companion companion.Companion `json:"companion"`
	SessionID string              `json:"sessionId,omitempty"`
	Busy      bool                `json:"busy"`
	Messages  []chat.Message      `json:"messages"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleWebSocket streams conversation events and accepts "send" and "reset"
// frames from the page.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := conv.Subscribe()
	defer cancel()

	outbound := make(chan any, outboundBuffer)
	done := make(chan struct{})
	go h.readFrames(conn, conv, outbound, done)

	write := func(v any) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			return false
		}
		return true
	}

	if !write(snapshotFrame{
		Type:      "snapshot",
		Companion: conv.Companion(),
		SessionID: conv.SessionID(),
		Busy:      conv.Busy(),
		Messages:  conv.Transcript(),
	}) {
		return
	}

	for {
		select {
		case ev, open := <-events:
			if !open {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "conversation closed"))
				return
			}
			if !write(ev) {
				return
			}
		case frame := <-outbound:
			if !write(frame) {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Handler) readFrames(conn *websocket.Conn, conv *chatService.Conversation, outbound chan<- any, done chan<- struct{}) {
	defer close(done)

	report := func(err error) {
		select {
		case outbound <- errorFrame{Type: "error", Error: err.Error()}:
		default:
		}
	}

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}

		switch strings.ToLower(frame.Type) {
		case "send":
			if !conv.CanSend(frame.Text) {
				if strings.TrimSpace(frame.Text) == "" {
					report(chatService.ErrEmptyInput)
				} else {
					report(chatService.ErrBusy)
				}
				continue
			}
			// Results reach the page through the event stream.
			go func(text string) {
				if _, err := conv.Send(context.Background(), text); err != nil {
					report(err)
				}
			}(frame.Text)
		case "reset":
			if err := conv.NewConversation(); err != nil {
				h.logger.Warn("reset over websocket failed", zap.Error(err))
			}
		default:
			report(fmt.Errorf("unknown frame type %q", frame.Type))
		}
	}
}
