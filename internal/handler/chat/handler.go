package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eryai/mimre/internal/logging"
	"github.com/eryai/mimre/internal/model/chat"
	"github.com/eryai/mimre/internal/model/companion"
	chatService "github.com/eryai/mimre/internal/service/chat"
	"github.com/eryai/mimre/internal/service/selector"
	"github.com/eryai/mimre/pkg/utils"
)

// Handler serves the chat screen of the selected companion.
type Handler struct {
	selector *selector.Selector
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates a chat handler.
func New(sel *selector.Selector, logger *zap.Logger) *Handler {
	return &Handler{
		selector: sel,
		logger:   logging.OrNop(logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the chat routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat", h.handleTranscript)
	r.Post("/chat/messages", h.handleSend)
	r.Post("/chat/reset", h.handleReset)
	r.Get("/chat/ws", h.handleWebSocket)
}

type transcriptResponse struct {
	Companion companion.Companion `json:"companion"`
	SessionID *string             `json:"sessionId"`
	Busy      bool                `json:"busy"`
	Messages  []chat.Message      `json:"messages"`
}

type sendResponse struct {
	Message   chat.Message `json:"message"`
	SessionID *string      `json:"sessionId"`
}

// Conversation returns the active chat, reopening a persisted choice if the
// process was restarted since it was made.
func Conversation(ctx context.Context, sel *selector.Selector) (*chatService.Conversation, error) {
	if conv := sel.Active(); conv != nil {
		return conv, nil
	}
	conv, ok, err := sel.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, selector.ErrNoCompanion
	}
	return conv, nil
}

func (h *Handler) conversation(w http.ResponseWriter, r *http.Request) (*chatService.Conversation, bool) {
	conv, err := Conversation(r.Context(), h.selector)
	if errors.Is(err, selector.ErrNoCompanion) {
		utils.RespondError(w, http.StatusConflict, err.Error())
		return nil, false
	}
	if err != nil {
		h.logger.Error("failed to open conversation", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to open conversation")
		return nil, false
	}
	return conv, true
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, transcriptResponse{
		Companion: conv.Companion(),
		SessionID: optional(conv.SessionID()),
		Busy:      conv.Busy(),
		Messages:  conv.Transcript(),
	})
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The turn completes even if the caller disconnects.
	message, err := conv.Send(context.WithoutCancel(r.Context()), payload.Message)
	if err != nil {
		utils.RespondError(w, sendErrorStatus(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, sendResponse{
		Message:   message,
		SessionID: optional(conv.SessionID()),
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.conversation(w, r)
	if !ok {
		return
	}

	if err := conv.NewConversation(); err != nil {
		if errors.Is(err, chatService.ErrClosed) {
			utils.RespondError(w, http.StatusConflict, err.Error())
			return
		}
		// The transcript is already reset; only the stored session id lingers.
		h.logger.Warn("failed to clear persisted session id", zap.Error(err))
	}

	utils.RespondJSON(w, http.StatusOK, transcriptResponse{
		Companion: conv.Companion(),
		Busy:      conv.Busy(),
		Messages:  conv.Transcript(),
	})
}

func sendErrorStatus(err error) int {
	switch {
	case errors.Is(err, chatService.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrBusy),
		errors.Is(err, chatService.ErrStale),
		errors.Is(err, chatService.ErrClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
