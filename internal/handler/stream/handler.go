package stream

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatHandler "github.com/eryai/mimre/internal/handler/chat"
	"github.com/eryai/mimre/internal/logging"
	"github.com/eryai/mimre/internal/service/selector"
	"github.com/eryai/mimre/pkg/utils"
)

const heartbeatInterval = 15 * time.Second

// Handler pushes conversation events as Server-Sent Events for pages that
// cannot hold a WebSocket.
type Handler struct {
	selector  *selector.Selector
	logger    *zap.Logger
	heartbeat time.Duration
}

// New creates a stream handler.
func New(sel *selector.Selector, logger *zap.Logger) *Handler {
	return &Handler{selector: sel, logger: logging.OrNop(logger), heartbeat: heartbeatInterval}
}

// RegisterRoutes mounts GET /chat/events on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/events", h.handleEvents)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	conv, err := chatHandler.Conversation(r.Context(), h.selector)
	if errors.Is(err, selector.ErrNoCompanion) {
		utils.RespondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to open conversation", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to open conversation")
		return
	}

	events, cancel := conv.Subscribe()
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	h.logger.Debug("opening event stream", zap.String("companion", conv.Companion().ID))

	if err := utils.SendSSEEvent(w, flusher, "snapshot", map[string]any{
		"companion": conv.Companion(),
		"busy":      conv.Busy(),
		"messages":  conv.Transcript(),
	}); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("closing event stream")
			return
		case ev, open := <-events:
			if !open {
				utils.SendSSEEvent(w, flusher, "closed", map[string]string{"reason": "conversation closed"})
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(ev.Type), ev); err != nil {
				return
			}
		case t := <-ticker.C:
			if err := utils.SendSSEEvent(w, flusher, "heartbeat", map[string]string{
				"time": t.UTC().Format(time.RFC3339),
			}); err != nil {
				return
			}
		}
	}
}
