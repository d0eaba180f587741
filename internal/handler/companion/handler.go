package companion

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eryai/mimre/internal/logging"
	"github.com/eryai/mimre/internal/model/chat"
	"github.com/eryai/mimre/internal/model/companion"
	"github.com/eryai/mimre/internal/service/selector"
	"github.com/eryai/mimre/pkg/utils"
)

// Handler serves the companion selection flow.
type Handler struct {
	selector *selector.Selector
	logger   *zap.Logger
}

// New creates a companion handler.
func New(sel *selector.Selector, logger *zap.Logger) *Handler {
	return &Handler{selector: sel, logger: logging.OrNop(logger)}
}

// RegisterRoutes mounts the companion routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/companions", h.handleList)
	r.Get("/companion", h.handleCurrent)
	r.Post("/companion", h.handleSelect)
	r.Delete("/companion", h.handleChange)
}

type selectionResponse struct {
	Companion companion.Companion `json:"companion"`
	Messages  []chat.Message      `json:"messages"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.selector.Companions())
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	conv, ok, err := h.selector.Restore(r.Context())
	if err != nil {
		h.logger.Error("failed to restore companion", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to load companion")
		return
	}
	if !ok {
		utils.RespondError(w, http.StatusNotFound, selector.ErrNoCompanion.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, conv.Companion())
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Companion string `json:"companion"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Companion == "" {
		utils.RespondError(w, http.StatusBadRequest, "companion is required")
		return
	}

	conv, err := h.selector.Select(r.Context(), payload.Companion)
	if errors.Is(err, selector.ErrUnknownCompanion) {
		utils.RespondError(w, http.StatusBadRequest, "companion not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to select companion", zap.String("companion", payload.Companion), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to select companion")
		return
	}

	utils.RespondJSON(w, http.StatusOK, selectionResponse{
		Companion: conv.Companion(),
		Messages:  conv.Transcript(),
	})
}

func (h *Handler) handleChange(w http.ResponseWriter, r *http.Request) {
	if err := h.selector.ChangeCompanion(r.Context()); err != nil {
		h.logger.Error("failed to change companion", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to change companion")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
