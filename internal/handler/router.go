package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/eryai/mimre/internal/handler/chat"
	"github.com/eryai/mimre/internal/handler/companion"
	"github.com/eryai/mimre/internal/handler/stream"
	"github.com/eryai/mimre/internal/logging"
	middlewarePkg "github.com/eryai/mimre/internal/middleware"
	"github.com/eryai/mimre/internal/service/selector"
	"github.com/eryai/mimre/pkg/utils"
)

// NewRouter wires HTTP routes to the selector and its conversations.
func NewRouter(sel *selector.Selector, logger *zap.Logger) http.Handler {
	logger = logging.OrNop(logger)
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		companion.New(sel, logger).RegisterRoutes(api)
		chat.New(sel, logger).RegisterRoutes(api)
		stream.New(sel, logger).RegisterRoutes(api)
	})

	return r
}
