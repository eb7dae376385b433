package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	roomHandler "github.com/huddlechat/huddle/backend/internal/handler/room"
	streamHandler "github.com/huddlechat/huddle/backend/internal/handler/stream"
	wsHandler "github.com/huddlechat/huddle/backend/internal/handler/ws"
	"github.com/huddlechat/huddle/backend/internal/middleware"
	"github.com/huddlechat/huddle/backend/internal/service/roomsync"
	"github.com/huddlechat/huddle/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the session manager.
func NewRouter(manager *roomsync.Manager) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		roomHandler.New(manager).RegisterRoutes(api)
		streamHandler.New(manager).RegisterRoutes(api)
		wsHandler.New(manager).RegisterRoutes(api)
	})

	return r
}
