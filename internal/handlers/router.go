// internal/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/forty/internal/middleware"
	"github.com/jason-s-yu/forty/internal/models"
)

// NewRouter mounts the REST API, the websocket endpoint, and /ping.
func NewRouter(gs *GameServer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LogMiddleware(gs.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   gs.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api/games", func(r chi.Router) {
		r.Post("/create", CreateGameHandler(gs))
		r.Post("/join", JoinGameHandler(gs))
		r.Route("/{gameId}", func(r chi.Router) {
			r.Post("/start", PlayerActionHandler(gs, models.ActionStartGame))
			r.Post("/play", PlayerActionHandler(gs, models.ActionPlayCard))
			r.Post("/next-round", PlayerActionHandler(gs, models.ActionAdvanceRound))
			r.Get("/state", StateHandler(gs))
		})
	})
	r.Get("/ws", GameWSHandler(gs))

	return r
}
