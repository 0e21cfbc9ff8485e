package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes builds the HTTP router for the draft API.
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealthz)
	r.Get("/ws/stats", s.handleConnectionStats)

	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", s.handleCreateRoom)

		r.Route("/{roomID}", func(r chi.Router) {
			r.Get("/", s.handleGetRoom)
			r.Get("/state", s.handleState)
			r.Get("/stats", s.handleStats)
			r.Get("/players", s.handleAvailablePlayers)
			r.Get("/ws", s.handleWebSocket)

			r.Post("/join", s.handleJoin)
			r.Post("/order/randomize", s.handleRandomizeOrder)
			r.Put("/settings", s.handleUpdateSettings)
			r.Post("/start", s.handleForceStart)
			r.Post("/picks", s.handleSubmitPick)
			r.Post("/autopick", s.handleAutoPick)

			r.Get("/participants/{identity}/roster", s.handleRoster)
			r.Get("/participants/{identity}/queue", s.handleQueueGet)
			r.Post("/queue", s.handleQueueAdd)
			r.Delete("/queue", s.handleQueueRemove)
			r.Put("/queue", s.handleQueueReorder)

			r.Post("/rankings", s.handleImportRankings)
			r.Delete("/rankings", s.handleClearRankings)
		})
	})

	return r
}
