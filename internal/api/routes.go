package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(store Store) http.Handler {
	r := chi.NewRouter()
	h := Handler{Store: store}

	r.Get("/runs", h.ListRuns)
	r.Get("/runs/latest", h.LatestRun)
	r.Get("/voters/{vuid}", h.GetVoter)

	r.Route("/districts/{type}", func(r chi.Router) {
		r.Get("/compositions", h.GetCompositions)
		r.Get("/deltas", h.GetDeltas)
		r.Get("/competitiveness", h.GetCompetitiveness)
		r.Get("/turnout", h.GetTurnout)
	})

	return r
}
