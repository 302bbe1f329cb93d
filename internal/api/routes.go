package api

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the study endpoints on r.
func (h *StudyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/container", h.GetContainer)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.StartSession)

		r.Route("/{"+SessionIDParam+"}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.EndSession)
			r.Post("/answer", h.SubmitAnswer)
			r.Post("/next", h.Next)
			r.Post("/previous", h.Previous)
			r.Post("/restart", h.Restart)
			r.Post("/shuffle", h.Shuffle)
		})
	})
}
