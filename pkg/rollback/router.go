package rollback

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with rollback API routes.
func NewRouter(manager *Manager, coordinator *Coordinator) chi.Router {
	r := chi.NewRouter()

	r.Route("/points", func(r chi.Router) {
		r.Post("/", createPointHandler(manager))
		r.Get("/", listPointsHandler(manager))
		r.Get("/{id}", getPointHandler(manager))
		r.Delete("/{id}", deletePointHandler(manager))
	})

	r.Post("/restore", restoreHandler(coordinator))
	r.Get("/history", historyHandler(coordinator))

	r.Route("/operations", func(r chi.Router) {
		r.Get("/active", activeOperationsHandler(coordinator))
		r.Get("/{id}", getOperationHandler(coordinator))
	})

	return r
}
