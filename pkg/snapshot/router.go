package snapshot

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with snapshot API routes.
func NewRouter(store *Store) chi.Router {
	r := chi.NewRouter()

	r.Route("/{dataSourceId}", func(r chi.Router) {
		r.Post("/", ingestHandler(store))
		r.Get("/versions", listVersionsHandler(store))
		r.Get("/versions/{version}", getSnapshotHandler(store))
		r.Get("/compare", compareHandler(store))
	})

	return r
}
