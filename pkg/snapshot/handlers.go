package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/TylorMayfield/manifold-rollback/pkg/diff"
)

// ingestHandler returns a handler that stores a new snapshot version for a
// data source. This is the pipeline engine's write boundary.
func ingestHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataSourceID := chi.URLParam(r, "dataSourceId")

		var req IngestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		snap, err := store.Create(r.Context(), dataSourceID, req.ProjectID, req.Records)
		if err != nil {
			if errors.Is(err, ErrConflict) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create snapshot: %v", err))
			return
		}

		writeJSON(w, http.StatusCreated, snap.ToAPI())
	}
}

// listVersionsHandler returns a handler that lists a data source's
// versions in ascending order, alongside its current pointer.
func listVersionsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataSourceID := chi.URLParam(r, "dataSourceId")

		versions, err := store.ListVersions(r.Context(), dataSourceID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list versions: %v", err))
			return
		}

		current, err := store.Current(r.Context(), dataSourceID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to resolve current pointer: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, VersionsResponse{
			DataSourceID:   dataSourceID,
			Versions:       versions,
			CurrentVersion: current.Version,
		})
	}
}

// getSnapshotHandler returns a handler that retrieves one version's
// metadata.
func getSnapshotHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataSourceID := chi.URLParam(r, "dataSourceId")
		version, err := strconv.Atoi(chi.URLParam(r, "version"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "version must be an integer")
			return
		}

		snap, err := store.Get(r.Context(), dataSourceID, version)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get snapshot: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, snap.ToAPI())
	}
}

// compareHandler returns a handler that diffs two versions of a data
// source. Comparison is read-only and safe to repeat; the UI calls this
// for version comparison and pre-restore audits.
func compareHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dataSourceID := chi.URLParam(r, "dataSourceId")

		from, err := strconv.Atoi(r.URL.Query().Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be an integer version")
			return
		}
		to, err := strconv.Atoi(r.URL.Query().Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be an integer version")
			return
		}
		keyField := r.URL.Query().Get("keyField")
		if keyField == "" {
			writeError(w, http.StatusBadRequest, "keyField is required")
			return
		}

		fromRecords, err := store.GetRecords(r.Context(), dataSourceID, from)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load snapshot: %v", err))
			return
		}
		toRecords, err := store.GetRecords(r.Context(), dataSourceID, to)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load snapshot: %v", err))
			return
		}

		cmp, err := diff.Compare(
			diff.VersionedSet{Version: from, Records: fromRecords},
			diff.VersionedSet{Version: to, Records: toRecords},
			keyField,
		)
		if err != nil {
			if errors.Is(err, diff.ErrMalformedSnapshot) {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, cmp)
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
