package rollback

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// extractActor pulls the acting user from the request. The platform's
// gateway sets X-User-ID after authentication.
func extractActor(r *http.Request) string {
	if actor := r.Header.Get("X-User-ID"); actor != "" {
		return actor
	}
	return "unknown"
}

// createPointHandler returns a handler that captures a new rollback point.
func createPointHandler(manager *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePointRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.CreatedBy == "" {
			req.CreatedBy = extractActor(r)
		}

		point, err := manager.CreatePoint(r.Context(), req)
		if err != nil {
			var capture *CaptureError
			switch {
			case errors.Is(err, ErrValidation):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.As(err, &capture):
				// Nothing was persisted; the caller can retry once the
				// source is reachable again.
				writeError(w, http.StatusConflict, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to create rollback point: %v", err))
			}
			return
		}

		writeJSON(w, http.StatusCreated, point)
	}
}

// listPointsHandler returns a handler that lists rollback points.
func listPointsHandler(manager *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := PointListFilter{
			ProjectID: r.URL.Query().Get("projectId"),
			Status:    PointStatus(r.URL.Query().Get("status")),
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}

		points, err := manager.ListPoints(r.Context(), filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list rollback points: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"points": points, "size": len(points)})
	}
}

// getPointHandler returns a handler that retrieves one rollback point.
func getPointHandler(manager *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		point, err := manager.GetPoint(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get rollback point: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, point)
	}
}

// deletePointHandler returns a handler that soft-deletes a rollback point.
func deletePointHandler(manager *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := manager.DeletePoint(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to delete rollback point: %v", err))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// restoreRequest is the body of POST /restore.
type restoreRequest struct {
	RollbackPointID string `json:"rollbackPointId"`
	Reason          string `json:"reason,omitempty"`
	DryRun          bool   `json:"dryRun,omitempty"`
	ContinueOnError *bool  `json:"continueOnError,omitempty"`
}

// restoreHandler returns a handler that drives a restore, dry-run or live.
func restoreHandler(coordinator *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req restoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.RollbackPointID == "" {
			writeError(w, http.StatusBadRequest, "rollbackPointId is required")
			return
		}

		op, err := coordinator.Restore(r.Context(), req.RollbackPointID, RestoreOptions{
			Reason:          req.Reason,
			DryRun:          req.DryRun,
			InitiatedBy:     extractActor(r),
			ContinueOnError: req.ContinueOnError,
		})
		if err != nil {
			// A corrupted point still yields the failed operation record.
			if op != nil && errors.Is(err, ErrCorruptPoint) {
				writeJSON(w, http.StatusOK, op)
				return
			}
			switch {
			case errors.Is(err, ErrNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, ErrExpired):
				writeError(w, http.StatusGone, err.Error())
			case errors.Is(err, ErrAlreadyUsed):
				writeError(w, http.StatusConflict, err.Error())
			case errors.Is(err, ErrValidation):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("restore failed: %v", err))
			}
			return
		}

		writeJSON(w, http.StatusOK, op)
	}
}

// historyHandler returns a handler that lists restore operations.
func historyHandler(coordinator *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}

		ops, err := coordinator.History(r.Context(), r.URL.Query().Get("rollbackPointId"), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list history: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"operations": ops, "size": len(ops)})
	}
}

// activeOperationsHandler returns a handler that lists non-terminal
// operations for status views.
func activeOperationsHandler(coordinator *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ops, err := coordinator.ListActiveOperations(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list active operations: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"operations": ops, "size": len(ops)})
	}
}

// getOperationHandler returns a handler that retrieves one operation.
func getOperationHandler(coordinator *Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op, err := coordinator.GetOperation(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get operation: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, op)
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
