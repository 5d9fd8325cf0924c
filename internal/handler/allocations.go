package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tijlk/money-flow/internal/models"
)

// HandleAllocations handles GET, POST, and DELETE requests for allocations.
func (d *Dependencies) HandleAllocations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		slog.Info("fetching allocations", "method", r.Method, "path", r.URL.Path)
		allocations, err := d.Database.ListAllocations(r.Context())
		if err != nil {
			slog.Error("failed to list allocations", "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to list allocations: "+err.Error())
			return
		}
		slog.Info("successfully retrieved allocations", "count", len(allocations))
		WriteJSON(w, http.StatusOK, allocations)

	case http.MethodPost:
		var a models.Allocation
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			slog.Warn("invalid allocation request body", "error", err)
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		strategy, err := models.ParseStrategy(string(a.Strategy))
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.Strategy = strategy
		// Balances are read live from the bank, never stored.
		a.CurrentBalance.Valid = false

		if err := a.Validate(); err != nil {
			slog.Warn("rejected allocation", "description", a.Description, "error", err)
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if a.ID == "" {
			a.ID = uuid.New().String()
		}

		if err := d.Database.SaveAllocation(r.Context(), a); err != nil {
			slog.Error("failed to save allocation", "description", a.Description, "id", a.ID, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to save allocation: "+err.Error())
			return
		}

		slog.Info("successfully saved allocation", "description", a.Description, "strategy", a.Strategy, "id", a.ID)
		WriteJSON(w, http.StatusOK, a)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "Missing allocation ID")
			return
		}

		slog.Info("deleting allocation", "id", id)
		if err := d.Database.DeleteAllocation(r.Context(), id); err != nil {
			slog.Error("failed to delete allocation", "id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to delete allocation: "+err.Error())
			return
		}

		slog.Info("successfully deleted allocation", "id", id)
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
