package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tijlk/money-flow/internal/models"
	"github.com/tijlk/money-flow/internal/services"
)

// HandlePolicy reads or replaces the main account policy.
func (d *Dependencies) HandlePolicy(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		policy, err := d.Database.GetPolicy(r.Context())
		if errors.Is(err, services.ErrPolicyNotFound) {
			WriteError(w, http.StatusNotFound, "Main account policy not configured")
			return
		}
		if err != nil {
			slog.Error("failed to get main account policy", "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to get main account policy: "+err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, policy)

	case http.MethodPost:
		var policy models.MainAccountPolicy
		if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
			slog.Warn("invalid policy request body", "error", err)
			WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := policy.Validate(); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := d.Database.SavePolicy(r.Context(), policy); err != nil {
			slog.Error("failed to save main account policy", "account_id", policy.AccountID, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to save main account policy: "+err.Error())
			return
		}

		slog.Info("saved main account policy", "account_id", policy.AccountID, "minimum", policy.Minimum.StringFixed(2))
		WriteJSON(w, http.StatusOK, policy)

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
