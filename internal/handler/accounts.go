package handler

import (
	"log/slog"
	"net/http"
)

// HandleAccounts lists the active bank accounts allocations can target.
func (d *Dependencies) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	accounts, err := d.Bank.ListAccounts(r.Context())
	if err != nil {
		slog.Error("failed to list bank accounts", "error", err)
		WriteError(w, http.StatusBadGateway, "Failed to list bank accounts: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, accounts)
}
