package handler

import (
	"log/slog"
	"net/http"
	"strings"
)

const reportPrefix = "runs/"

// HandleReports lists stored run reports, or returns one when name is given.
func (d *Dependencies) HandleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		names, err := d.Blob.ListBlobNames(r.Context(), d.Settings.ReportsContainer, reportPrefix)
		if err != nil {
			slog.Error("failed to list run reports", "container", d.Settings.ReportsContainer, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to list reports: "+err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, names)
		return
	}

	if !strings.HasPrefix(name, reportPrefix) || strings.Contains(name, "..") {
		WriteError(w, http.StatusBadRequest, "Invalid report name")
		return
	}

	content, err := d.Blob.DownloadText(r.Context(), d.Settings.ReportsContainer, name)
	if err != nil {
		slog.Error("failed to download run report", "name", name, "error", err)
		WriteError(w, http.StatusNotFound, "Report not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}
