package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tijlk/money-flow/internal/csvparse"
)

// invokeRequest represents the payload from Azure Functions Custom Handler.
type invokeRequest struct {
	Data     map[string]any `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

// ProcessQueue handles the queue trigger that imports an uploaded allocations CSV.
// A file with any invalid row is rejected as a whole and the stored set is left untouched.
func (d *Dependencies) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read queue request body", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	var invokeReq invokeRequest
	if err := json.Unmarshal(bodyBytes, &invokeReq); err != nil {
		slog.Error("failed to unmarshal queue request", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to unmarshal request")
		return
	}

	msg, err := decodeImportMessage(invokeReq.Data)
	if err != nil {
		slog.Warn("invalid queue item", "error", err)
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	container := d.Settings.UploadsContainer
	slog.Info("processing allocations import", "blob_name", msg.BlobName, "container", container)

	csvContent, err := d.Blob.DownloadText(r.Context(), container, msg.BlobName)
	if err != nil {
		slog.Error("failed to download CSV from blob", "blob_name", msg.BlobName, "container", container, "error", err)
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to download CSV: %v", err))
		return
	}

	allocations, errors := csvparse.ParseCSV(csvContent)
	slog.Info("parsed allocations CSV", "blob_name", msg.BlobName, "allocations_count", len(allocations), "errors_count", len(errors))

	if len(errors) == 0 && len(allocations) == 0 {
		errors = []string{"The file contains no allocations"}
	}
	if len(errors) > 0 {
		slog.Warn("allocations import rejected", "blob_name", msg.BlobName, "errors", errors)
		if to := d.recipients(); to != nil {
			if err := d.Email.SendImportErrors(r.Context(), to, errors); err != nil {
				slog.Error("failed to send import error email", "error", err)
			}
		}
		// Consume the message so it doesn't retry forever.
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := d.Database.ReplaceAllocations(r.Context(), allocations); err != nil {
		slog.Error("failed to replace allocations", "count", len(allocations), "error", err)
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save allocations: %v", err))
		return
	}

	slog.Info("allocations import complete", "blob_name", msg.BlobName, "count", len(allocations))
	w.WriteHeader(http.StatusOK)
}

// decodeImportMessage reads the queue item, which the host passes either as a
// JSON string or as an already decoded object.
func decodeImportMessage(data map[string]any) (importMessage, error) {
	item, ok := data["queueItem"]
	if !ok {
		item, ok = data["queueitem"]
	}
	if !ok {
		return importMessage{}, fmt.Errorf("missing queueItem in Data")
	}

	var raw []byte
	switch v := item.(type) {
	case string:
		raw = []byte(v)
	case map[string]any:
		raw, _ = json.Marshal(v)
	default:
		return importMessage{}, fmt.Errorf("queueItem has unexpected type %T", item)
	}

	var msg importMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return importMessage{}, fmt.Errorf("invalid queueItem JSON: %v", err)
	}
	if msg.BlobName == "" {
		return importMessage{}, fmt.Errorf("missing blob_name")
	}
	return msg, nil
}
