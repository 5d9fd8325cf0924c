package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"
)

// importMessage is the queue payload announcing an uploaded allocations CSV.
type importMessage struct {
	BlobName string `json:"blob_name"`
	Filename string `json:"filename,omitempty"`
}

// HandleUpload stores an allocations CSV and enqueues its import.
func (d *Dependencies) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		slog.Warn("upload attempt with invalid method", "method", r.Method, "path", r.URL.Path)
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// 10MB limit
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		slog.Warn("failed to parse multipart form", "error", err, "max_size_mb", 10)
		WriteError(w, http.StatusBadRequest, "File too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Warn("failed to get file from form", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to get file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("failed to read uploaded file", "filename", header.Filename, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to read file")
		return
	}
	slog.Info("received allocations upload", "filename", header.Filename, "size_bytes", len(data))

	filename := filepath.Base(header.Filename)
	blobName := fmt.Sprintf("uploads/%s-%s", time.Now().Format("20060102-150405"), filename)
	container := d.Settings.UploadsContainer

	if err := d.Blob.UploadText(r.Context(), container, blobName, string(data)); err != nil {
		slog.Error("failed to upload blob", "blob_name", blobName, "container", container, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to upload blob: "+err.Error())
		return
	}

	msg := importMessage{BlobName: blobName, Filename: filename}
	if err := d.Queue.EnqueueMessage(r.Context(), d.Settings.ImportQueue, msg); err != nil {
		slog.Error("failed to enqueue import", "queue", d.Settings.ImportQueue, "blob_name", blobName, "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue message: "+err.Error())
		return
	}
	slog.Info("enqueued allocations import", "queue", d.Settings.ImportQueue, "blob_name", blobName)

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":    "queued",
		"blob_name": blobName,
	})
}
