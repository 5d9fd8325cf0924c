package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Dependencies holds the services required by the handlers.
type Dependencies struct {
	Database DatabaseClient
	Blob     BlobClient
	Queue    QueueClient
	Email    EmailClient // nil when email is not configured
	Bank     AccountClient

	// NewRunner builds an allocation run in simulate or live mode.
	NewRunner func(simulate bool) Runner

	Settings Settings
}

// Settings holds the resource names and defaults handlers work with.
type Settings struct {
	Simulate         bool
	Recipient        string
	UploadsContainer string
	ReportsContainer string
	ImportQueue      string
}

// recipients returns the notification recipients, or nil when email is off.
func (d *Dependencies) recipients() []string {
	if d.Email == nil || d.Settings.Recipient == "" {
		return nil
	}
	return []string{d.Settings.Recipient}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
