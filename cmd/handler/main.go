package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tijlk/money-flow/internal/config"
	"github.com/tijlk/money-flow/internal/engine"
	"github.com/tijlk/money-flow/internal/handler"
	"github.com/tijlk/money-flow/internal/services"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	dbService, err := services.NewDatabaseService(cfg.Storage)
	if err != nil {
		slog.Error("Failed to init DatabaseService", "error", err)
		os.Exit(1)
	}

	blobService, err := services.NewBlobService(cfg.Storage.BlobServiceURL)
	if err != nil {
		slog.Error("Failed to init BlobService", "error", err)
		os.Exit(1)
	}

	queueService, err := services.NewQueueService(cfg.Storage.QueueServiceURL)
	if err != nil {
		slog.Error("Failed to init QueueService", "error", err)
		os.Exit(1)
	}

	bankService, err := services.NewBankService(cfg.Bank)
	if err != nil {
		slog.Error("Failed to init BankService", "error", err)
		os.Exit(1)
	}

	gateway := services.NewPaymentGateway(bankService, cfg.Payment)

	deps := &handler.Dependencies{
		Database: dbService,
		Blob:     blobService,
		Queue:    queueService,
		Bank:     bankService,
		NewRunner: func(simulate bool) handler.Runner {
			// Linked allocations and top-up lookups share one account listing per run.
			snapshot := services.NewAccountSnapshot(bankService)
			directory := services.NewDirectory(dbService, snapshot)
			return engine.New(directory, snapshot, gateway, engine.Options{
				Simulate:          simulate,
				DescriptionPrefix: cfg.Payment.DescriptionPrefix,
			})
		},
		Settings: handler.Settings{
			Simulate:         cfg.Payment.Simulate,
			Recipient:        cfg.Email.Recipient,
			UploadsContainer: cfg.Storage.UploadsContainer,
			ReportsContainer: cfg.Storage.ReportsContainer,
			ImportQueue:      cfg.Storage.ImportQueue,
		},
	}

	// A nil *EmailService must not end up in the interface.
	emailService, err := services.NewEmailService(cfg.Email, nil)
	if err != nil {
		slog.Warn("Failed to init EmailService (continuing without email)", "error", err)
	} else {
		deps.Email = emailService
	}

	// Router
	mux := http.NewServeMux()

	// API Routes
	mux.HandleFunc("GET /api/allocations", deps.HandleAllocations)
	mux.HandleFunc("POST /api/allocations", deps.HandleAllocations)
	mux.HandleFunc("DELETE /api/allocations", deps.HandleAllocations)

	mux.HandleFunc("GET /api/policy", deps.HandlePolicy)
	mux.HandleFunc("POST /api/policy", deps.HandlePolicy)

	mux.HandleFunc("GET /api/accounts", deps.HandleAccounts)
	mux.HandleFunc("GET /api/reports", deps.HandleReports)
	mux.HandleFunc("POST /api/run", deps.HandleRun)
	mux.HandleFunc("POST /api/upload", deps.HandleUpload)

	// Adapter for HTTP Trigger (since enableForwardingHttpRequest is false)
	mux.HandleFunc("/HttpTrigger", deps.HandleHttpTrigger(mux))

	// Use simpler path matching for triggers to avoid method mismatch issues
	mux.HandleFunc("/ProcessQueue", deps.ProcessQueue)
	mux.HandleFunc("/AllocationTrigger", deps.HandleAllocationTrigger)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		headers := make(map[string]string)
		for k, v := range r.Header {
			headers[k] = strings.Join(v, ", ")
		}
		slog.Warn("unmatched request",
			"method", r.Method,
			"path", r.URL.Path,
			"headers", headers,
			"content_length", r.ContentLength,
		)
		http.NotFound(w, r)
	})

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	slog.Info("Starting server", "port", cfg.Server.Port, "simulate", cfg.Payment.Simulate)
	if err := http.ListenAndServe(":"+cfg.Server.Port, loggingMiddleware(mux)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// maxLoggedBody caps the request body preview; uploads can be large.
const maxLoggedBody = 512

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var preview string
		if r.Body != nil && !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			if len(bodyBytes) > maxLoggedBody {
				bodyBytes = bodyBytes[:maxLoggedBody]
			}
			preview = string(bodyBytes)
		}

		slog.Info("incoming request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"content_type", r.Header.Get("Content-Type"),
			"content_length", r.ContentLength,
			"body_preview", preview,
		)

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		slog.Info("request completed", "method", r.Method, "path", r.URL.Path, "status", rw.status, "duration", time.Since(start))
	})
}
