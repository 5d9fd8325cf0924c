package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/shopspring/decimal"
	"github.com/tijlk/money-flow/internal/config"
	"github.com/tijlk/money-flow/internal/models"
)

// MockCredential implements azcore.TokenCredential for testing.
type MockCredential struct{}

func (m *MockCredential) GetToken(ctx context.Context, options policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{
		Token:     "mock-token",
		ExpiresOn: time.Now().Add(1 * time.Hour),
	}, nil
}

func TestNewEmailService_RequiresEndpointAndSender(t *testing.T) {
	if _, err := NewEmailService(config.EmailConfig{Sender: "a@b.c"}, &MockCredential{}); err == nil {
		t.Error("Expected error for missing endpoint")
	}
	if _, err := NewEmailService(config.EmailConfig{Endpoint: "https://x"}, &MockCredential{}); err == nil {
		t.Error("Expected error for missing sender")
	}
}

func TestEmailService_SendEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails:send" {
			t.Errorf("Expected path /emails:send, got %s", r.URL.Path)
		}

		if r.Header.Get("Authorization") != "Bearer mock-token" {
			t.Errorf("Expected Authorization header 'Bearer mock-token', got %s", r.Header.Get("Authorization"))
		}

		body, _ := io.ReadAll(r.Body)
		var req emailRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("Failed to unmarshal request body: %v", err)
		}

		if req.SenderAddress != "sender@test.com" {
			t.Errorf("Expected sender 'sender@test.com', got %s", req.SenderAddress)
		}
		if len(req.Recipients.To) != 1 || req.Recipients.To[0].Address != "recipient@test.com" {
			t.Errorf("Expected recipient 'recipient@test.com', got %v", req.Recipients.To)
		}
		if req.Content.Subject != "Test Subject" {
			t.Errorf("Expected subject 'Test Subject', got %s", req.Content.Subject)
		}

		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	service, err := NewEmailService(config.EmailConfig{Endpoint: server.URL + "/", Sender: "sender@test.com"}, &MockCredential{})
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}

	err = service.SendEmail(context.Background(), []string{"recipient@test.com"}, "Test Subject", "Test Body")
	if err != nil {
		t.Errorf("SendEmail failed: %v", err)
	}
}

func TestEmailService_SendEmail_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Error"))
	}))
	defer server.Close()

	service, _ := NewEmailService(config.EmailConfig{Endpoint: server.URL, Sender: "sender@test.com"}, &MockCredential{})

	err := service.SendEmail(context.Background(), []string{"recipient@test.com"}, "Sub", "Body")
	if err == nil {
		t.Error("Expected error, got nil")
	}
}

func TestEmailService_SendRunSummary(t *testing.T) {
	var got emailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	service, _ := NewEmailService(config.EmailConfig{Endpoint: server.URL, Sender: "sender@test.com", Locale: "en"}, &MockCredential{})

	report := &models.RunReport{
		RunID:         "run-1",
		Simulated:     true,
		OriginalTotal: decimal.NewFromInt(500),
		Remainder:     decimal.NewFromInt(200),
		Transfers: []models.TransferOutcome{{
			Strategy:    models.StrategyPercentage,
			Instruction: models.TransferInstruction{DestinationAlias: "Savings", Amount: decimal.NewFromInt(300)},
			Status:      models.TransferSimulated,
		}},
	}

	if err := service.SendRunSummary(context.Background(), []string{"me@test.com"}, report); err != nil {
		t.Fatalf("SendRunSummary failed: %v", err)
	}
	if got.Content.Subject != "Money Flow - Simulated allocation run" {
		t.Errorf("Unexpected subject %q", got.Content.Subject)
	}
	if !strings.Contains(got.Content.HTML, "Savings") {
		t.Errorf("Expected body to mention the destination")
	}
}
