package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tijlk/money-flow/internal/models"
)

func TestHandleAllocations_Get(t *testing.T) {
	mockDb := &MockDatabaseClient{
		ListAllocationsFunc: func(ctx context.Context) ([]models.Allocation, error) {
			return []models.Allocation{
				{ID: "a", Description: "Rent", Strategy: models.StrategyFixed, FixedAmount: decimal.NewFromInt(850)},
			}, nil
		},
	}
	deps := &Dependencies{Database: mockDb}

	req := httptest.NewRequest(http.MethodGet, "/api/allocations", nil)
	w := httptest.NewRecorder()
	deps.HandleAllocations(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []models.Allocation
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 1)
	assert.Equal(t, "Rent", got[0].Description)
}

func TestHandleAllocations_GetError(t *testing.T) {
	deps := &Dependencies{Database: &MockDatabaseClient{
		ListAllocationsFunc: func(ctx context.Context) ([]models.Allocation, error) {
			return nil, errors.New("table down")
		},
	}}

	w := httptest.NewRecorder()
	deps.HandleAllocations(w, httptest.NewRequest(http.MethodGet, "/api/allocations", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "table down")
}

func TestHandleAllocations_Post(t *testing.T) {
	var saved models.Allocation
	deps := &Dependencies{Database: &MockDatabaseClient{
		SaveAllocationFunc: func(ctx context.Context, a models.Allocation) error {
			saved = a
			return nil
		},
	}}

	body := `{"description":"Savings","strategy":" Percentage ","iban":"NL01","percentage":"12.5","current_balance":"99"}`
	req := httptest.NewRequest(http.MethodPost, "/api/allocations", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	deps.HandleAllocations(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, models.StrategyPercentage, saved.Strategy)
	assert.True(t, saved.Percentage.Equal(decimal.RequireFromString("12.5")))
	assert.False(t, saved.CurrentBalance.Valid)
}

func TestHandleAllocations_PostRejectsInvalid(t *testing.T) {
	saveCalled := false
	deps := &Dependencies{Database: &MockDatabaseClient{
		SaveAllocationFunc: func(ctx context.Context, a models.Allocation) error {
			saveCalled = true
			return nil
		},
	}}

	for _, body := range []string{
		`not json`,
		`{"description":"Lottery","strategy":"lottery","iban":"NL01"}`,
		`{"description":"Too much","strategy":"percentage","iban":"NL01","percentage":"101"}`,
		`{"description":"Nowhere","strategy":"fixed","fixed_amount":"5"}`,
	} {
		w := httptest.NewRecorder()
		deps.HandleAllocations(w, httptest.NewRequest(http.MethodPost, "/api/allocations", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.False(t, saveCalled)
}

func TestHandleAllocations_Delete(t *testing.T) {
	var deleted string
	deps := &Dependencies{Database: &MockDatabaseClient{
		DeleteAllocationFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}}

	w := httptest.NewRecorder()
	deps.HandleAllocations(w, httptest.NewRequest(http.MethodDelete, "/api/allocations?id=abc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", deleted)

	w = httptest.NewRecorder()
	deps.HandleAllocations(w, httptest.NewRequest(http.MethodDelete, "/api/allocations", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAllocations_MethodNotAllowed(t *testing.T) {
	deps := &Dependencies{}
	w := httptest.NewRecorder()
	deps.HandleAllocations(w, httptest.NewRequest(http.MethodPut, "/api/allocations", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
