package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tijlk/money-flow/internal/config"
	"github.com/tijlk/money-flow/internal/models"
)

// ErrAccountNotFound is returned when no active account matches a lookup.
var ErrAccountNotFound = errors.New("account not found")

// accountKinds are the monetary account endpoints whose accounts can be allocated to.
var accountKinds = []struct {
	kind     string
	endpoint string
}{
	{"bank", "monetary-account-bank"},
	{"joint", "monetary-account-joint"},
	{"savings", "monetary-account-savings"},
}

// BankService talks to the bunq REST API with an already established session.
type BankService struct {
	baseURL      string
	sessionToken string
	userID       string
	currency     string
	pageSize     int
	pageDelay    time.Duration
	httpClient   *http.Client
	sleep        func(ctx context.Context, d time.Duration) error
}

// NewBankService creates a new BankService instance.
func NewBankService(cfg config.BankConfig) (*BankService, error) {
	if cfg.SessionToken == "" {
		return nil, fmt.Errorf("bank.session_token is required")
	}
	if cfg.UserID == "" {
		return nil, fmt.Errorf("bank.user_id is required")
	}

	slog.Info("bank service initialized", "base_url", cfg.BaseURL, "user_id", cfg.UserID)
	return &BankService{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		sessionToken: cfg.SessionToken,
		userID:       cfg.UserID,
		currency:     cfg.Currency,
		pageSize:     cfg.PageSize,
		pageDelay:    cfg.PageDelay,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		sleep:        sleepWithContext,
	}, nil
}

type bunqAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type bunqPointer struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

type bunqMonetaryAccount struct {
	ID          int64         `json:"id"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Balance     bunqAmount    `json:"balance"`
	Alias       []bunqPointer `json:"alias"`
}

type bunqPagination struct {
	OlderURL *string `json:"older_url"`
}

type bunqResponse struct {
	Response   []map[string]json.RawMessage `json:"Response"`
	Pagination *bunqPagination              `json:"Pagination"`
}

type bunqError struct {
	Error []struct {
		Description string `json:"error_description"`
	} `json:"Error"`
}

// PaymentRequest describes a payment from one of the user's accounts to an IBAN.
type PaymentRequest struct {
	FromAccountID string
	Amount        decimal.Decimal
	ToIBAN        string
	ToName        string
	Description   string
}

type bunqPaymentBody struct {
	Amount            bunqAmount  `json:"amount"`
	CounterpartyAlias bunqPointer `json:"counterparty_alias"`
	Description       string      `json:"description"`
}

// ListAccounts returns all active bank, joint and savings accounts.
// Consecutive page requests are spaced by the configured page delay to stay
// under the bank's rate limit.
func (s *BankService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	requests := 0
	for _, k := range accountKinds {
		next := fmt.Sprintf("%s/user/%s/%s?count=%d", s.baseURL, s.userID, k.endpoint, s.pageSize)
		for next != "" {
			if requests > 0 {
				if err := s.sleep(ctx, s.pageDelay); err != nil {
					return nil, fmt.Errorf("failed to list %s accounts: %w", k.kind, err)
				}
			}
			requests++

			var resp bunqResponse
			if err := s.do(ctx, http.MethodGet, next, nil, &resp); err != nil {
				return nil, fmt.Errorf("failed to list %s accounts: %w", k.kind, err)
			}
			for _, item := range resp.Response {
				for _, raw := range item {
					acc, ok, err := decodeAccount(raw, k.kind)
					if err != nil {
						slog.Warn("skipping undecodable account", "kind", k.kind, "error", err)
						continue
					}
					if ok {
						accounts = append(accounts, acc)
					}
				}
			}
			next = ""
			if resp.Pagination != nil && resp.Pagination.OlderURL != nil {
				resolved, err := s.resolve(*resp.Pagination.OlderURL)
				if err != nil {
					return nil, fmt.Errorf("invalid %s pagination url %q: %w", k.kind, *resp.Pagination.OlderURL, err)
				}
				next = resolved
			}
		}
	}

	slog.Info("listed bank accounts", "count", len(accounts), "requests", requests)
	return accounts, nil
}

// GetBalanceByID returns the balance of the account with the given id.
func (s *BankService) GetBalanceByID(ctx context.Context, accountID string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/user/%s/monetary-account/%s", s.baseURL, s.userID, url.PathEscape(accountID))
	var resp bunqResponse
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get account %s: %w", accountID, err)
	}
	for _, item := range resp.Response {
		for _, raw := range item {
			var acc bunqMonetaryAccount
			if err := json.Unmarshal(raw, &acc); err != nil {
				return decimal.Zero, fmt.Errorf("failed to decode account %s: %w", accountID, err)
			}
			balance, err := decimal.NewFromString(acc.Balance.Value)
			if err != nil {
				return decimal.Zero, fmt.Errorf("invalid balance %q for account %s: %w", acc.Balance.Value, accountID, err)
			}
			return balance.Round(2), nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: id %s", ErrAccountNotFound, accountID)
}

// CreatePayment submits a payment and returns the bank's payment id.
func (s *BankService) CreatePayment(ctx context.Context, req PaymentRequest) (string, error) {
	body := bunqPaymentBody{
		Amount: bunqAmount{Value: req.Amount.StringFixed(2), Currency: s.currency},
		CounterpartyAlias: bunqPointer{
			Type:  "IBAN",
			Value: req.ToIBAN,
			Name:  req.ToName,
		},
		Description: req.Description,
	}

	endpoint := fmt.Sprintf("%s/user/%s/monetary-account/%s/payment", s.baseURL, s.userID, url.PathEscape(req.FromAccountID))
	var resp struct {
		Response []struct {
			ID *struct {
				ID int64 `json:"id"`
			} `json:"Id"`
		} `json:"Response"`
	}
	if err := s.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return "", fmt.Errorf("failed to create payment: %w", err)
	}
	for _, r := range resp.Response {
		if r.ID != nil {
			return strconv.FormatInt(r.ID.ID, 10), nil
		}
	}
	return "", nil
}

// resolve turns a pagination path returned by the API into an absolute URL.
func (s *BankService) resolve(ref string) (string, error) {
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(r).String(), nil
}

func (s *BankService) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", "money-flow")
	req.Header.Set("X-Bunq-Language", "en_US")
	req.Header.Set("X-Bunq-Region", "nl_NL")
	req.Header.Set("X-Bunq-Geolocation", "0 0 0 0 000")
	req.Header.Set("X-Bunq-Client-Request-Id", uuid.New().String())
	req.Header.Set("X-Bunq-Client-Authentication", s.sessionToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send bank request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read bank response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr bunqError
		if json.Unmarshal(respBody, &apiErr) == nil && len(apiErr.Error) > 0 {
			return fmt.Errorf("bank request failed with status %d: %s", resp.StatusCode, apiErr.Error[0].Description)
		}
		return fmt.Errorf("bank request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode bank response: %w", err)
	}
	return nil
}

// decodeAccount converts a listed account. Inactive accounts and accounts
// without an IBAN alias are reported as not ok.
func decodeAccount(raw json.RawMessage, kind string) (models.Account, bool, error) {
	var acc bunqMonetaryAccount
	if err := json.Unmarshal(raw, &acc); err != nil {
		return models.Account{}, false, err
	}
	if acc.Status != "ACTIVE" {
		return models.Account{}, false, nil
	}

	iban := ""
	for _, alias := range acc.Alias {
		if alias.Type == "IBAN" {
			iban = alias.Value
			break
		}
	}
	if iban == "" {
		return models.Account{}, false, nil
	}

	balance, err := decimal.NewFromString(acc.Balance.Value)
	if err != nil {
		return models.Account{}, false, fmt.Errorf("invalid balance %q for account %d: %w", acc.Balance.Value, acc.ID, err)
	}

	return models.Account{
		ID:          strconv.FormatInt(acc.ID, 10),
		Description: acc.Description,
		IBAN:        iban,
		Balance:     balance,
		Currency:    acc.Balance.Currency,
		Type:        kind,
	}, true, nil
}
