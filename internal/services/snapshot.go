package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tijlk/money-flow/internal/models"
)

// AccountBank is the part of the bank an AccountSnapshot reads from.
type AccountBank interface {
	AccountLister
	GetBalanceByID(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// AccountSnapshot lists the bank's accounts once and answers every later
// listing and IBAN balance lookup from that one listing, so all destinations
// of a run see balances taken at the same moment. Create one per run.
//
// The source balance is not part of the snapshot: GetBalanceByID always asks
// the bank.
type AccountSnapshot struct {
	bank AccountBank

	mu       sync.Mutex
	loaded   bool
	accounts []models.Account
	byIBAN   map[string]decimal.Decimal
	err      error
}

// NewAccountSnapshot creates an empty snapshot over bank.
func NewAccountSnapshot(bank AccountBank) *AccountSnapshot {
	return &AccountSnapshot{bank: bank}
}

func (s *AccountSnapshot) load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.err
	}
	s.loaded = true

	accounts, err := s.bank.ListAccounts(ctx)
	if err != nil {
		s.err = fmt.Errorf("failed to take account snapshot: %w", err)
		return s.err
	}
	s.accounts = accounts
	s.byIBAN = make(map[string]decimal.Decimal, len(accounts))
	for _, acc := range accounts {
		if acc.IBAN != "" {
			s.byIBAN[strings.ToUpper(acc.IBAN)] = acc.Balance
		}
	}
	slog.Info("took account snapshot", "accounts", len(accounts))
	return nil
}

// ListAccounts returns the snapshot's accounts, listing them on first use.
func (s *AccountSnapshot) ListAccounts(ctx context.Context) ([]models.Account, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(s.accounts), nil
}

// GetBalanceByIBAN returns the snapshot balance of the account holding iban.
func (s *AccountSnapshot) GetBalanceByIBAN(ctx context.Context, iban string) (decimal.Decimal, error) {
	if err := s.load(ctx); err != nil {
		return decimal.Zero, err
	}
	balance, ok := s.byIBAN[strings.ToUpper(strings.ReplaceAll(iban, " ", ""))]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: iban %s", ErrAccountNotFound, iban)
	}
	return balance, nil
}

// GetBalanceByID returns the live balance of the account with the given id.
func (s *AccountSnapshot) GetBalanceByID(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return s.bank.GetBalanceByID(ctx, accountID)
}
