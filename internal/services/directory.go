package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/tijlk/money-flow/internal/models"
)

// AllocationStore is the persisted side of the directory.
type AllocationStore interface {
	ListAllocations(ctx context.Context) ([]models.Allocation, error)
	GetPolicy(ctx context.Context) (models.MainAccountPolicy, error)
}

// AccountLister lists the bank accounts that allocations can be linked to.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

// Directory joins stored allocations with the bank's account listing.
type Directory struct {
	store    AllocationStore
	accounts AccountLister
}

// NewDirectory creates a Directory.
func NewDirectory(store AllocationStore, accounts AccountLister) *Directory {
	return &Directory{store: store, accounts: accounts}
}

// ListAllocations returns the stored allocations. Allocations linked to a bank
// account take their description, IBAN and current balance from that account.
func (d *Directory) ListAllocations(ctx context.Context) ([]models.Allocation, error) {
	allocations, err := d.store.ListAllocations(ctx)
	if err != nil {
		return nil, err
	}

	linked := false
	for _, a := range allocations {
		if a.AccountID != "" {
			linked = true
			break
		}
	}
	if !linked {
		return allocations, nil
	}

	accounts, err := d.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve linked accounts: %w", err)
	}
	byID := make(map[string]models.Account, len(accounts))
	for _, acc := range accounts {
		byID[acc.ID] = acc
	}

	for i, a := range allocations {
		if a.AccountID == "" {
			continue
		}
		acc, ok := byID[a.AccountID]
		if !ok {
			slog.Warn("linked account not found or inactive", "allocation", a.Description, "account_id", a.AccountID)
			continue
		}
		allocations[i].Description = acc.Description
		allocations[i].IBAN = acc.IBAN
		allocations[i].CurrentBalance = decimal.NewNullDecimal(acc.Balance)
	}
	return allocations, nil
}

// GetPolicy returns the validated main account policy.
func (d *Directory) GetPolicy(ctx context.Context) (models.MainAccountPolicy, error) {
	policy, err := d.store.GetPolicy(ctx)
	if err != nil {
		return models.MainAccountPolicy{}, err
	}
	if err := policy.Validate(); err != nil {
		return models.MainAccountPolicy{}, fmt.Errorf("invalid main account policy: %w", err)
	}
	return policy, nil
}
