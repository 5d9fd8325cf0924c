package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Strategy is the kind of rule used to compute an allocation's transfer amount.
type Strategy string

const (
	StrategyTopUp      Strategy = "top_up"
	StrategyFixed      Strategy = "fixed"
	StrategyPercentage Strategy = "percentage"
)

// Strategies lists every supported strategy kind.
var Strategies = []Strategy{StrategyTopUp, StrategyFixed, StrategyPercentage}

// Valid reports whether s is one of the supported strategy kinds.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyTopUp, StrategyFixed, StrategyPercentage:
		return true
	}
	return false
}

// ParseStrategy converts a stored or user-supplied value to a Strategy.
func ParseStrategy(value string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown strategy %q", value)
	}
	return s, nil
}

// Allocation is one destination rule for distributing the main account's balance.
type Allocation struct {
	ID          string   `json:"id"` // RowKey
	Description string   `json:"description"`
	Strategy    Strategy `json:"strategy"`
	IBAN        string   `json:"iban"`
	AccountType string   `json:"account_type"`
	// AccountID links the rule to a bank account; when set, description, IBAN and
	// current balance are taken from the account listing.
	AccountID string `json:"account_id,omitempty"`

	Percentage    decimal.Decimal     `json:"percentage"`
	TargetBalance decimal.Decimal     `json:"target_balance"`
	FixedAmount   decimal.Decimal     `json:"fixed_amount"`
	MaxAmount     decimal.NullDecimal `json:"max_amount"`
	MinAmount     decimal.NullDecimal `json:"min_amount"`

	Priority int `json:"priority"`
	Position int `json:"position"` // insertion order inside the directory

	CurrentBalance decimal.NullDecimal `json:"current_balance"`
}

// MinimumAmount returns the configured minimum, or zero when unset.
func (a Allocation) MinimumAmount() decimal.Decimal {
	if a.MinAmount.Valid {
		return a.MinAmount.Decimal
	}
	return decimal.Zero
}

// Validate checks the fields required by the allocation's strategy.
func (a Allocation) Validate() error {
	if a.Description == "" && a.AccountID == "" {
		return fmt.Errorf("allocation needs a description or an account id")
	}
	if a.IBAN == "" && a.AccountID == "" {
		return fmt.Errorf("allocation %q needs an iban or an account id", a.Description)
	}
	switch a.Strategy {
	case StrategyPercentage:
		if a.Percentage.IsNegative() || a.Percentage.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("allocation %q: percentage must be between 0 and 100", a.Description)
		}
	case StrategyFixed:
		if a.FixedAmount.IsNegative() {
			return fmt.Errorf("allocation %q: fixed amount must not be negative", a.Description)
		}
	case StrategyTopUp:
	default:
		return fmt.Errorf("allocation %q: unknown strategy %q", a.Description, a.Strategy)
	}
	if a.MaxAmount.Valid && a.MaxAmount.Decimal.IsNegative() {
		return fmt.Errorf("allocation %q: max amount must not be negative", a.Description)
	}
	if a.MinAmount.Valid && a.MinAmount.Decimal.IsNegative() {
		return fmt.Errorf("allocation %q: min amount must not be negative", a.Description)
	}
	return nil
}

// MainAccountPolicy describes the source account whose balance is distributed.
type MainAccountPolicy struct {
	AccountID string          `json:"id"`
	Minimum   decimal.Decimal `json:"minimum"`
}

// Validate checks the policy invariants.
func (p MainAccountPolicy) Validate() error {
	if p.AccountID == "" {
		return fmt.Errorf("main account id is required")
	}
	if p.Minimum.IsNegative() {
		return fmt.Errorf("main account minimum must not be negative, got %s", p.Minimum.StringFixed(2))
	}
	return nil
}
