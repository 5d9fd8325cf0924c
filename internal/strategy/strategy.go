// Package strategy computes proposed transfer amounts for allocation rules.
//
// Every strategy is a pure function of the allocation, the budget it may
// spend and a balance lookup. None of them keep state between calls.
package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tijlk/money-flow/internal/models"
)

var (
	// ErrUnknownStrategy is returned by Lookup for kinds without an implementation.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrBalanceUnavailable is returned when a top-up destination's balance cannot be resolved.
	ErrBalanceUnavailable = errors.New("destination balance unavailable")
)

// BalanceLookup resolves the current balance of the account holding iban.
type BalanceLookup func(ctx context.Context, iban string) (decimal.Decimal, error)

// Func computes the amount to transfer for an allocation given the budget it may use.
// A zero result means no transfer.
type Func func(ctx context.Context, a models.Allocation, budget decimal.Decimal, lookup BalanceLookup) (decimal.Decimal, error)

var registry = map[models.Strategy]Func{
	models.StrategyTopUp:      TopUp,
	models.StrategyFixed:      Fixed,
	models.StrategyPercentage: Percentage,
}

// Lookup returns the implementation for kind.
func Lookup(kind models.Strategy) (Func, error) {
	fn, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, kind)
	}
	return fn, nil
}

// TopUp brings the destination up to its target balance, bounded by the budget
// and by the allocation's max amount.
func TopUp(ctx context.Context, a models.Allocation, budget decimal.Decimal, lookup BalanceLookup) (decimal.Decimal, error) {
	balance, err := destinationBalance(ctx, a, lookup)
	if err != nil {
		return decimal.Zero, err
	}

	amount := a.TargetBalance.Sub(balance)
	amount = decimal.Min(amount, budget)
	// A max amount of zero counts as unset.
	if a.MaxAmount.Valid && a.MaxAmount.Decimal.IsPositive() {
		amount = decimal.Min(amount, a.MaxAmount.Decimal)
	}
	return checkMinimum(amount, a.MinimumAmount()), nil
}

// Fixed transfers the configured amount, bounded by the budget.
func Fixed(_ context.Context, a models.Allocation, budget decimal.Decimal, _ BalanceLookup) (decimal.Decimal, error) {
	amount := decimal.Min(a.FixedAmount, budget)
	return checkMinimum(amount, a.MinimumAmount()), nil
}

// Percentage transfers a share of the budget, rounded half-up to cents.
// The max amount is not applied.
func Percentage(_ context.Context, a models.Allocation, budget decimal.Decimal, _ BalanceLookup) (decimal.Decimal, error) {
	amount := budget.Mul(a.Percentage).Shift(-2).Round(2)
	return checkMinimum(amount, a.MinimumAmount()), nil
}

func destinationBalance(ctx context.Context, a models.Allocation, lookup BalanceLookup) (decimal.Decimal, error) {
	if a.CurrentBalance.Valid {
		return a.CurrentBalance.Decimal, nil
	}
	if lookup == nil {
		return decimal.Zero, fmt.Errorf("%w: no lookup for %s", ErrBalanceUnavailable, a.IBAN)
	}
	balance, err := lookup(ctx, a.IBAN)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrBalanceUnavailable, a.IBAN, err)
	}
	return balance, nil
}

// checkMinimum keeps amount only when it is strictly above minimum.
func checkMinimum(amount, minimum decimal.Decimal) decimal.Decimal {
	if amount.GreaterThan(minimum) {
		return amount
	}
	return decimal.Zero
}
