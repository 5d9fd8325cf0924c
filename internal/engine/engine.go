// Package engine distributes the main account's balance over the configured
// allocations and issues the resulting transfers.
//
// Allocations are processed by ascending priority. Inside a priority group,
// fixed and top-up rules are settled first against the live remainder; the
// percentage rules then all take their share of the remainder as it stood
// after that first pass.
//
// Runs against the same source account must not overlap: two concurrent runs
// read the same balance and would both spend it.
package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tijlk/money-flow/internal/models"
	"github.com/tijlk/money-flow/internal/strategy"
)

// ErrSourceBalanceUnavailable aborts a run before any transfer is issued.
var ErrSourceBalanceUnavailable = errors.New("source balance unavailable")

// DefaultDescriptionPrefix is prepended to the allocation description on every payment.
const DefaultDescriptionPrefix = "Deel salaris voor"

// Directory supplies the allocation rules and the main account policy.
type Directory interface {
	ListAllocations(ctx context.Context) ([]models.Allocation, error)
	GetPolicy(ctx context.Context) (models.MainAccountPolicy, error)
}

// BalanceSource resolves account balances at the bank.
type BalanceSource interface {
	GetBalanceByID(ctx context.Context, accountID string) (decimal.Decimal, error)
	GetBalanceByIBAN(ctx context.Context, iban string) (decimal.Decimal, error)
}

// PaymentGateway executes transfer instructions.
type PaymentGateway interface {
	Submit(ctx context.Context, instruction models.TransferInstruction) error
}

// Options tune a single engine.
type Options struct {
	Simulate          bool
	DescriptionPrefix string
	Now               func() time.Time
	NewRunID          func() string
}

// Engine runs the allocation algorithm over injected collaborators.
type Engine struct {
	directory Directory
	balances  BalanceSource
	gateway   PaymentGateway
	opts      Options
}

// New creates an Engine.
func New(directory Directory, balances BalanceSource, gateway PaymentGateway, opts Options) *Engine {
	if opts.DescriptionPrefix == "" {
		opts.DescriptionPrefix = DefaultDescriptionPrefix
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = func() string { return uuid.New().String() }
	}
	return &Engine{directory: directory, balances: balances, gateway: gateway, opts: opts}
}

// Run distributes the main account's balance once. The returned error is set
// only when the run could not start; per-allocation problems and failed
// submissions are recorded in the report.
func (e *Engine) Run(ctx context.Context) (*models.RunReport, error) {
	allocations, err := e.directory.ListAllocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}

	policy, err := e.directory.GetPolicy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get main account policy: %w", err)
	}

	balance, err := e.balances.GetBalanceByID(ctx, policy.AccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: account %s: %v", ErrSourceBalanceUnavailable, policy.AccountID, err)
	}

	report := &models.RunReport{
		RunID:         e.opts.NewRunID(),
		StartedAt:     e.opts.Now(),
		Simulated:     e.opts.Simulate,
		OriginalTotal: balance,
		Transfers:     []models.TransferOutcome{},
		Skipped:       []models.SkippedAllocation{},
	}

	slog.Info("starting allocation run",
		"run_id", report.RunID,
		"to_sort", balance.StringFixed(2),
		"allocations", len(allocations),
		"simulate", e.opts.Simulate,
	)

	r := &run{
		engine:   e,
		policy:   policy,
		original: decimal.NewNullDecimal(balance),
		balances: newBalanceCache(e.balances),
		report:   report,
	}

	remainder := decimal.Max(balance, decimal.Zero)
	for _, group := range groupByPriority(allocations) {
		remainder = r.processGroup(ctx, group, remainder)
	}

	report.Remainder = remainder
	report.FinishedAt = e.opts.Now()

	slog.Info("allocation run complete",
		"run_id", report.RunID,
		"transfers", len(report.Transfers),
		"skipped", len(report.Skipped),
		"transferred", report.TotalTransferred().StringFixed(2),
		"remainder", remainder.StringFixed(2),
	)
	return report, nil
}

// groupByPriority stable-sorts by priority and splits into runs of equal priority.
func groupByPriority(allocations []models.Allocation) [][]models.Allocation {
	sorted := slices.Clone(allocations)
	slices.SortStableFunc(sorted, func(a, b models.Allocation) int {
		return cmp.Compare(a.Priority, b.Priority)
	})

	var groups [][]models.Allocation
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].Priority == sorted[i].Priority {
			j++
		}
		groups = append(groups, sorted[i:j])
		i = j
	}
	return groups
}

// run holds the state of one Engine.Run call.
type run struct {
	engine   *Engine
	policy   models.MainAccountPolicy
	original decimal.NullDecimal
	balances *balanceCache
	report   *models.RunReport
}

// processGroup settles one priority group and returns the remainder left after it.
func (r *run) processGroup(ctx context.Context, group []models.Allocation, remainder decimal.Decimal) decimal.Decimal {
	for _, a := range group {
		if a.Strategy != models.StrategyPercentage {
			remainder = r.process(ctx, a, remainder, remainder)
		}
	}

	groupBase := remainder
	for _, a := range group {
		if a.Strategy == models.StrategyPercentage {
			remainder = r.process(ctx, a, groupBase, remainder)
		}
	}
	return remainder
}

// process evaluates one allocation against budget and returns the new remainder.
func (r *run) process(ctx context.Context, a models.Allocation, budget, remainder decimal.Decimal) decimal.Decimal {
	compute, err := strategy.Lookup(a.Strategy)
	if err != nil {
		slog.Error("skipping allocation", "allocation", a.Description, "strategy", a.Strategy, "error", err)
		r.skip(a, err)
		return remainder
	}

	amount, err := compute(ctx, a, budget, r.balances.lookup)
	if err != nil {
		slog.Warn("no transfer for allocation", "allocation", a.Description, "strategy", a.Strategy, "error", err)
		r.skip(a, err)
		return remainder
	}

	amount = decimal.Min(amount, remainder)
	if !amount.IsPositive() {
		slog.Debug("nothing to transfer", "allocation", a.Description, "strategy", a.Strategy)
		return remainder
	}

	instruction := models.TransferInstruction{
		SourceAccountID:  r.policy.AccountID,
		DestinationAlias: a.Description,
		DestinationType:  a.AccountType,
		DestinationIBAN:  a.IBAN,
		Amount:           amount,
		Description:      r.engine.opts.DescriptionPrefix + " " + a.Description,
		Simulated:        r.engine.opts.Simulate,
		OriginalTotal:    r.original,
	}

	outcome := models.TransferOutcome{
		AllocationID: a.ID,
		Strategy:     a.Strategy,
		Priority:     a.Priority,
		Instruction:  instruction,
		Status:       models.TransferSubmitted,
	}
	if instruction.Simulated {
		outcome.Status = models.TransferSimulated
	}

	// The remainder is reduced whether or not the submission succeeds.
	if err := r.engine.gateway.Submit(ctx, instruction); err != nil {
		slog.Error("transfer submission failed",
			"allocation", a.Description,
			"amount", amount.StringFixed(2),
			"error", err,
		)
		outcome.Status = models.TransferFailed
		outcome.Error = err.Error()
	}
	r.report.Transfers = append(r.report.Transfers, outcome)

	return remainder.Sub(amount)
}

func (r *run) skip(a models.Allocation, err error) {
	r.report.Skipped = append(r.report.Skipped, models.SkippedAllocation{
		AllocationID: a.ID,
		Description:  a.Description,
		Reason:       err.Error(),
	})
}
