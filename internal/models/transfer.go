package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransferInstruction is a single payment issued by an allocation run.
type TransferInstruction struct {
	SourceAccountID  string              `json:"source_account_id"`
	DestinationAlias string              `json:"destination_alias"`
	DestinationType  string              `json:"destination_type"`
	DestinationIBAN  string              `json:"destination_iban"`
	Amount           decimal.Decimal     `json:"amount"`
	Description      string              `json:"description"`
	Simulated        bool                `json:"simulated"`
	OriginalTotal    decimal.NullDecimal `json:"original_total"`
}

// ShareOfOriginal renders the amount as a percentage of the run's starting
// balance, e.g. "(12.5%)". It is empty when the starting balance is unknown or zero.
func (t TransferInstruction) ShareOfOriginal() string {
	if !t.OriginalTotal.Valid || t.OriginalTotal.Decimal.IsZero() {
		return ""
	}
	share := t.Amount.Div(t.OriginalTotal.Decimal).Mul(decimal.NewFromInt(100))
	return fmt.Sprintf("(%s%%)", share.StringFixed(1))
}

// TransferStatus is the observed result of submitting an instruction.
type TransferStatus string

const (
	TransferSimulated TransferStatus = "simulated"
	TransferSubmitted TransferStatus = "submitted"
	TransferFailed    TransferStatus = "failed"
)

// TransferOutcome pairs an issued instruction with its submission result.
type TransferOutcome struct {
	AllocationID string              `json:"allocation_id,omitempty"`
	Strategy     Strategy            `json:"strategy"`
	Priority     int                 `json:"priority"`
	Instruction  TransferInstruction `json:"instruction"`
	Status       TransferStatus      `json:"status"`
	Error        string              `json:"error,omitempty"`
}

// SkippedAllocation records an allocation that produced no instruction because of an error.
type SkippedAllocation struct {
	AllocationID string `json:"allocation_id,omitempty"`
	Description  string `json:"description"`
	Reason       string `json:"reason"`
}

// RunReport summarises one allocation run.
type RunReport struct {
	RunID         string              `json:"run_id"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    time.Time           `json:"finished_at"`
	Simulated     bool                `json:"simulated"`
	OriginalTotal decimal.Decimal     `json:"original_total"`
	Remainder     decimal.Decimal     `json:"remainder"`
	Transfers     []TransferOutcome   `json:"transfers"`
	Skipped       []SkippedAllocation `json:"skipped"`
}

// TotalTransferred sums the amounts of all issued instructions.
func (r *RunReport) TotalTransferred() decimal.Decimal {
	total := decimal.Zero
	for _, t := range r.Transfers {
		total = total.Add(t.Instruction.Amount)
	}
	return total
}

// Succeeded is false when any submission failed.
func (r *RunReport) Succeeded() bool {
	for _, t := range r.Transfers {
		if t.Status == TransferFailed {
			return false
		}
	}
	return true
}
