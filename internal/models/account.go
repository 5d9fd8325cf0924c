package models

import (
	"github.com/shopspring/decimal"
)

// Account represents a monetary account listed by the bank.
type Account struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	IBAN        string          `json:"iban"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	Type        string          `json:"type"` // bank, joint or savings
}
