package engine

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tijlk/money-flow/internal/models"
)

// MockDirectory is a mock implementation of Directory
type MockDirectory struct {
	ListAllocationsFunc func(ctx context.Context) ([]models.Allocation, error)
	GetPolicyFunc       func(ctx context.Context) (models.MainAccountPolicy, error)
}

func (m *MockDirectory) ListAllocations(ctx context.Context) ([]models.Allocation, error) {
	if m.ListAllocationsFunc != nil {
		return m.ListAllocationsFunc(ctx)
	}
	return nil, nil
}

func (m *MockDirectory) GetPolicy(ctx context.Context) (models.MainAccountPolicy, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc(ctx)
	}
	return models.MainAccountPolicy{}, nil
}

// MockBalanceSource is a mock implementation of BalanceSource
type MockBalanceSource struct {
	GetBalanceByIDFunc   func(ctx context.Context, accountID string) (decimal.Decimal, error)
	GetBalanceByIBANFunc func(ctx context.Context, iban string) (decimal.Decimal, error)
	IBANCalls            []string
}

func (m *MockBalanceSource) GetBalanceByID(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if m.GetBalanceByIDFunc != nil {
		return m.GetBalanceByIDFunc(ctx, accountID)
	}
	return decimal.Zero, nil
}

func (m *MockBalanceSource) GetBalanceByIBAN(ctx context.Context, iban string) (decimal.Decimal, error) {
	m.IBANCalls = append(m.IBANCalls, iban)
	if m.GetBalanceByIBANFunc != nil {
		return m.GetBalanceByIBANFunc(ctx, iban)
	}
	return decimal.Zero, nil
}

// MockPaymentGateway is a mock implementation of PaymentGateway that records submissions
type MockPaymentGateway struct {
	SubmitFunc func(ctx context.Context, instruction models.TransferInstruction) error
	Submitted  []models.TransferInstruction
}

func (m *MockPaymentGateway) Submit(ctx context.Context, instruction models.TransferInstruction) error {
	m.Submitted = append(m.Submitted, instruction)
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, instruction)
	}
	return nil
}

// Amounts returns the submitted amounts in submission order.
func (m *MockPaymentGateway) Amounts() []string {
	amounts := make([]string, len(m.Submitted))
	for i, s := range m.Submitted {
		amounts[i] = s.Amount.StringFixed(2)
	}
	return amounts
}

// MockAccountBank is a mock bank that counts account listings
type MockAccountBank struct {
	ListAccountsFunc   func(ctx context.Context) ([]models.Account, error)
	GetBalanceByIDFunc func(ctx context.Context, accountID string) (decimal.Decimal, error)
	ListCalls          int
}

func (m *MockAccountBank) ListAccounts(ctx context.Context) ([]models.Account, error) {
	m.ListCalls++
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx)
	}
	return nil, nil
}

func (m *MockAccountBank) GetBalanceByID(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if m.GetBalanceByIDFunc != nil {
		return m.GetBalanceByIDFunc(ctx, accountID)
	}
	return decimal.Zero, nil
}
