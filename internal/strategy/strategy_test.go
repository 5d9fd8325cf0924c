package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tijlk/money-flow/internal/models"
)

const testIBAN = "NL76BUNQ2063655073"

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fixedLookup(balance string) BalanceLookup {
	return func(ctx context.Context, iban string) (decimal.Decimal, error) {
		return dec(balance), nil
	}
}

func TestLookup(t *testing.T) {
	for _, kind := range models.Strategies {
		fn, err := Lookup(kind)
		require.NoError(t, err, kind)
		assert.NotNil(t, fn)
	}

	_, err := Lookup(models.Strategy("remainder"))
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestTopUp_ClampedToBudget(t *testing.T) {
	a := models.Allocation{Strategy: models.StrategyTopUp, IBAN: testIBAN, TargetBalance: dec("2000.00")}

	amount, err := TopUp(context.Background(), a, dec("1000.00"), fixedLookup("0.00"))

	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("1000.00")), "got %s", amount)
}

func TestTopUp_Difference(t *testing.T) {
	a := models.Allocation{Strategy: models.StrategyTopUp, IBAN: testIBAN, TargetBalance: dec("2000.00")}

	amount, err := TopUp(context.Background(), a, dec("1000.00"), fixedLookup("1970.00"))

	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("30.00")), "got %s", amount)
}

func TestTopUp_BelowMinimumAmount(t *testing.T) {
	a := models.Allocation{
		Strategy:      models.StrategyTopUp,
		IBAN:          testIBAN,
		TargetBalance: dec("2000.00"),
		MinAmount:     decimal.NewNullDecimal(dec("200.00")),
	}

	amount, err := TopUp(context.Background(), a, dec("1000.00"), fixedLookup("1900.00"))

	require.NoError(t, err)
	assert.True(t, amount.IsZero(), "got %s", amount)
}

func TestTopUp_DestinationAboveTarget(t *testing.T) {
	a := models.Allocation{Strategy: models.StrategyTopUp, IBAN: testIBAN, TargetBalance: dec("100.00")}

	amount, err := TopUp(context.Background(), a, dec("1000.00"), fixedLookup("250.00"))

	require.NoError(t, err)
	assert.True(t, amount.IsZero(), "got %s", amount)
}

func TestTopUp_MaxAmount(t *testing.T) {
	a := models.Allocation{
		Strategy:      models.StrategyTopUp,
		IBAN:          testIBAN,
		TargetBalance: dec("2000.00"),
		MaxAmount:     decimal.NewNullDecimal(dec("150.00")),
	}

	amount, err := TopUp(context.Background(), a, dec("1000.00"), fixedLookup("0.00"))

	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("150.00")), "got %s", amount)
}

func TestTopUp_ZeroMaxAmountIsUnset(t *testing.T) {
	a := models.Allocation{
		Strategy:      models.StrategyTopUp,
		IBAN:          testIBAN,
		TargetBalance: dec("400.00"),
		MaxAmount:     decimal.NewNullDecimal(decimal.Zero),
	}

	amount, err := TopUp(context.Background(), a, dec("1000.00"), fixedLookup("100.00"))

	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("300.00")), "got %s", amount)
}

func TestTopUp_UsesKnownCurrentBalance(t *testing.T) {
	a := models.Allocation{
		Strategy:       models.StrategyTopUp,
		IBAN:           testIBAN,
		TargetBalance:  dec("500.00"),
		CurrentBalance: decimal.NewNullDecimal(dec("420.00")),
	}
	lookup := func(ctx context.Context, iban string) (decimal.Decimal, error) {
		t.Fatal("lookup should not be called when the current balance is known")
		return decimal.Zero, nil
	}

	amount, err := TopUp(context.Background(), a, dec("1000.00"), lookup)

	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("80.00")), "got %s", amount)
}

func TestTopUp_BalanceUnavailable(t *testing.T) {
	a := models.Allocation{Strategy: models.StrategyTopUp, IBAN: testIBAN, TargetBalance: dec("500.00")}
	lookup := func(ctx context.Context, iban string) (decimal.Decimal, error) {
		return decimal.Zero, errors.New("account not found")
	}

	amount, err := TopUp(context.Background(), a, dec("1000.00"), lookup)
	assert.ErrorIs(t, err, ErrBalanceUnavailable)
	assert.True(t, amount.IsZero())

	_, err = TopUp(context.Background(), a, dec("1000.00"), nil)
	assert.ErrorIs(t, err, ErrBalanceUnavailable)
}

func TestFixed_ClampedToBudget(t *testing.T) {
	a := models.Allocation{Strategy: models.StrategyFixed, FixedAmount: dec("700.00")}

	amount, err := Fixed(context.Background(), a, dec("500.00"), nil)

	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("500.00")), "got %s", amount)
}

func TestFixed_ClampedAmountFailsMinimum(t *testing.T) {
	a := models.Allocation{
		Strategy:    models.StrategyFixed,
		FixedAmount: dec("1000.00"),
		MinAmount:   decimal.NewNullDecimal(dec("500.01")),
	}

	amount, err := Fixed(context.Background(), a, dec("500.00"), nil)

	require.NoError(t, err)
	assert.True(t, amount.IsZero(), "got %s", amount)
}

func TestMinimumAmount_IsStrict(t *testing.T) {
	a := models.Allocation{
		Strategy:    models.StrategyFixed,
		FixedAmount: dec("250.00"),
		MinAmount:   decimal.NewNullDecimal(dec("250.00")),
	}

	amount, err := Fixed(context.Background(), a, dec("1000.00"), nil)
	require.NoError(t, err)
	assert.True(t, amount.IsZero(), "amount equal to min_amount must be rejected, got %s", amount)

	a.MinAmount = decimal.NewNullDecimal(dec("249.99"))
	amount, err = Fixed(context.Background(), a, dec("1000.00"), nil)
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("250.00")), "got %s", amount)
}

func TestFixed_ZeroAmount(t *testing.T) {
	a := models.Allocation{Strategy: models.StrategyFixed, FixedAmount: decimal.Zero}

	amount, err := Fixed(context.Background(), a, dec("1000.00"), nil)

	require.NoError(t, err)
	assert.True(t, amount.IsZero())
}

func TestPercentage(t *testing.T) {
	cases := []struct {
		name       string
		budget     string
		percentage string
		expected   string
	}{
		{"ten percent", "500.00", "10", "50.00"},
		{"fifty percent", "500.00", "50", "250.00"},
		{"everything", "500.00", "100", "500.00"},
		{"rounds half up", "0.05", "50", "0.03"},
		{"rounds down", "100.01", "33.33", "33.33"},
		{"zero percent", "500.00", "0", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := models.Allocation{Strategy: models.StrategyPercentage, Percentage: dec(tc.percentage)}

			amount, err := Percentage(context.Background(), a, dec(tc.budget), nil)

			require.NoError(t, err)
			assert.True(t, amount.Equal(dec(tc.expected)), "expected %s, got %s", tc.expected, amount)
		})
	}
}

// max_amount only bounds top-ups; percentage and fixed ignore it.
func TestMaxAmount_OnlyAppliesToTopUp(t *testing.T) {
	maxAmount := decimal.NewNullDecimal(dec("10.00"))

	pct := models.Allocation{Strategy: models.StrategyPercentage, Percentage: dec("50"), MaxAmount: maxAmount}
	amount, err := Percentage(context.Background(), pct, dec("500.00"), nil)
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("250.00")), "got %s", amount)

	fixed := models.Allocation{Strategy: models.StrategyFixed, FixedAmount: dec("100.00"), MaxAmount: maxAmount}
	amount, err = Fixed(context.Background(), fixed, dec("500.00"), nil)
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("100.00")), "got %s", amount)
}

func TestStrategies_AreIdempotent(t *testing.T) {
	a := models.Allocation{
		Strategy:      models.StrategyTopUp,
		IBAN:          testIBAN,
		TargetBalance: dec("750.00"),
		Percentage:    dec("12.5"),
		FixedAmount:   dec("75.00"),
	}
	lookup := fixedLookup("100.00")
	budget := dec("640.00")

	for _, kind := range models.Strategies {
		fn, err := Lookup(kind)
		require.NoError(t, err)

		first, err := fn(context.Background(), a, budget, lookup)
		require.NoError(t, err)
		second, err := fn(context.Background(), a, budget, lookup)
		require.NoError(t, err)

		assert.True(t, first.Equal(second), "%s: %s != %s", kind, first, second)
	}
}
