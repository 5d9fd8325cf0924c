package engine

import (
	"context"

	"github.com/shopspring/decimal"
)

type cachedBalance struct {
	balance decimal.Decimal
	err     error
}

// balanceCache is a read-through cache over a BalanceSource. A destination is
// queried at most once per run; failures are cached as well. The source is
// expected to answer from a single account listing (see
// services.AccountSnapshot), so every destination sees the same moment.
type balanceCache struct {
	source  BalanceSource
	entries map[string]cachedBalance
}

func newBalanceCache(source BalanceSource) *balanceCache {
	return &balanceCache{source: source, entries: make(map[string]cachedBalance)}
}

func (c *balanceCache) lookup(ctx context.Context, iban string) (decimal.Decimal, error) {
	if entry, ok := c.entries[iban]; ok {
		return entry.balance, entry.err
	}
	balance, err := c.source.GetBalanceByIBAN(ctx, iban)
	c.entries[iban] = cachedBalance{balance: balance, err: err}
	return balance, err
}
