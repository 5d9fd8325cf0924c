package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tijlk/money-flow/internal/config"
	"github.com/tijlk/money-flow/internal/models"
)

// ErrTransferFailed is returned when a transfer could not be submitted within the retry budget.
var ErrTransferFailed = errors.New("transfer failed")

// PaymentCreator submits a single payment to the bank.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (string, error)
}

// RetryPolicy bounds how often a payment submission is attempted.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	// SettleDelay is waited after every successful submission to stay under the bank's rate limit.
	SettleDelay time.Duration
}

// PaymentGateway executes transfer instructions against the bank.
type PaymentGateway struct {
	bank    PaymentCreator
	retry   RetryPolicy
	breaker *gobreaker.CircuitBreaker
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewPaymentGateway creates a PaymentGateway from the payment configuration.
func NewPaymentGateway(bank PaymentCreator, cfg config.PaymentConfig) *PaymentGateway {
	maxAttempts := max(cfg.MaxAttempts, 1)
	// The breaker is shared by all submissions of a run; by default one
	// transfer exhausting its attempts leaves it closed for the next one.
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = uint32(2 * maxAttempts)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bank-payments",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("payment circuit breaker changed state", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &PaymentGateway{
		bank: bank,
		retry: RetryPolicy{
			MaxAttempts: maxAttempts,
			Delay:       cfg.RetryDelay,
			SettleDelay: cfg.SettleDelay,
		},
		breaker: breaker,
		sleep:   sleepWithContext,
	}
}

// Submit logs the instruction and, unless it is simulated, submits it to the bank.
func (g *PaymentGateway) Submit(ctx context.Context, instruction models.TransferInstruction) error {
	msg := "transferring"
	if instruction.Simulated {
		msg = "simulating transfer"
	}
	slog.Info(msg,
		"amount", instruction.Amount.StringFixed(2),
		"share", instruction.ShareOfOriginal(),
		"to", instruction.DestinationAlias,
		"account_type", instruction.DestinationType,
		"iban", instruction.DestinationIBAN,
	)
	if instruction.Simulated {
		return nil
	}

	req := PaymentRequest{
		FromAccountID: instruction.SourceAccountID,
		Amount:        instruction.Amount,
		ToIBAN:        instruction.DestinationIBAN,
		ToName:        instruction.DestinationAlias,
		Description:   instruction.Description,
	}

	var lastErr error
	for attempt := 1; attempt <= g.retry.MaxAttempts; attempt++ {
		result, err := g.breaker.Execute(func() (any, error) {
			return g.bank.CreatePayment(ctx, req)
		})
		if err == nil {
			slog.Info("transfer submitted", "to", instruction.DestinationAlias, "payment_id", result, "attempt", attempt)
			if err := g.sleep(ctx, g.retry.SettleDelay); err != nil {
				slog.Warn("settle delay interrupted", "error", err)
			}
			return nil
		}

		lastErr = err
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			slog.Error("payment circuit breaker open, not retrying", "to", instruction.DestinationAlias, "error", err)
			break
		}

		slog.Warn("transfer attempt failed",
			"to", instruction.DestinationAlias,
			"attempt", attempt,
			"max_attempts", g.retry.MaxAttempts,
			"error", err,
		)
		if attempt == g.retry.MaxAttempts {
			break
		}
		if err := g.sleep(ctx, g.retry.Delay); err != nil {
			lastErr = err
			break
		}
	}

	slog.Error("giving up on transfer", "to", instruction.DestinationAlias, "amount", instruction.Amount.StringFixed(2), "error", lastErr)
	return fmt.Errorf("%w: %s to %s: %v", ErrTransferFailed, instruction.Amount.StringFixed(2), instruction.DestinationAlias, lastErr)
}

// sleepWithContext waits for d unless ctx is done first.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}
