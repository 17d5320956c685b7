// Package settlement polls the ledger for a transaction until it reaches a
// terminal state. The watcher is the only component that loops on the
// ledger; everything upstream treats settlement as a single awaited outcome.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

// TransactionGetter is the slice of the ledger boundary the watcher needs.
type TransactionGetter interface {
	GetTransaction(ctx context.Context, id uint64) (domain.Transaction, error)
}

// Clock abstracts time for the poll loop so tests drive it without real
// sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy bounds the poll loop.
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultRetryPolicy polls every 2s for up to 30 attempts, so a settlement
// gets roughly a minute to land before the watcher gives up.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Interval: 2 * time.Second, MaxAttempts: 30}
}

// Watcher polls transactions to their terminal state.
type Watcher struct {
	ledger TransactionGetter
	clock  Clock
	policy RetryPolicy
	logger *slog.Logger
}

// NewWatcher creates a Watcher. A nil clock uses the wall clock; a zero
// policy uses DefaultRetryPolicy.
func NewWatcher(ledger TransactionGetter, clock Clock, policy RetryPolicy, logger *slog.Logger) *Watcher {
	if clock == nil {
		clock = realClock{}
	}
	if policy.Interval <= 0 || policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Watcher{
		ledger: ledger,
		clock:  clock,
		policy: policy,
		logger: logger.With(slog.String("component", "settlement_watcher")),
	}
}

// Watch polls the transaction until it reaches a terminal state or the
// attempt budget runs out. onTransition fires once per observed status
// change, including the terminal one; it may be nil.
//
// Completed returns the final transaction and nil. Failed and TimedOut
// return the final transaction together with ErrSettlementFailed or
// ErrSettlementTimeout. Exhausting the budget without a terminal state
// returns the last observed transaction and ErrWatchTimeout. Transient
// ledger errors consume an attempt and the loop continues.
func (w *Watcher) Watch(ctx context.Context, txID uint64, onTransition func(domain.Transaction)) (domain.Transaction, error) {
	var (
		last     domain.Transaction
		lastSeen domain.TransactionStatus
	)

	for attempt := 1; attempt <= w.policy.MaxAttempts; attempt++ {
		tx, err := w.ledger.GetTransaction(ctx, txID)
		if err != nil {
			if ctx.Err() != nil {
				return last, fmt.Errorf("settlement: watch transaction %d: %w", txID, ctx.Err())
			}
			w.logger.WarnContext(ctx, "transaction poll failed",
				slog.Uint64("transaction_id", txID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		} else {
			last = tx
			if tx.Status != lastSeen {
				lastSeen = tx.Status
				w.logger.InfoContext(ctx, "settlement status changed",
					slog.Uint64("transaction_id", txID),
					slog.String("status", string(tx.Status)),
				)
				if onTransition != nil {
					onTransition(tx)
				}
			}

			switch tx.Status {
			case domain.StatusCompleted:
				return tx, nil
			case domain.StatusFailed:
				return tx, fmt.Errorf("settlement: transaction %d: %w", txID, domain.ErrSettlementFailed)
			case domain.StatusTimedOut:
				return tx, fmt.Errorf("settlement: transaction %d: %w", txID, domain.ErrSettlementTimeout)
			}
		}

		if attempt < w.policy.MaxAttempts {
			if err := w.clock.Sleep(ctx, w.policy.Interval); err != nil {
				return last, fmt.Errorf("settlement: watch transaction %d: %w", txID, err)
			}
		}
	}

	return last, fmt.Errorf("settlement: transaction %d still %q after %d attempts: %w",
		txID, last.Status, w.policy.MaxAttempts, domain.ErrWatchTimeout)
}
