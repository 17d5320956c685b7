package settlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

// fakeClock advances instantly so the poll loop runs without real sleeps.
type fakeClock struct {
	now    time.Time
	sleeps int
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	c.sleeps++
	return ctx.Err()
}

// scriptedLedger returns one response per call, repeating the last entry.
type scriptedLedger struct {
	responses []func() (domain.Transaction, error)
	calls     int
}

func (l *scriptedLedger) GetTransaction(ctx context.Context, id uint64) (domain.Transaction, error) {
	i := l.calls
	if i >= len(l.responses) {
		i = len(l.responses) - 1
	}
	l.calls++
	return l.responses[i]()
}

func tx(status domain.TransactionStatus) func() (domain.Transaction, error) {
	return func() (domain.Transaction, error) {
		return domain.Transaction{ID: 42, Status: status, ResolverID: "resolver-alpha"}, nil
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWatcher(ledger TransactionGetter, maxAttempts int) (*Watcher, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_756_700_000, 0)}
	w := NewWatcher(ledger, clock, RetryPolicy{Interval: 2 * time.Second, MaxAttempts: maxAttempts}, testLogger())
	return w, clock
}

func TestWatch_PollsToCompleted(t *testing.T) {
	ledger := &scriptedLedger{responses: []func() (domain.Transaction, error){
		tx(domain.StatusFundsLocked),
		tx(domain.StatusInProgress),
		tx(domain.StatusAssetsTransferred),
		tx(domain.StatusCompleted),
	}}
	w, _ := newTestWatcher(ledger, 30)

	var transitions []domain.TransactionStatus
	got, err := w.Watch(context.Background(), 42, func(tx domain.Transaction) {
		transitions = append(transitions, tx.Status)
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 4, ledger.calls)
	// One callback per distinct status, terminal included.
	assert.Equal(t, []domain.TransactionStatus{
		domain.StatusFundsLocked,
		domain.StatusInProgress,
		domain.StatusAssetsTransferred,
		domain.StatusCompleted,
	}, transitions)
}

func TestWatch_NoDuplicateTransitions(t *testing.T) {
	ledger := &scriptedLedger{responses: []func() (domain.Transaction, error){
		tx(domain.StatusInProgress),
		tx(domain.StatusInProgress),
		tx(domain.StatusInProgress),
		tx(domain.StatusCompleted),
	}}
	w, _ := newTestWatcher(ledger, 30)

	var transitions int
	_, err := w.Watch(context.Background(), 42, func(domain.Transaction) { transitions++ })

	require.NoError(t, err)
	assert.Equal(t, 2, transitions, "repeated polls of the same status must not re-fire")
}

func TestWatch_FailedReturnsSentinel(t *testing.T) {
	ledger := &scriptedLedger{responses: []func() (domain.Transaction, error){
		tx(domain.StatusFailed),
	}}
	w, _ := newTestWatcher(ledger, 30)

	got, err := w.Watch(context.Background(), 42, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSettlementFailed)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, 1, ledger.calls, "terminal state must stop polling immediately")
}

func TestWatch_TimedOutReturnsSentinel(t *testing.T) {
	ledger := &scriptedLedger{responses: []func() (domain.Transaction, error){
		tx(domain.StatusTimedOut),
	}}
	w, _ := newTestWatcher(ledger, 30)

	_, err := w.Watch(context.Background(), 42, nil)
	assert.ErrorIs(t, err, domain.ErrSettlementTimeout)
}

func TestWatch_BudgetExhaustion(t *testing.T) {
	ledger := &scriptedLedger{responses: []func() (domain.Transaction, error){
		tx(domain.StatusInProgress),
	}}
	w, clock := newTestWatcher(ledger, 5)

	got, err := w.Watch(context.Background(), 42, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrWatchTimeout)
	assert.Equal(t, domain.StatusInProgress, got.Status)
	assert.Equal(t, 5, ledger.calls)
	assert.Equal(t, 4, clock.sleeps, "no sleep after the final attempt")
}

func TestWatch_TransientErrorsConsumeAttempts(t *testing.T) {
	boom := errors.New("connection refused")
	ledger := &scriptedLedger{responses: []func() (domain.Transaction, error){
		func() (domain.Transaction, error) { return domain.Transaction{}, boom },
		func() (domain.Transaction, error) { return domain.Transaction{}, boom },
		tx(domain.StatusCompleted),
	}}
	w, _ := newTestWatcher(ledger, 30)

	got, err := w.Watch(context.Background(), 42, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 3, ledger.calls)
}

func TestWatch_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ledger := &scriptedLedger{responses: []func() (domain.Transaction, error){
		func() (domain.Transaction, error) {
			cancel()
			return domain.Transaction{ID: 42, Status: domain.StatusInProgress}, nil
		},
	}}
	w, _ := newTestWatcher(ledger, 30)

	_, err := w.Watch(ctx, 42, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
