package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSender records deliveries and optionally fails.
type fakeSender struct {
	name     string
	err      error
	titles   []string
	messages []string
}

func (s *fakeSender) Send(ctx context.Context, title, message string) error {
	s.titles = append(s.titles, title)
	s.messages = append(s.messages, message)
	return s.err
}

func (s *fakeSender) Name() string { return s.name }

func TestNotify_EmptyEventListAllowsEverything(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventNoLiquidity, "t", "m"))
	assert.Len(t, sender.titles, 1)
}

func TestNotify_FiltersDisallowedEvents(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, []string{EventSettlementFailed}, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventSettlementCompleted, "t", "m"))
	assert.Empty(t, sender.titles, "filtered events must not reach senders")

	require.NoError(t, n.Notify(context.Background(), EventSettlementFailed, "t", "m"))
	assert.Len(t, sender.titles, 1)
}

func TestNotify_OneSenderFailureDoesNotBlockOthers(t *testing.T) {
	broken := &fakeSender{name: "broken", err: errors.New("boom")}
	healthy := &fakeSender{name: "healthy"}
	n := NewNotifier([]Sender{broken, healthy}, nil, testLogger())

	err := n.Notify(context.Background(), EventSettlementFailed, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Len(t, healthy.titles, 1, "remaining senders still receive the message")
}

func TestSettlementCompleted_NeverSurfacesDeliveryErrors(t *testing.T) {
	broken := &fakeSender{name: "broken", err: errors.New("boom")}
	n := NewNotifier([]Sender{broken}, nil, testLogger())

	// Must not panic or propagate; alerting is fire-and-forget.
	n.SettlementCompleted(context.Background(), domain.Transaction{ID: 42})
	n.SettlementFailed(context.Background(), domain.Transaction{ID: 42}, "timed out")
	n.DispatchFailed(context.Background(), 42, "resolver-alpha", "connection refused")
	assert.Len(t, broken.titles, 3)
}

func TestNotify_NoSendersIsNoop(t *testing.T) {
	n := NewNotifier(nil, nil, testLogger())
	assert.NoError(t, n.Notify(context.Background(), EventSettlementCompleted, "t", "m"))
}
