// Package notify provides a multi-channel notification system. Notifications
// are dispatched to all registered senders (Telegram, Discord, etc.) and can be
// filtered by event type so operators receive only the alerts they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

// Event types emitted by the coordinator.
const (
	EventSettlementCompleted = "settlement_completed"
	EventSettlementFailed    = "settlement_failed"
	EventDispatchFailed      = "dispatch_failed"
	EventNoLiquidity         = "no_liquidity"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It maintains a set
// of allowed event types; Notify only forwards messages whose event type is in
// the allowed set.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event types
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// events whose type appears in the events slice will be forwarded by Notify.
// If events is empty, all event types are allowed.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends a notification to all senders only if the event type is in the
// allowed list. If no events were configured (empty list), all events pass.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}

	return n.dispatch(ctx, title, message)
}

// SettlementCompleted reports a successful settlement. Delivery failures are
// logged by dispatch; settlement outcomes never depend on alerting.
func (n *Notifier) SettlementCompleted(ctx context.Context, tx domain.Transaction) {
	_ = n.Notify(ctx, EventSettlementCompleted,
		"Settlement completed",
		fmt.Sprintf("transaction %d (bundle %d, resolver %s) settled", tx.ID, tx.BundleID, tx.ResolverID),
	)
}

// SettlementFailed reports a terminal settlement failure.
func (n *Notifier) SettlementFailed(ctx context.Context, tx domain.Transaction, reason string) {
	_ = n.Notify(ctx, EventSettlementFailed,
		"Settlement failed",
		fmt.Sprintf("transaction %d (resolver %s): %s", tx.ID, tx.ResolverID, reason),
	)
}

// DispatchFailed reports that the execution directive never reached the
// winning resolver.
func (n *Notifier) DispatchFailed(ctx context.Context, assignmentID uint64, resolverID string, reason string) {
	_ = n.Notify(ctx, EventDispatchFailed,
		"Assignment dispatch failed",
		fmt.Sprintf("assignment %d to resolver %s: %s", assignmentID, resolverID, reason),
	)
}

// dispatch iterates over all senders and sends the notification. Errors from
// individual senders are collected and returned as a combined error; a single
// sender failure does not prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
