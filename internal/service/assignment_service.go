package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xfusionlabs/coordinator/internal/domain"
	"github.com/xfusionlabs/coordinator/internal/resolver"
)

// dispatchTimeout bounds the single execute call to the winning agent.
const dispatchTimeout = 30 * time.Second

// Dispatcher sends the execution directive to a resolver agent.
type Dispatcher interface {
	Execute(ctx context.Context, agent domain.ResolverInfo, assignmentID uint64) error
}

// SettlementWatcher polls a transaction to its terminal state.
type SettlementWatcher interface {
	Watch(ctx context.Context, txID uint64, onTransition func(domain.Transaction)) (domain.Transaction, error)
}

// StatusPublisher pushes settlement status transitions to live subscribers.
type StatusPublisher interface {
	PublishStatus(tx domain.Transaction)
}

// SettlementNotifier receives terminal settlement outcomes for out-of-band
// alerting.
type SettlementNotifier interface {
	SettlementCompleted(ctx context.Context, tx domain.Transaction)
	SettlementFailed(ctx context.Context, tx domain.Transaction, reason string)
	DispatchFailed(ctx context.Context, assignmentID uint64, resolverID string, reason string)
}

// AssignmentService dispatches accepted assignments to their winning agent
// and follows the resulting settlement to a terminal state.
type AssignmentService struct {
	ledger    LedgerGateway
	dir       *resolver.Directory
	agents    Dispatcher
	watcher   SettlementWatcher
	rounds    domain.RoundStore
	publisher StatusPublisher
	notifier  SettlementNotifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewAssignmentService creates an AssignmentService. publisher and notifier
// may be nil when the server surface or alerting is disabled.
func NewAssignmentService(
	ledger LedgerGateway,
	dir *resolver.Directory,
	agents Dispatcher,
	watcher SettlementWatcher,
	rounds domain.RoundStore,
	publisher StatusPublisher,
	notifier SettlementNotifier,
	logger *slog.Logger,
) *AssignmentService {
	return &AssignmentService{
		ledger:    ledger,
		dir:       dir,
		agents:    agents,
		watcher:   watcher,
		rounds:    rounds,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "assignment_service")),
		now:       time.Now,
	}
}

// Execute dispatches the assignment to its winning agent exactly once, then
// watches the ledger transaction until it settles. The returned result
// reports the terminal outcome; dispatch failures short-circuit without a
// watch since the agent never started.
func (s *AssignmentService) Execute(ctx context.Context, assignmentID uint64) (domain.ExecutionResult, error) {
	assignment, err := s.ledger.GetAssignment(ctx, assignmentID)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("service: assignment %d: %w", assignmentID, err)
	}

	agent, ok := s.dir.ByID(assignment.ResolverID)
	if !ok {
		return domain.ExecutionResult{}, fmt.Errorf("service: assignment %d names unknown resolver %q", assignmentID, assignment.ResolverID)
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	err = s.agents.Execute(dispatchCtx, agent, assignmentID)
	cancel()
	if err != nil {
		s.logger.ErrorContext(ctx, "assignment dispatch failed",
			slog.Uint64("assignment_id", assignmentID),
			slog.String("resolver", agent.Name),
			slog.String("error", err.Error()),
		)
		if s.notifier != nil {
			s.notifier.DispatchFailed(ctx, assignmentID, assignment.ResolverID, err.Error())
		}
		s.settleRound(ctx, assignmentID, domain.RoundFailed, err.Error())
		return domain.ExecutionResult{}, fmt.Errorf("service: dispatch assignment %d to %s: %w: %w",
			assignmentID, agent.Name, domain.ErrDispatchFailed, err)
	}

	s.logger.InfoContext(ctx, "assignment dispatched",
		slog.Uint64("assignment_id", assignmentID),
		slog.String("resolver", agent.Name),
	)
	if s.rounds != nil {
		if err := s.rounds.UpdateStatus(ctx, assignmentID, domain.RoundDispatched); err != nil {
			s.logger.WarnContext(ctx, "round status update failed",
				slog.Uint64("assignment_id", assignmentID),
				slog.String("error", err.Error()),
			)
		}
	}

	tx, watchErr := s.watcher.Watch(ctx, assignmentID, func(tx domain.Transaction) {
		if s.publisher != nil {
			s.publisher.PublishStatus(tx)
		}
	})

	switch {
	case watchErr == nil:
		s.settleRound(ctx, assignmentID, domain.RoundCompleted, "")
		if s.notifier != nil {
			s.notifier.SettlementCompleted(ctx, tx)
		}
		return domain.ExecutionResult{Success: true, Message: "settlement completed"}, nil

	case errors.Is(watchErr, domain.ErrSettlementTimeout):
		s.settleRound(ctx, assignmentID, domain.RoundTimedOut, watchErr.Error())
		if s.notifier != nil {
			s.notifier.SettlementFailed(ctx, tx, "timed out")
		}
		return domain.ExecutionResult{Success: false, Message: "settlement timed out"}, watchErr

	case errors.Is(watchErr, domain.ErrSettlementFailed):
		s.settleRound(ctx, assignmentID, domain.RoundFailed, watchErr.Error())
		if s.notifier != nil {
			s.notifier.SettlementFailed(ctx, tx, "failed on ledger")
		}
		return domain.ExecutionResult{Success: false, Message: "settlement failed"}, watchErr

	default:
		// Watch budget exhausted or context cancelled. The ledger transaction
		// may still settle; its own timeout recovery is the backstop.
		s.settleRound(ctx, assignmentID, domain.RoundFailed, watchErr.Error())
		if s.notifier != nil {
			s.notifier.SettlementFailed(ctx, tx, watchErr.Error())
		}
		return domain.ExecutionResult{Success: false, Message: "settlement outcome unknown"}, watchErr
	}
}

// settleRound records the terminal round outcome. Best effort, same policy
// as inserts.
func (s *AssignmentService) settleRound(ctx context.Context, assignmentID uint64, status domain.RoundStatus, errMsg string) {
	if s.rounds == nil {
		return
	}
	if err := s.rounds.MarkSettled(ctx, assignmentID, status, errMsg, s.now()); err != nil {
		s.logger.WarnContext(ctx, "round settle failed",
			slog.Uint64("assignment_id", assignmentID),
			slog.String("error", err.Error()),
		)
	}
}
