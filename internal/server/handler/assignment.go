package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xfusionlabs/coordinator/internal/domain"
)

// AssignmentExecutor dispatches an assignment and follows its settlement.
type AssignmentExecutor interface {
	Execute(ctx context.Context, assignmentID uint64) (domain.ExecutionResult, error)
}

// AssignmentHandler serves the assignment execution endpoint.
type AssignmentHandler struct {
	assignments AssignmentExecutor
	logger      *slog.Logger
}

// NewAssignmentHandler creates an AssignmentHandler.
func NewAssignmentHandler(assignments AssignmentExecutor, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		assignments: assignments,
		logger:      logger.With(slog.String("handler", "assignment")),
	}
}

// executeRequest is the inbound execution request body.
type executeRequest struct {
	AssignmentID uint64 `json:"assignment_id"`
}

// Execute dispatches the assignment to its winning resolver and blocks until
// settlement reaches a terminal state.
// POST /api/assignment/execute
func (h *AssignmentHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.AssignmentID == 0 {
		writeError(w, http.StatusBadRequest, "assignment_id is required")
		return
	}

	result, err := h.assignments.Execute(r.Context(), req.AssignmentID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "assignment execution failed",
			slog.Uint64("assignment_id", req.AssignmentID),
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "assignment not found")
		case errors.Is(err, domain.ErrDispatchFailed):
			writeError(w, http.StatusBadGateway, err.Error())
		case errors.Is(err, domain.ErrSettlementFailed),
			errors.Is(err, domain.ErrSettlementTimeout),
			errors.Is(err, domain.ErrWatchTimeout):
			// Settlement reached a terminal failure; the body still carries
			// the outcome.
			writeJSON(w, http.StatusOK, result)
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
