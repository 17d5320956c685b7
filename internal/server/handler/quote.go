package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/xfusionlabs/coordinator/internal/domain"
	"github.com/xfusionlabs/coordinator/internal/service"
)

// QuoteRequester runs the quote auction and resolves quote status.
type QuoteRequester interface {
	RequestQuote(ctx context.Context, intent domain.TradeIntent, user string) (domain.QuoteResult, error)
	GetQuoteStatus(ctx context.Context, quoteID string) (service.QuoteStatus, error)
}

// QuoteHandler serves the quote auction endpoints.
type QuoteHandler struct {
	quotes QuoteRequester
	logger *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler.
func NewQuoteHandler(quotes QuoteRequester, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{
		quotes: quotes,
		logger: logger.With(slog.String("handler", "quote")),
	}
}

// quoteRequest is the inbound auction request body.
type quoteRequest struct {
	BundleID     uint64 `json:"bundle_id"`
	Operation    string `json:"operation"`
	StableAmount uint64 `json:"stable_amount"`
	ShareAmount  uint64 `json:"share_amount"`
	User         string `json:"user"`
}

// RequestQuote runs one auction round and returns the accepted quote.
// POST /api/quote
func (h *QuoteHandler) RequestQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.User == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	intent := domain.TradeIntent{
		BundleID: req.BundleID,
		Operation: domain.Operation{
			Kind:         domain.OperationKind(req.Operation),
			StableAmount: req.StableAmount,
			ShareAmount:  req.ShareAmount,
		},
	}
	if err := intent.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.quotes.RequestQuote(r.Context(), intent, req.User)
	if err != nil {
		h.logger.WarnContext(r.Context(), "quote request failed",
			slog.Uint64("bundle_id", req.BundleID),
			slog.String("error", err.Error()),
		)
		writeError(w, quoteErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetQuote returns the live settlement status for a previously issued quote.
// GET /api/quote/{id}
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	quoteID := r.PathValue("id")
	if quoteID == "" {
		writeError(w, http.StatusBadRequest, "quote id is required")
		return
	}

	status, err := h.quotes.GetQuoteStatus(r.Context(), quoteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "quote not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "quote status lookup failed",
			slog.String("quote_id", quoteID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "quote status lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// quoteErrorStatus maps auction failures onto HTTP statuses.
func quoteErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNoLiquidity):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrQuoteExpired),
		errors.Is(err, domain.ErrDuplicateNonce),
		errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
