package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/squeeze/internal/cart"
	"github.com/fjod/squeeze/internal/directory"
	"github.com/fjod/squeeze/internal/payment"
	"github.com/fjod/squeeze/internal/repository"
	"github.com/fjod/squeeze/internal/session"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error       string      `json:"error"`
	Code        string      `json:"code,omitempty"`
	Details     string      `json:"details,omitempty"`
	Available   string      `json:"available,omitempty"`
	ManualEntry bool        `json:"manual_entry,omitempty"`
	Receipt     *ReceiptDTO `json:"receipt,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps domain errors to HTTP statuses.
func handleError(w http.ResponseWriter, err error) {
	var insufficient *payment.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:     insufficient.Error(),
			Code:      "insufficient_balance",
			Available: insufficient.Available.StringFixed(2),
		})
		return
	}

	var decodeErr *payment.DecodeError
	if errors.As(err, &decodeErr) {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:       decodeErr.Err.Error(),
			Code:        "invalid_qr_code",
			ManualEntry: decodeErr.ManualEntry,
		})
		return
	}

	var httpStatus int
	var code string

	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrUnknownProduct),
		errors.Is(err, repository.ErrBusinessNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, payment.ErrMissingRecipient),
		errors.Is(err, session.ErrIncompleteBusiness),
		errors.Is(err, session.ErrInvalidProduct),
		errors.Is(err, session.ErrNoRating),
		errors.Is(err, directory.ErrInvalidRating),
		errors.Is(err, cart.ErrEmptyCart):
		httpStatus = http.StatusUnprocessableEntity
		code = "validation_error"
	case errors.Is(err, session.ErrNoWallet):
		httpStatus = http.StatusUnauthorized
		code = "unauthenticated"
	case errors.Is(err, payment.ErrSubmissionInProgress),
		errors.Is(err, payment.ErrNotReady),
		errors.Is(err, session.ErrWrongScreen),
		errors.Is(err, session.ErrNoBusiness),
		errors.Is(err, session.ErrNoRatingTarget):
		httpStatus = http.StatusConflict
		code = "invalid_state"
	case errors.Is(err, payment.ErrPaymentFailed):
		httpStatus = http.StatusBadGateway
		code = "payment_failed"
	case errors.Is(err, gobreaker.ErrOpenState),
		errors.Is(err, gobreaker.ErrTooManyRequests):
		httpStatus = http.StatusServiceUnavailable
		code = "service_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}
