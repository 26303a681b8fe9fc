package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/josh-kwaku/grey-bank-client/internal/ledgerstub"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondMessage(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, messageResponse{Message: message})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError) {
	RespondJSON(w, appErr.Status, errorResponse{Error: appErr.Message})
}

func RespondDomainError(w http.ResponseWriter, err error) {
	var verr *ledgerstub.ValidationError
	if errors.As(err, &verr) {
		RespondAppError(w, &AppError{Status: http.StatusBadRequest, Message: verr.Message})
		return
	}

	var appErr *AppError
	switch {
	case errors.Is(err, ledgerstub.ErrUsernameTaken):
		appErr = ErrUsernameTaken
	case errors.Is(err, ledgerstub.ErrEmailTaken):
		appErr = ErrEmailTaken
	case errors.Is(err, ledgerstub.ErrInvalidCredentials):
		appErr = ErrInvalidCredentials
	case errors.Is(err, ledgerstub.ErrUserInactive):
		appErr = ErrUserInactive
	case errors.Is(err, ledgerstub.ErrUserNotFound):
		appErr = ErrUserNotFound
	case errors.Is(err, ledgerstub.ErrInvalidOldPassword):
		appErr = ErrInvalidOldPassword
	case errors.Is(err, ledgerstub.ErrEmailMismatch):
		appErr = ErrEmailMismatch
	case errors.Is(err, ledgerstub.ErrAccountNotFound):
		appErr = ErrAccountNotFound
	case errors.Is(err, ledgerstub.ErrAccountsNotFound):
		appErr = ErrAccountsNotFound
	case errors.Is(err, ledgerstub.ErrInvalidAccountType):
		appErr = ErrInvalidAccountType
	case errors.Is(err, ledgerstub.ErrInvalidCurrency):
		appErr = ErrInvalidCurrency
	case errors.Is(err, ledgerstub.ErrInsufficientBalance):
		appErr = ErrInsufficientBalance
	case errors.Is(err, ledgerstub.ErrSelfTransfer):
		appErr = ErrSelfTransfer
	case errors.Is(err, ledgerstub.ErrPositiveBalance):
		appErr = ErrPositiveBalance
	case errors.Is(err, ledgerstub.ErrTransactionNotFound):
		appErr = ErrTransactionNotFound
	default:
		slog.Error("unhandled ledger error", "error", err)
		appErr = ErrInternalError
	}

	RespondAppError(w, appErr)
}
