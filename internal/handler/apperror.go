package handler

import "net/http"

type AppError struct {
	Status  int
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken  = &AppError{http.StatusUnauthorized, "Missing Authorization Header"}
	ErrInvalidToken  = &AppError{http.StatusUnprocessableEntity, "Invalid token"}
	ErrTokenExpired  = &AppError{http.StatusUnauthorized, "Token has expired"}
	ErrTokenRevoked  = &AppError{http.StatusUnauthorized, "Token has been revoked"}
	ErrNoData        = &AppError{http.StatusBadRequest, "No data provided"}
	ErrNotFound      = &AppError{http.StatusNotFound, "Not found"}
	ErrInternalError = &AppError{http.StatusInternalServerError, "An unexpected error occurred"}

	ErrCredentialsRequired = &AppError{http.StatusBadRequest, "Username and password are required"}
	ErrPasswordsRequired   = &AppError{http.StatusBadRequest, "Old and new passwords are required"}
	ErrUsernameRequired    = &AppError{http.StatusBadRequest, "Username is required"}
	ErrAmountRequired      = &AppError{http.StatusBadRequest, "Amount is required"}
	ErrTransferFields      = &AppError{http.StatusBadRequest, "From account, to account, and amount are required"}
	ErrInvalidDate         = &AppError{http.StatusBadRequest, "Invalid date format"}
	ErrIdempotencyConflict = &AppError{http.StatusConflict, "Idempotency key already used with a different request"}
	ErrIdempotencyInFlight = &AppError{http.StatusConflict, "A request with this idempotency key is still in progress"}

	ErrUsernameTaken       = &AppError{http.StatusConflict, "Username already exists"}
	ErrEmailTaken          = &AppError{http.StatusConflict, "Email already registered"}
	ErrInvalidCredentials  = &AppError{http.StatusUnauthorized, "Invalid username or password"}
	ErrUserInactive        = &AppError{http.StatusForbidden, "Account is deactivated"}
	ErrUserNotFound        = &AppError{http.StatusNotFound, "User not found"}
	ErrInvalidOldPassword  = &AppError{http.StatusUnauthorized, "Invalid old password"}
	ErrEmailMismatch       = &AppError{http.StatusBadRequest, "Email does not match"}
	ErrAccountNotFound     = &AppError{http.StatusNotFound, "Account not found"}
	ErrAccountsNotFound    = &AppError{http.StatusNotFound, "One or both accounts not found"}
	ErrInvalidAccountType  = &AppError{http.StatusBadRequest, "Invalid account type"}
	ErrInvalidCurrency     = &AppError{http.StatusBadRequest, "Invalid currency"}
	ErrInsufficientBalance = &AppError{http.StatusBadRequest, "Insufficient balance"}
	ErrSelfTransfer        = &AppError{http.StatusBadRequest, "Cannot transfer to the same account"}
	ErrPositiveBalance     = &AppError{http.StatusBadRequest, "Cannot delete account with positive balance"}
	ErrTransactionNotFound = &AppError{http.StatusNotFound, "Transaction not found"}
)
