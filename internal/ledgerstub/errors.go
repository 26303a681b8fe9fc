package ledgerstub

import "errors"

var (
	ErrUsernameTaken       = errors.New("username already exists")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUserInactive        = errors.New("user is deactivated")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidOldPassword  = errors.New("invalid old password")
	ErrEmailMismatch       = errors.New("email does not match")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountsNotFound    = errors.New("one or both accounts not found")
	ErrInvalidAccountType  = errors.New("invalid account type")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSelfTransfer        = errors.New("cannot transfer to the same account")
	ErrTokenRevoked        = errors.New("token has been revoked")
	ErrPositiveBalance     = errors.New("cannot delete account with positive balance")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// ValidationError is an input rule violation; Message is shown to the caller
// as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
