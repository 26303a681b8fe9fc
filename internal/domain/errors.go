package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmount       = errors.New("amount must be a positive number")
	ErrAmountTooLarge      = errors.New("amount cannot exceed 1,000,000")
	ErrAccountRequired     = errors.New("account is required")
	ErrDestRequired        = errors.New("destination account is required")
	ErrSelfTransfer        = errors.New("destination must differ from source")
	ErrUnknownKind         = errors.New("unknown transaction kind")
	ErrInvalidAccount      = errors.New("invalid account type")
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrNothingToUpdate     = errors.New("nothing to update")
	ErrTransactionRequired = errors.New("transaction is required")
	ErrDateRange           = errors.New("end date must not be before start date")
	ErrNotAuthenticated    = errors.New("not authenticated")
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindRemote
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindRemote:
		return "remote"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Kind sentinels, matched by errors.Is against any *Failure of that kind.
var (
	ErrValidation = &Failure{Kind: KindValidation, Message: "validation failed"}
	ErrAuth       = &Failure{Kind: KindAuth, Message: "authentication failed"}
	ErrRemote     = &Failure{Kind: KindRemote, Message: "operation rejected"}
	ErrNetwork    = &Failure{Kind: KindNetwork, Message: "network failure"}
)

// Failure is the outcome every session, directory and orchestrator operation
// reports instead of a bare error. Message is safe to show to the user.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Is(target error) bool {
	switch target {
	case ErrValidation, ErrAuth, ErrRemote, ErrNetwork:
		return f.Kind == target.(*Failure).Kind
	}
	return false
}

func Validation(err error) *Failure {
	return &Failure{Kind: KindValidation, Message: err.Error(), Err: err}
}

func AuthFailure(message string, err error) *Failure {
	return &Failure{Kind: KindAuth, Message: message, Err: err}
}

func Remote(message string, err error) *Failure {
	return &Failure{Kind: KindRemote, Message: message, Err: err}
}

func Network(message string, err error) *Failure {
	return &Failure{Kind: KindNetwork, Message: message, Err: err}
}

// AsFailure returns err as a *Failure, wrapping anything else as a remote
// failure carrying fallback.
func AsFailure(err error, fallback string) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: KindRemote, Message: fallback, Err: fmt.Errorf("%s: %w", fallback, err)}
}

func NotAuthenticated() *Failure {
	return AuthFailure("Please log in first", ErrNotAuthenticated)
}
