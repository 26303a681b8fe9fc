package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/josh-kwaku/grey-bank-client/internal/domain"
)

// ErrSchema marks a 2xx response whose payload does not match the expected
// shape.
var ErrSchema = errors.New("invalid response payload")

type HTTPError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Body    []byte
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// IsAuth reports whether the ledger rejected the credentials rather than the
// operation. The token layer answers 422 for malformed tokens.
func (e *HTTPError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusUnprocessableEntity
}

type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Classify maps a gateway error onto the failure taxonomy. fallback is the
// message shown when the ledger supplied none, and always for transport and
// schema failures.
func Classify(err error, fallback string) *domain.Failure {
	if err == nil {
		return nil
	}

	var f *domain.Failure
	if errors.As(err, &f) {
		return f
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		msg := httpErr.Message
		if msg == "" {
			msg = fallback
		}
		if httpErr.IsAuth() {
			return domain.AuthFailure(msg, err)
		}
		return domain.Remote(msg, err)
	}

	var tErr *TransportError
	if errors.As(err, &tErr) {
		return domain.Network(fallback, err)
	}

	return domain.Remote(fallback, err)
}
