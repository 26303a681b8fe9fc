package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount a single request may carry.
var MaxAmount = decimal.NewFromInt(1_000_000)

// maxAmountLen bounds the raw input; anything longer cannot be a sane amount.
const maxAmountLen = 32

// ParseAmount parses user input as a strictly positive decimal in plain
// notation, no larger than MaxAmount. Exponent forms are rejected so the
// amount always formats back to roughly the size it was typed in.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || len(s) > maxAmountLen || strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("ParseAmount: %w", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ParseAmount: %q: %w", raw, ErrInvalidAmount)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("ParseAmount: %w", ErrInvalidAmount)
	}
	if d.GreaterThan(MaxAmount) {
		return decimal.Zero, fmt.Errorf("ParseAmount: %s: %w", s, ErrAmountTooLarge)
	}
	return d, nil
}
