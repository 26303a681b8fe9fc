package ledgerstub

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	unsafeChars     = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "")
)

func sanitize(s string) string {
	return strings.TrimSpace(unsafeChars.Replace(s))
}

func validateUsername(username string) error {
	switch {
	case len(username) < 3:
		return invalid("username", "Username must be at least 3 characters long")
	case len(username) > 20:
		return invalid("username", "Username must be less than 20 characters")
	case !usernamePattern.MatchString(username):
		return invalid("username", "Username can only contain letters, numbers, and underscores")
	}
	return nil
}

func validatePassword(password string) error {
	switch {
	case len(password) < 6:
		return invalid("password", "Password must be at least 6 characters long")
	case len(password) > 128:
		return invalid("password", "Password must be less than 128 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if !emailPattern.MatchString(email) {
		return invalid("email", "Invalid email format")
	}
	return nil
}

func validateAmount(amount, limit decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("amount", "Amount must be greater than 0")
	}
	if amount.GreaterThan(limit) {
		return invalid("amount", "Amount cannot exceed $"+groupThousands(limit.StringFixed(0)))
	}
	return nil
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
