package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const CurrencyUSD Currency = "USD"

// IsValid reports whether c looks like an ISO 4217 alphabetic code.
func (c Currency) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	for i := 0; i < len(c); i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}
	return true
}

type AccountType string

const (
	AccountTypeSavings  AccountType = "savings"
	AccountTypeChecking AccountType = "checking"
	AccountTypeBusiness AccountType = "business"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeSavings, AccountTypeChecking, AccountTypeBusiness:
		return true
	}
	return false
}

// Account is a read-only snapshot of a remote account. Balance is only ever
// replaced by a fresh fetch, never adjusted locally.
type Account struct {
	ID            int64
	AccountNumber string
	AccountType   AccountType
	Currency      Currency
	Balance       decimal.Decimal
	IsActive      bool
	CreatedAt     time.Time
}

// Balance is the ledger's answer to a balance query.
type Balance struct {
	Amount   decimal.Decimal
	Currency Currency
}
