package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit     TransactionType = "deposit"
	TransactionTypeWithdrawal  TransactionType = "withdrawal"
	TransactionTypeTransfer    TransactionType = "transfer"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
)

// Transaction is owned by the remote ledger. Amount is signed: positive for
// credits, negative for debits.
type Transaction struct {
	ID              int64
	AccountID       int64
	Type            TransactionType
	Amount          decimal.Decimal
	Description     string
	ReferenceNumber string
	Status          string
	CreatedAt       time.Time
}

type RequestKind string

const (
	KindDeposit  RequestKind = "deposit"
	KindWithdraw RequestKind = "withdraw"
	KindTransfer RequestKind = "transfer"
)

func (k RequestKind) IsValid() bool {
	switch k {
	case KindDeposit, KindWithdraw, KindTransfer:
		return true
	}
	return false
}

// TransactionRequest is built by the caller from raw form input and discarded
// after submission. ToAccountID is zero unless Kind is KindTransfer. Amount is
// kept as the user typed it and parsed during validation.
type TransactionRequest struct {
	Kind        RequestKind
	AccountID   int64
	ToAccountID int64
	Amount      string
	Description string
}

// MutationResult is what the ledger reports after a successful deposit,
// withdrawal or transfer.
type MutationResult struct {
	Message     string
	NewBalance  *decimal.Decimal
	Transaction *Transaction
}

// TransactionStats summarises the user's transactions over a date range.
// The three per-type fields are counts; TotalWithdrawn is a magnitude.
type TransactionStats struct {
	TotalTransactions int
	Deposits          int
	Withdrawals       int
	Transfers         int
	TotalDeposited    decimal.Decimal
	TotalWithdrawn    decimal.Decimal
	NetAmount         decimal.Decimal
}
