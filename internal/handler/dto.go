package handler

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/grey-bank-client/internal/domain"
)

// isoLayout matches the ledger's naive UTC timestamps.
const isoLayout = "2006-01-02T15:04:05.000000"

func isoTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

type userDTO struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     *string `json:"email"`
	IsAdmin   bool    `json:"is_admin"`
	IsActive  bool    `json:"is_active"`
	CreatedAt string  `json:"created_at"`
}

func toUserDTO(u *domain.User) userDTO {
	dto := userDTO{
		ID:        u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		IsActive:  u.IsActive,
		CreatedAt: isoTime(u.CreatedAt),
	}
	if u.Email != "" {
		email := u.Email
		dto.Email = &email
	}
	return dto
}

type accountDTO struct {
	ID            int64       `json:"id"`
	AccountNumber string      `json:"account_number"`
	AccountType   string      `json:"account_type"`
	Balance       json.Number `json:"balance"`
	Currency      string      `json:"currency"`
	IsActive      bool        `json:"is_active"`
	CreatedAt     string      `json:"created_at"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:            a.ID,
		AccountNumber: a.AccountNumber,
		AccountType:   string(a.AccountType),
		Balance:       number(a.Balance),
		Currency:      string(a.Currency),
		IsActive:      a.IsActive,
		CreatedAt:     isoTime(a.CreatedAt),
	}
}

type transactionDTO struct {
	ID              int64       `json:"id"`
	AccountID       int64       `json:"account_id"`
	TransactionType string      `json:"transaction_type"`
	Amount          json.Number `json:"amount"`
	Description     string      `json:"description"`
	ReferenceNumber string      `json:"reference_number"`
	Status          string      `json:"status"`
	CreatedAt       string      `json:"created_at"`
}

func toTransactionDTO(t *domain.Transaction) transactionDTO {
	return transactionDTO{
		ID:              t.ID,
		AccountID:       t.AccountID,
		TransactionType: string(t.Type),
		Amount:          number(t.Amount),
		Description:     t.Description,
		ReferenceNumber: t.ReferenceNumber,
		Status:          t.Status,
		CreatedAt:       isoTime(t.CreatedAt),
	}
}
