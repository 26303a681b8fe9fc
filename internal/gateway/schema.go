package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/grey-bank-client/internal/domain"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: %w", s, ErrSchema)
}

type userDTO struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     *string `json:"email"`
	IsAdmin   bool    `json:"is_admin"`
	IsActive  *bool   `json:"is_active"`
	CreatedAt string  `json:"created_at"`
}

func (d *userDTO) toDomain() (*domain.User, error) {
	if d == nil {
		return nil, fmt.Errorf("user missing: %w", ErrSchema)
	}
	if d.ID <= 0 {
		return nil, fmt.Errorf("user id %d: %w", d.ID, ErrSchema)
	}
	if strings.TrimSpace(d.Username) == "" {
		return nil, fmt.Errorf("user %d has no username: %w", d.ID, ErrSchema)
	}
	created, err := parseTimestamp(d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", d.ID, err)
	}

	u := &domain.User{
		ID:        d.ID,
		Username:  d.Username,
		IsAdmin:   d.IsAdmin,
		IsActive:  true,
		CreatedAt: created,
	}
	if d.Email != nil {
		u.Email = *d.Email
	}
	if d.IsActive != nil {
		u.IsActive = *d.IsActive
	}
	return u, nil
}

type accountDTO struct {
	ID            int64            `json:"id"`
	AccountNumber string           `json:"account_number"`
	AccountType   string           `json:"account_type"`
	Balance       *decimal.Decimal `json:"balance"`
	Currency      string           `json:"currency"`
	IsActive      *bool            `json:"is_active"`
	CreatedAt     string           `json:"created_at"`
}

func (d *accountDTO) toDomain() (*domain.Account, error) {
	if d == nil {
		return nil, fmt.Errorf("account missing: %w", ErrSchema)
	}
	if d.ID <= 0 {
		return nil, fmt.Errorf("account id %d: %w", d.ID, ErrSchema)
	}
	accountType := domain.AccountType(d.AccountType)
	if !accountType.IsValid() {
		return nil, fmt.Errorf("account %d type %q: %w", d.ID, d.AccountType, ErrSchema)
	}
	currency := domain.Currency(d.Currency)
	if !currency.IsValid() {
		return nil, fmt.Errorf("account %d currency %q: %w", d.ID, d.Currency, ErrSchema)
	}
	if d.Balance == nil {
		return nil, fmt.Errorf("account %d has no balance: %w", d.ID, ErrSchema)
	}
	created, err := parseTimestamp(d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", d.ID, err)
	}

	active := true
	if d.IsActive != nil {
		active = *d.IsActive
	}
	return &domain.Account{
		ID:            d.ID,
		AccountNumber: d.AccountNumber,
		AccountType:   accountType,
		Currency:      currency,
		Balance:       *d.Balance,
		IsActive:      active,
		CreatedAt:     created,
	}, nil
}

type transactionDTO struct {
	ID              int64            `json:"id"`
	AccountID       int64            `json:"account_id"`
	TransactionType string           `json:"transaction_type"`
	Amount          *decimal.Decimal `json:"amount"`
	Description     *string          `json:"description"`
	ReferenceNumber string           `json:"reference_number"`
	Status          string           `json:"status"`
	CreatedAt       string           `json:"created_at"`
}

func (d *transactionDTO) toDomain() (*domain.Transaction, error) {
	if d == nil {
		return nil, fmt.Errorf("transaction missing: %w", ErrSchema)
	}
	if d.ID <= 0 || d.AccountID <= 0 {
		return nil, fmt.Errorf("transaction %d account %d: %w", d.ID, d.AccountID, ErrSchema)
	}
	if d.TransactionType == "" {
		return nil, fmt.Errorf("transaction %d has no type: %w", d.ID, ErrSchema)
	}
	if d.Amount == nil {
		return nil, fmt.Errorf("transaction %d has no amount: %w", d.ID, ErrSchema)
	}
	created, err := parseTimestamp(d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", d.ID, err)
	}

	t := &domain.Transaction{
		ID:              d.ID,
		AccountID:       d.AccountID,
		Type:            domain.TransactionType(d.TransactionType),
		Amount:          *d.Amount,
		ReferenceNumber: d.ReferenceNumber,
		Status:          d.Status,
		CreatedAt:       created,
	}
	if d.Description != nil {
		t.Description = *d.Description
	}
	return t, nil
}

func accountsToDomain(dtos []accountDTO) ([]domain.Account, error) {
	out := make([]domain.Account, 0, len(dtos))
	for i := range dtos {
		a, err := dtos[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

func transactionsToDomain(dtos []transactionDTO) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, 0, len(dtos))
	for i := range dtos {
		t, err := dtos[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}
