package transactions

import (
	"context"
	"time"

	"github.com/josh-kwaku/grey-bank-client/internal/domain"
	"github.com/josh-kwaku/grey-bank-client/internal/gateway"
)

// AccountHistory pages through one account's transactions, newest first.
// The directory is not touched.
func (o *Orchestrator) AccountHistory(ctx context.Context, accountID int64, page, limit int) (*gateway.TransactionPage, error) {
	if accountID <= 0 {
		return nil, domain.Validation(domain.ErrAccountRequired)
	}
	if !o.session.IsAuthenticated() {
		return nil, domain.NotAuthenticated()
	}

	p, err := o.api.AccountTransactions(ctx, accountID, page, limit)
	if err != nil {
		o.logger.Warn("account history load failed", "account_id", accountID, "error", err)
		return nil, gateway.Classify(err, "Failed to load transactions")
	}
	return p, nil
}

func (o *Orchestrator) Transaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	if id <= 0 {
		return nil, domain.Validation(domain.ErrTransactionRequired)
	}
	if !o.session.IsAuthenticated() {
		return nil, domain.NotAuthenticated()
	}

	tx, err := o.api.GetTransaction(ctx, id)
	if err != nil {
		return nil, gateway.Classify(err, "Transaction not found")
	}
	return tx, nil
}

// Stats asks the ledger for totals between start and end. Either bound may
// be zero. An end at midnight is taken as a date and covers that whole day,
// as in ListFiltered.
func (o *Orchestrator) Stats(ctx context.Context, start, end time.Time) (*domain.TransactionStats, error) {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, domain.Validation(domain.ErrDateRange)
	}
	if !o.session.IsAuthenticated() {
		return nil, domain.NotAuthenticated()
	}
	if !end.IsZero() && isDateOnly(end) {
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	st, err := o.api.TransactionStats(ctx, start, end)
	if err != nil {
		o.logger.Warn("transaction stats load failed", "error", err)
		return nil, gateway.Classify(err, "Failed to get transaction statistics")
	}
	return st, nil
}
