package transactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/grey-bank-client/internal/domain"
	"github.com/josh-kwaku/grey-bank-client/internal/gateway"
	"github.com/josh-kwaku/grey-bank-client/internal/logging"
)

type ledgerAPI interface {
	Deposit(ctx context.Context, accountID int64, amount decimal.Decimal, description string) (*domain.MutationResult, error)
	Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal, description string) (*domain.MutationResult, error)
	Transfer(ctx context.Context, fromAccountID, toAccountID int64, amount decimal.Decimal, description string) (*domain.MutationResult, error)
	ListTransactions(ctx context.Context, q gateway.TransactionQuery) (*gateway.TransactionPage, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	AccountTransactions(ctx context.Context, accountID int64, page, limit int) (*gateway.TransactionPage, error)
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
	TransactionStats(ctx context.Context, start, end time.Time) (*domain.TransactionStats, error)
}

type accountDirectory interface {
	Refresh(ctx context.Context) error
	Replace(accounts []domain.Account)
	Default() (domain.Account, bool)
}

type sessionGuard interface {
	IsAuthenticated() bool
}

// Receipt describes a committed mutation. Refreshed is false when the
// follow-up account refresh failed and the directory may still show the
// pre-mutation balance.
type Receipt struct {
	Kind        domain.RequestKind
	Message     string
	NewBalance  *decimal.Decimal
	Transaction *domain.Transaction
	Refreshed   bool
}

type Page struct {
	Transactions   []domain.Transaction
	Accounts       []domain.Account
	DefaultAccount *domain.Account
	Total          int
	Page           int
	Pages          int
}

type Orchestrator struct {
	api      ledgerAPI
	accounts accountDirectory
	session  sessionGuard
	logger   *slog.Logger
}

func NewOrchestrator(api ledgerAPI, accounts accountDirectory, session sessionGuard, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Orchestrator{
		api:      api,
		accounts: accounts,
		session:  session,
		logger:   logger.With("component", "transactions"),
	}
}

// Submit validates req, dispatches it to the ledger and refreshes the account
// directory once the mutation is committed, or when a 2xx reply could not be
// read. Nothing is retried.
func (o *Orchestrator) Submit(ctx context.Context, req domain.TransactionRequest) (*Receipt, error) {
	amount, err := Validate(req)
	if err != nil {
		return nil, err
	}
	if !o.session.IsAuthenticated() {
		return nil, domain.NotAuthenticated()
	}

	logger := o.logger.With("kind", req.Kind, "account_id", req.AccountID)
	if req.Kind == domain.KindTransfer {
		logger = logger.With("to_account_id", req.ToAccountID)
	}

	res, err := o.dispatch(ctx, req, amount)
	if err != nil {
		logger.Warn("transaction rejected", "amount", amount.String(), "error", err)
		if errors.Is(err, gateway.ErrSchema) {
			// the ledger answered 2xx, so the mutation may have committed
			if rerr := o.accounts.Refresh(ctx); rerr != nil {
				logger.Warn("refresh after unreadable response failed", "error", rerr)
			}
		}
		return nil, gateway.Classify(err, "Transaction failed")
	}
	logger.Info("transaction committed", "amount", amount.String())

	receipt := &Receipt{
		Kind:        req.Kind,
		Message:     res.Message,
		NewBalance:  res.NewBalance,
		Transaction: res.Transaction,
		Refreshed:   true,
	}
	if err := o.accounts.Refresh(ctx); err != nil {
		logger.Warn("refresh after transaction failed", "error", err)
		receipt.Refreshed = false
	}
	return receipt, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, req domain.TransactionRequest, amount decimal.Decimal) (*domain.MutationResult, error) {
	switch req.Kind {
	case domain.KindDeposit:
		return o.api.Deposit(ctx, req.AccountID, amount, req.Description)
	case domain.KindWithdraw:
		return o.api.Withdraw(ctx, req.AccountID, amount, req.Description)
	case domain.KindTransfer:
		return o.api.Transfer(ctx, req.AccountID, req.ToAccountID, amount, req.Description)
	default:
		return nil, fmt.Errorf("dispatch %q: %w", req.Kind, domain.ErrUnknownKind)
	}
}

// Validate checks a request before it is sent and returns the parsed amount.
func Validate(req domain.TransactionRequest) (decimal.Decimal, error) {
	if !req.Kind.IsValid() {
		return decimal.Zero, domain.Validation(domain.ErrUnknownKind)
	}
	if req.AccountID <= 0 {
		return decimal.Zero, domain.Validation(domain.ErrAccountRequired)
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		msg := domain.ErrInvalidAmount.Error()
		if errors.Is(err, domain.ErrAmountTooLarge) {
			msg = domain.ErrAmountTooLarge.Error()
		}
		return decimal.Zero, &domain.Failure{Kind: domain.KindValidation, Message: msg, Err: err}
	}
	if req.Kind == domain.KindTransfer {
		if req.ToAccountID <= 0 {
			return decimal.Zero, domain.Validation(domain.ErrDestRequired)
		}
		if req.ToAccountID == req.AccountID {
			return decimal.Zero, domain.Validation(domain.ErrSelfTransfer)
		}
	}
	return amount, nil
}

// LoadPage fetches a page of transactions and the account list in parallel.
// Either failure fails the whole load; on success the accounts are installed
// in the directory and the default account is picked from them.
func (o *Orchestrator) LoadPage(ctx context.Context, q gateway.TransactionQuery) (*Page, error) {
	if !o.session.IsAuthenticated() {
		return nil, domain.NotAuthenticated()
	}

	var (
		txPage   *gateway.TransactionPage
		accounts []domain.Account
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := o.api.ListTransactions(gctx, q)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		txPage = p
		return nil
	})
	g.Go(func() error {
		a, err := o.api.ListAccounts(gctx)
		if err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		accounts = a
		return nil
	})
	if err := g.Wait(); err != nil {
		o.logger.Warn("transaction page load failed", "error", err)
		f := gateway.Classify(err, "Failed to load transactions")
		return nil, &domain.Failure{Kind: f.Kind, Message: "Failed to load transactions", Err: err}
	}

	o.accounts.Replace(accounts)
	page := &Page{
		Transactions: txPage.Transactions,
		Accounts:     accounts,
		Total:        txPage.Total,
		Page:         txPage.Page,
		Pages:        txPage.Pages,
	}
	if def, ok := o.accounts.Default(); ok {
		page.DefaultAccount = &def
	}
	return page, nil
}
