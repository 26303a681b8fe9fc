package accounts

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/josh-kwaku/grey-bank-client/internal/domain"
	"github.com/josh-kwaku/grey-bank-client/internal/gateway"
	"github.com/josh-kwaku/grey-bank-client/internal/logging"
)

type accountAPI interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)
	CreateAccount(ctx context.Context, accountType domain.AccountType, currency domain.Currency) (*domain.Account, error)
	UpdateAccount(ctx context.Context, id int64, accountType domain.AccountType, currency domain.Currency) (*domain.Account, error)
	DeactivateAccount(ctx context.Context, id int64) (string, error)
	AccountBalance(ctx context.Context, id int64) (*domain.Balance, error)
}

type sessionGuard interface {
	IsAuthenticated() bool
}

// logoutNotifier is implemented by session managers that can report a
// logout; the directory drops its snapshot when one happens.
type logoutNotifier interface {
	OnLogout(fn func())
}

// Directory caches the signed-in user's accounts. The snapshot is only ever
// replaced as a whole; balances are never adjusted locally.
type Directory struct {
	api     accountAPI
	session sessionGuard
	logger  *slog.Logger

	mu       sync.RWMutex
	accounts []domain.Account
}

func NewDirectory(api accountAPI, session sessionGuard, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = logging.Discard()
	}
	d := &Directory{
		api:     api,
		session: session,
		logger:  logger.With("component", "accounts"),
	}
	if n, ok := session.(logoutNotifier); ok {
		n.OnLogout(d.Clear)
	}
	return d
}

// Refresh re-fetches the account list. On failure the previous snapshot is
// kept.
func (d *Directory) Refresh(ctx context.Context) error {
	if !d.session.IsAuthenticated() {
		return domain.NotAuthenticated()
	}

	accounts, err := d.api.ListAccounts(ctx)
	if err != nil {
		d.logger.Warn("account refresh failed", "error", err)
		return gateway.Classify(err, "Failed to load accounts")
	}

	if !d.session.IsAuthenticated() {
		// logged out while the list was in flight
		return domain.NotAuthenticated()
	}
	d.Replace(accounts)
	d.logger.Debug("accounts refreshed", "count", len(accounts))
	return nil
}

// Create opens a new account. An empty currency means USD. The created
// account becomes visible through a refresh; if that refresh fails the
// account still exists and is returned.
func (d *Directory) Create(ctx context.Context, accountType domain.AccountType, currency domain.Currency) (*domain.Account, error) {
	accountType, currency, err := normalize(accountType, currency, true)
	if err != nil {
		return nil, err
	}
	if !d.session.IsAuthenticated() {
		return nil, domain.NotAuthenticated()
	}

	account, err := d.api.CreateAccount(ctx, accountType, currency)
	if err != nil {
		return nil, gateway.Classify(err, "Failed to create account")
	}
	d.logger.Info("account created", "account_id", account.ID, "type", accountType, "currency", currency)

	d.refreshAfter(ctx, "creation", account.ID)
	return account, nil
}

// Update changes an account's type or currency. Empty values are left as
// they are, but at least one must be given.
func (d *Directory) Update(ctx context.Context, id int64, accountType domain.AccountType, currency domain.Currency) (*domain.Account, error) {
	accountType, currency, err := normalize(accountType, currency, false)
	if err != nil {
		return nil, err
	}
	if accountType == "" && currency == "" {
		return nil, domain.Validation(domain.ErrNothingToUpdate)
	}
	if id <= 0 {
		return nil, domain.Validation(domain.ErrAccountRequired)
	}
	if !d.session.IsAuthenticated() {
		return nil, domain.NotAuthenticated()
	}

	account, err := d.api.UpdateAccount(ctx, id, accountType, currency)
	if err != nil {
		return nil, gateway.Classify(err, "Failed to update account")
	}
	d.logger.Info("account updated", "account_id", id, "type", account.AccountType, "currency", account.Currency)

	d.refreshAfter(ctx, "update", id)
	return account, nil
}

// Deactivate soft-deletes an account and refreshes the snapshot so it no
// longer lists it. The ledger refuses accounts that still hold money.
func (d *Directory) Deactivate(ctx context.Context, id int64) (string, error) {
	if id <= 0 {
		return "", domain.Validation(domain.ErrAccountRequired)
	}
	if !d.session.IsAuthenticated() {
		return "", domain.NotAuthenticated()
	}

	msg, err := d.api.DeactivateAccount(ctx, id)
	if err != nil {
		return "", gateway.Classify(err, "Failed to delete account")
	}
	d.logger.Info("account deactivated", "account_id", id)

	d.refreshAfter(ctx, "deactivation", id)
	return msg, nil
}

// Balance asks the ledger for an account's current balance without touching
// the snapshot.
func (d *Directory) Balance(ctx context.Context, id int64) (*domain.Balance, error) {
	if !d.session.IsAuthenticated() {
		return nil, domain.NotAuthenticated()
	}
	b, err := d.api.AccountBalance(ctx, id)
	if err != nil {
		return nil, gateway.Classify(err, "Account not found")
	}
	return b, nil
}

func (d *Directory) refreshAfter(ctx context.Context, what string, accountID int64) {
	if err := d.Refresh(ctx); err != nil {
		d.logger.Warn("refresh after account "+what+" failed", "account_id", accountID, "error", err)
	}
}

// normalize canonicalises user-typed type and currency. An empty currency
// becomes USD only when defaultUSD is set.
func normalize(accountType domain.AccountType, currency domain.Currency, defaultUSD bool) (domain.AccountType, domain.Currency, error) {
	accountType = domain.AccountType(strings.ToLower(strings.TrimSpace(string(accountType))))
	if (accountType != "" || defaultUSD) && !accountType.IsValid() {
		return "", "", domain.Validation(domain.ErrInvalidAccount)
	}
	currency = domain.Currency(strings.ToUpper(strings.TrimSpace(string(currency))))
	if currency == "" && defaultUSD {
		currency = domain.CurrencyUSD
	}
	if currency != "" && !currency.IsValid() {
		return "", "", domain.Validation(domain.ErrInvalidCurrency)
	}
	return accountType, currency, nil
}

// Fetch reads a single account straight from the ledger without touching the
// snapshot.
func (d *Directory) Fetch(ctx context.Context, id int64) (*domain.Account, error) {
	if !d.session.IsAuthenticated() {
		return nil, domain.NotAuthenticated()
	}
	account, err := d.api.GetAccount(ctx, id)
	if err != nil {
		return nil, gateway.Classify(err, "Account not found")
	}
	return account, nil
}

// Replace installs an already-fetched list as the new snapshot.
func (d *Directory) Replace(accounts []domain.Account) {
	snapshot := make([]domain.Account, len(accounts))
	copy(snapshot, accounts)

	d.mu.Lock()
	d.accounts = snapshot
	d.mu.Unlock()
}

func (d *Directory) ByID(id int64) (domain.Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Account{}, false
}

func (d *Directory) List() []domain.Account {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]domain.Account, len(d.accounts))
	copy(out, d.accounts)
	return out
}

// Default is the account preselected for a new transaction: the first one
// in the snapshot.
func (d *Directory) Default() (domain.Account, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.accounts) == 0 {
		return domain.Account{}, false
	}
	return d.accounts[0], true
}

// Clear drops the snapshot. It runs on every session logout.
func (d *Directory) Clear() {
	d.mu.Lock()
	d.accounts = nil
	d.mu.Unlock()
}
