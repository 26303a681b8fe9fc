package accounts

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/grey-bank-client/internal/domain"
	"github.com/josh-kwaku/grey-bank-client/internal/gateway"
)

type fakeGuard bool

func (g fakeGuard) IsAuthenticated() bool { return bool(g) }

type fakeAccountAPI struct {
	accounts  []domain.Account
	listErr   error
	created   *domain.Account
	createErr error

	updateErr     error
	deactivateErr error

	listCalls       int
	createCalls     int
	updateCalls     int
	deactivateCalls int
	gotType         domain.AccountType
	gotCurrency     domain.Currency
}

// fakeSession records logout hooks so tests can fire them.
type fakeSession struct {
	authenticated bool
	hooks         []func()
}

func (s *fakeSession) IsAuthenticated() bool { return s.authenticated }

func (s *fakeSession) OnLogout(fn func()) { s.hooks = append(s.hooks, fn) }

func (s *fakeSession) logout() {
	s.authenticated = false
	for _, fn := range s.hooks {
		fn()
	}
}

func (f *fakeAccountAPI) ListAccounts(_ context.Context) ([]domain.Account, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Account, len(f.accounts))
	copy(out, f.accounts)
	return out, nil
}

func (f *fakeAccountAPI) GetAccount(_ context.Context, id int64) (*domain.Account, error) {
	for _, a := range f.accounts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, &gateway.HTTPError{Status: http.StatusNotFound, Message: "Account not found"}
}

func (f *fakeAccountAPI) CreateAccount(_ context.Context, t domain.AccountType, c domain.Currency) (*domain.Account, error) {
	f.createCalls++
	f.gotType, f.gotCurrency = t, c
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.accounts = append(f.accounts, *f.created)
	return f.created, nil
}

func (f *fakeAccountAPI) UpdateAccount(_ context.Context, id int64, t domain.AccountType, c domain.Currency) (*domain.Account, error) {
	f.updateCalls++
	f.gotType, f.gotCurrency = t, c
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i := range f.accounts {
		if f.accounts[i].ID != id {
			continue
		}
		if t != "" {
			f.accounts[i].AccountType = t
		}
		if c != "" {
			f.accounts[i].Currency = c
		}
		a := f.accounts[i]
		return &a, nil
	}
	return nil, &gateway.HTTPError{Status: http.StatusNotFound, Message: "Account not found"}
}

func (f *fakeAccountAPI) DeactivateAccount(_ context.Context, id int64) (string, error) {
	f.deactivateCalls++
	if f.deactivateErr != nil {
		return "", f.deactivateErr
	}
	for i, a := range f.accounts {
		if a.ID == id {
			f.accounts = append(f.accounts[:i], f.accounts[i+1:]...)
			return "Account deleted successfully", nil
		}
	}
	return "", &gateway.HTTPError{Status: http.StatusNotFound, Message: "Account not found"}
}

func (f *fakeAccountAPI) AccountBalance(_ context.Context, id int64) (*domain.Balance, error) {
	for _, a := range f.accounts {
		if a.ID == id {
			return &domain.Balance{Amount: a.Balance, Currency: a.Currency}, nil
		}
	}
	return nil, &gateway.HTTPError{Status: http.StatusNotFound, Message: "Account not found"}
}

func account(id int64, balance string) domain.Account {
	return domain.Account{
		ID:          id,
		AccountType: domain.AccountTypeSavings,
		Currency:    domain.CurrencyUSD,
		Balance:     decimal.RequireFromString(balance),
		IsActive:    true,
	}
}

func TestRefresh_ReplacesSnapshot(t *testing.T) {
	api := &fakeAccountAPI{accounts: []domain.Account{account(1, "10"), account(2, "20")}}
	d := NewDirectory(api, fakeGuard(true), nil)

	require.NoError(t, d.Refresh(context.Background()))
	assert.Len(t, d.List(), 2)

	api.accounts = []domain.Account{account(3, "30")}
	require.NoError(t, d.Refresh(context.Background()))

	list := d.List()
	require.Len(t, list, 1)
	assert.Equal(t, int64(3), list[0].ID)
	_, ok := d.ByID(1)
	assert.False(t, ok, "refresh must not merge with the previous snapshot")
}

func TestRefresh_FailureKeepsSnapshot(t *testing.T) {
	api := &fakeAccountAPI{accounts: []domain.Account{account(1, "10")}}
	d := NewDirectory(api, fakeGuard(true), nil)
	require.NoError(t, d.Refresh(context.Background()))

	api.listErr = &gateway.TransportError{Method: "GET", Path: "/accounts", Err: errors.New("reset by peer")}
	err := d.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, "Failed to load accounts", err.Error())

	a, ok := d.ByID(1)
	require.True(t, ok)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(10)))
}

func TestRefresh_RequiresSession(t *testing.T) {
	api := &fakeAccountAPI{}
	d := NewDirectory(api, fakeGuard(false), nil)

	err := d.Refresh(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.Zero(t, api.listCalls)
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name         string
		accountType  domain.AccountType
		currency     domain.Currency
		wantErr      error
		wantMsg      string
		wantCurrency domain.Currency
		wantCalls    int
	}{
		{
			name:         "currency defaults to USD",
			accountType:  domain.AccountTypeChecking,
			wantCurrency: domain.CurrencyUSD,
			wantCalls:    1,
		},
		{
			name:         "input is normalised",
			accountType:  " Business ",
			currency:     "eur",
			wantCurrency: "EUR",
			wantCalls:    1,
		},
		{
			name:        "unknown type rejected locally",
			accountType: "brokerage",
			wantErr:     domain.ErrValidation,
			wantMsg:     "invalid account type",
		},
		{
			name:        "bad currency rejected locally",
			accountType: domain.AccountTypeSavings,
			currency:    "DOLLARS",
			wantErr:     domain.ErrValidation,
			wantMsg:     "invalid currency",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			created := account(9, "0")
			api := &fakeAccountAPI{created: &created}
			d := NewDirectory(api, fakeGuard(true), nil)

			got, err := d.Create(context.Background(), tc.accountType, tc.currency)
			assert.Equal(t, tc.wantCalls, api.createCalls)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, tc.wantMsg, err.Error())
				assert.Zero(t, api.listCalls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(9), got.ID)
			assert.Equal(t, tc.wantCurrency, api.gotCurrency)
			assert.Equal(t, 1, api.listCalls, "creation refreshes the directory")
			_, ok := d.ByID(9)
			assert.True(t, ok)
		})
	}
}

func TestCreate_RemoteFailure(t *testing.T) {
	api := &fakeAccountAPI{createErr: &gateway.HTTPError{Status: http.StatusInternalServerError}}
	d := NewDirectory(api, fakeGuard(true), nil)

	_, err := d.Create(context.Background(), domain.AccountTypeSavings, "")
	assert.ErrorIs(t, err, domain.ErrRemote)
	assert.EqualError(t, err, "Failed to create account")
	assert.Zero(t, api.listCalls)
}

func TestCreate_RefreshFailureStillSucceeds(t *testing.T) {
	created := account(4, "0")
	api := &fakeAccountAPI{
		created: &created,
		listErr: &gateway.HTTPError{Status: http.StatusBadGateway},
	}
	d := NewDirectory(api, fakeGuard(true), nil)

	got, err := d.Create(context.Background(), domain.AccountTypeSavings, "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.ID)
	assert.Empty(t, d.List())
}

func TestCreate_RequiresSession(t *testing.T) {
	api := &fakeAccountAPI{}
	d := NewDirectory(api, fakeGuard(false), nil)

	_, err := d.Create(context.Background(), domain.AccountTypeSavings, "USD")
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.Zero(t, api.createCalls)
}

func TestLookups(t *testing.T) {
	api := &fakeAccountAPI{accounts: []domain.Account{account(7, "1"), account(8, "2")}}
	d := NewDirectory(api, fakeGuard(true), nil)

	_, ok := d.Default()
	assert.False(t, ok)

	require.NoError(t, d.Refresh(context.Background()))
	calls := api.listCalls

	def, ok := d.Default()
	require.True(t, ok)
	assert.Equal(t, int64(7), def.ID)

	a, ok := d.ByID(8)
	require.True(t, ok)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(2)))

	_, ok = d.ByID(99)
	assert.False(t, ok)
	assert.Equal(t, calls, api.listCalls, "lookups never hit the network")

	list := d.List()
	list[0].Balance = decimal.NewFromInt(1000)
	a, _ = d.ByID(7)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(1)), "callers cannot mutate the snapshot")

	d.Clear()
	assert.Empty(t, d.List())
}

func TestFetch(t *testing.T) {
	api := &fakeAccountAPI{accounts: []domain.Account{account(7, "1")}}
	d := NewDirectory(api, fakeGuard(true), nil)

	a, err := d.Fetch(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.ID)
	assert.Empty(t, d.List())

	_, err = d.Fetch(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrRemote)
	assert.EqualError(t, err, "Account not found")
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name        string
		id          int64
		accountType domain.AccountType
		currency    domain.Currency
		wantErr     error
		wantMsg     string
		wantType    domain.AccountType
		wantCur     domain.Currency
		wantCalls   int
	}{
		{name: "type only", id: 7, accountType: " Checking ", wantType: domain.AccountTypeChecking, wantCur: "USD", wantCalls: 1},
		{name: "currency only", id: 7, currency: "gbp", wantType: domain.AccountTypeSavings, wantCur: "GBP", wantCalls: 1},
		{name: "nothing to change", id: 7, wantErr: domain.ErrValidation, wantMsg: "nothing to update"},
		{name: "bad type", id: 7, accountType: "loan", wantErr: domain.ErrValidation, wantMsg: "invalid account type"},
		{name: "bad currency", id: 7, currency: "pounds", wantErr: domain.ErrValidation, wantMsg: "invalid currency"},
		{name: "missing account", accountType: domain.AccountTypeBusiness, wantErr: domain.ErrValidation, wantMsg: "account is required"},
		{name: "unknown account", id: 99, accountType: domain.AccountTypeBusiness, wantErr: domain.ErrRemote, wantMsg: "Account not found", wantCalls: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAccountAPI{accounts: []domain.Account{account(7, "5")}}
			d := NewDirectory(api, fakeGuard(true), nil)

			got, err := d.Update(context.Background(), tc.id, tc.accountType, tc.currency)
			assert.Equal(t, tc.wantCalls, api.updateCalls)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, tc.wantMsg, err.Error())
				assert.Zero(t, api.listCalls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, got.AccountType)
			assert.Equal(t, tc.wantCur, got.Currency)

			cached, ok := d.ByID(7)
			require.True(t, ok, "update refreshes the directory")
			assert.Equal(t, tc.wantType, cached.AccountType)
			assert.Equal(t, tc.wantCur, cached.Currency)
		})
	}
}

func TestDeactivate(t *testing.T) {
	tests := []struct {
		name      string
		id        int64
		apiErr    error
		wantErr   error
		wantMsg   string
		wantCalls int
		wantLeft  int
	}{
		{name: "removed from snapshot", id: 8, wantMsg: "Account deleted successfully", wantCalls: 1, wantLeft: 1},
		{
			name:      "funded account refused",
			id:        8,
			apiErr:    &gateway.HTTPError{Status: http.StatusBadRequest, Message: "Cannot delete account with positive balance"},
			wantErr:   domain.ErrRemote,
			wantMsg:   "Cannot delete account with positive balance",
			wantCalls: 1,
			wantLeft:  2,
		},
		{name: "missing account", wantErr: domain.ErrValidation, wantMsg: "account is required", wantLeft: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			api := &fakeAccountAPI{
				accounts:      []domain.Account{account(7, "1"), account(8, "0")},
				deactivateErr: tc.apiErr,
			}
			d := NewDirectory(api, fakeGuard(true), nil)
			require.NoError(t, d.Refresh(context.Background()))

			msg, err := d.Deactivate(context.Background(), tc.id)
			assert.Equal(t, tc.wantCalls, api.deactivateCalls)
			assert.Len(t, d.List(), tc.wantLeft)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, tc.wantMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantMsg, msg)
			_, ok := d.ByID(tc.id)
			assert.False(t, ok)
		})
	}
}

func TestBalance(t *testing.T) {
	api := &fakeAccountAPI{accounts: []domain.Account{account(7, "12.34")}}
	d := NewDirectory(api, fakeGuard(true), nil)

	b, err := d.Balance(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, b.Amount.Equal(decimal.RequireFromString("12.34")))
	assert.Equal(t, domain.CurrencyUSD, b.Currency)
	assert.Empty(t, d.List(), "balance lookups leave the snapshot alone")

	_, err = d.Balance(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrRemote)

	_, err = NewDirectory(api, fakeGuard(false), nil).Balance(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestLogoutClearsSnapshot(t *testing.T) {
	sess := &fakeSession{authenticated: true}
	api := &fakeAccountAPI{accounts: []domain.Account{account(7, "1"), account(8, "2")}}
	d := NewDirectory(api, sess, nil)
	require.Len(t, sess.hooks, 1, "the directory subscribes to logouts")

	require.NoError(t, d.Refresh(context.Background()))
	require.Len(t, d.List(), 2)

	sess.logout()

	assert.Empty(t, d.List())
	_, ok := d.ByID(7)
	assert.False(t, ok)
	_, ok = d.Default()
	assert.False(t, ok)
}
