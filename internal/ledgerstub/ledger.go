package ledgerstub

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/josh-kwaku/grey-bank-client/internal/domain"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	bcryptCost       = bcrypt.MinCost
)

type user struct {
	domain.User
	passwordHash []byte
}

type account struct {
	domain.Account
	userID int64
}

// Ledger is an in-memory bank behind the HTTP stub. A single mutex covers
// every read and write, which also makes transfers atomic.
type Ledger struct {
	maxAmount decimal.Decimal
	now       func() time.Time

	mu           sync.Mutex
	users        map[int64]*user
	usersByName  map[string]int64
	accounts     map[int64]*account
	transactions []domain.Transaction
	revoked      map[string]time.Time
	lastUserID   int64
	lastAcctID   int64
	lastTxID     int64
}

func New(maxAmount decimal.Decimal) *Ledger {
	return &Ledger{
		maxAmount:   maxAmount,
		now:         func() time.Time { return time.Now().UTC() },
		users:       make(map[int64]*user),
		usersByName: make(map[string]int64),
		accounts:    make(map[int64]*account),
		revoked:     make(map[string]time.Time),
	}
}

// Register creates a user together with a default savings account.
func (l *Ledger) Register(username, email, password string, isAdmin bool) (*domain.Registration, error) {
	username = sanitize(username)
	email = sanitize(email)
	if err := validateUsername(username); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}
	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}
	if err := validateEmail(email); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("Register: hash password: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.usersByName[username]; ok {
		return nil, fmt.Errorf("Register: %w", ErrUsernameTaken)
	}
	if email != "" {
		for _, u := range l.users {
			if strings.EqualFold(u.Email, email) {
				return nil, fmt.Errorf("Register: %w", ErrEmailTaken)
			}
		}
	}

	l.lastUserID++
	u := &user{
		User: domain.User{
			ID:        l.lastUserID,
			Username:  username,
			Email:     email,
			IsAdmin:   isAdmin,
			IsActive:  true,
			CreatedAt: l.now(),
		},
		passwordHash: hash,
	}
	l.users[u.ID] = u
	l.usersByName[username] = u.ID

	a := l.openAccount(u.ID, domain.AccountTypeSavings, domain.CurrencyUSD)
	return &domain.Registration{
		Message:       "User registered successfully",
		UserID:        u.ID,
		AccountID:     a.ID,
		AccountNumber: a.AccountNumber,
	}, nil
}

func (l *Ledger) Authenticate(username, password string) (*domain.User, error) {
	username = sanitize(username)

	l.mu.Lock()
	u, ok := l.users[l.usersByName[username]]
	var (
		out  domain.User
		hash []byte
	)
	if ok {
		out, hash = u.User, u.passwordHash
	}
	l.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return nil, fmt.Errorf("Authenticate: %w", ErrInvalidCredentials)
	}
	if !out.IsActive {
		return nil, fmt.Errorf("Authenticate: %w", ErrUserInactive)
	}
	return &out, nil
}

func (l *Ledger) User(id int64) (*domain.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[id]
	if !ok {
		return nil, fmt.Errorf("User: %w", ErrUserNotFound)
	}
	out := u.User
	return &out, nil
}

func (l *Ledger) ChangePassword(userID int64, oldPassword, newPassword string) error {
	l.mu.Lock()
	u, ok := l.users[userID]
	var current []byte
	if ok {
		current = u.passwordHash
	}
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("ChangePassword: %w", ErrUserNotFound)
	}
	if bcrypt.CompareHashAndPassword(current, []byte(oldPassword)) != nil {
		return fmt.Errorf("ChangePassword: %w", ErrInvalidOldPassword)
	}
	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("ChangePassword: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("ChangePassword: hash password: %w", err)
	}
	l.mu.Lock()
	u.passwordHash = hash
	l.mu.Unlock()
	return nil
}

// ResetPassword only checks that the user exists and the email matches; no
// mail is sent.
func (l *Ledger) ResetPassword(username, email string) error {
	username = sanitize(username)
	email = sanitize(email)

	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[l.usersByName[username]]
	if !ok {
		return fmt.Errorf("ResetPassword: %w", ErrUserNotFound)
	}
	if email != "" && !strings.EqualFold(u.Email, email) {
		return fmt.Errorf("ResetPassword: %w", ErrEmailMismatch)
	}
	return nil
}

// Revoke denies a token id until it would have expired anyway.
func (l *Ledger) Revoke(tokenID string, until time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for id, exp := range l.revoked {
		if exp.Before(now) {
			delete(l.revoked, id)
		}
	}
	l.revoked[tokenID] = until
}

func (l *Ledger) IsRevoked(tokenID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.revoked[tokenID]
	return ok
}

func (l *Ledger) Accounts(userID int64) []domain.Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Account
	for _, a := range l.accounts {
		if a.userID == userID && a.IsActive {
			out = append(out, a.Account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (l *Ledger) Account(userID, accountID int64) (*domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, err := l.ownedAccount(userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("Account: %w", err)
	}
	out := a.Account
	return &out, nil
}

func (l *Ledger) CreateAccount(userID int64, accountType domain.AccountType, currency domain.Currency) (*domain.Account, error) {
	if accountType == "" {
		accountType = domain.AccountTypeSavings
	}
	if !accountType.IsValid() {
		return nil, fmt.Errorf("CreateAccount: %w", ErrInvalidAccountType)
	}
	if currency == "" {
		currency = domain.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, fmt.Errorf("CreateAccount: %w", ErrInvalidCurrency)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.users[userID]; !ok {
		return nil, fmt.Errorf("CreateAccount: %w", ErrUserNotFound)
	}
	a := l.openAccount(userID, accountType, currency)
	out := a.Account
	return &out, nil
}

// UpdateAccount changes the type and currency of an account. Empty values
// leave the field as it is.
func (l *Ledger) UpdateAccount(userID, accountID int64, accountType domain.AccountType, currency domain.Currency) (*domain.Account, error) {
	if accountType != "" && !accountType.IsValid() {
		return nil, fmt.Errorf("UpdateAccount: %w", ErrInvalidAccountType)
	}
	if currency != "" && !currency.IsValid() {
		return nil, fmt.Errorf("UpdateAccount: %w", ErrInvalidCurrency)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	a, err := l.ownedAccount(userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("UpdateAccount: %w", err)
	}
	if accountType != "" {
		a.AccountType = accountType
	}
	if currency != "" {
		a.Currency = currency
	}
	out := a.Account
	return &out, nil
}

// DeactivateAccount soft-deletes an account. Inactive accounts are invisible
// to their owner and reject every mutation; a funded account cannot be
// deactivated.
func (l *Ledger) DeactivateAccount(userID, accountID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, err := l.ownedAccount(userID, accountID)
	if err != nil {
		return fmt.Errorf("DeactivateAccount: %w", err)
	}
	if a.Balance.IsPositive() {
		return fmt.Errorf("DeactivateAccount: %w", ErrPositiveBalance)
	}
	a.IsActive = false
	return nil
}

// Mutation is the outcome of a deposit or withdrawal.
type Mutation struct {
	Message     string
	NewBalance  decimal.Decimal
	Transaction domain.Transaction
}

type TransferResult struct {
	Message         string
	FromBalance     decimal.Decimal
	ToBalance       decimal.Decimal
	FromTransaction domain.Transaction
	ToTransaction   domain.Transaction
}

func (l *Ledger) Deposit(userID, accountID int64, amount decimal.Decimal, description string) (*Mutation, error) {
	if err := validateAmount(amount, l.maxAmount); err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	a, err := l.ownedAccount(userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}

	a.Balance = a.Balance.Add(amount)
	tx := l.record(a.ID, domain.TransactionTypeDeposit, amount, orDefault(description, "Deposit"))
	return &Mutation{Message: "Deposit successful", NewBalance: a.Balance, Transaction: tx}, nil
}

func (l *Ledger) Withdraw(userID, accountID int64, amount decimal.Decimal, description string) (*Mutation, error) {
	if err := validateAmount(amount, l.maxAmount); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	a, err := l.ownedAccount(userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	if a.Balance.LessThan(amount) {
		return nil, fmt.Errorf("Withdraw: %w", ErrInsufficientBalance)
	}

	a.Balance = a.Balance.Sub(amount)
	tx := l.record(a.ID, domain.TransactionTypeWithdrawal, amount.Neg(), orDefault(description, "Withdrawal"))
	return &Mutation{Message: "Withdrawal successful", NewBalance: a.Balance, Transaction: tx}, nil
}

// Transfer moves amount between two of the user's accounts. Both legs are
// applied under the same lock, so either both are visible or neither is.
func (l *Ledger) Transfer(userID, fromID, toID int64, amount decimal.Decimal, description string) (*TransferResult, error) {
	if fromID == toID {
		return nil, fmt.Errorf("Transfer: %w", ErrSelfTransfer)
	}
	if err := validateAmount(amount, l.maxAmount); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	from, errFrom := l.ownedAccount(userID, fromID)
	to, errTo := l.ownedAccount(userID, toID)
	if errFrom != nil || errTo != nil {
		return nil, fmt.Errorf("Transfer: %w", ErrAccountsNotFound)
	}
	if from.Balance.LessThan(amount) {
		return nil, fmt.Errorf("Transfer: %w", ErrInsufficientBalance)
	}

	from.Balance = from.Balance.Sub(amount)
	to.Balance = to.Balance.Add(amount)
	out := l.record(from.ID, domain.TransactionTypeTransfer, amount.Neg(), orDefault(description, "Transfer to "+to.AccountNumber))
	in := l.record(to.ID, domain.TransactionTypeTransfer, amount, orDefault(description, "Transfer from "+from.AccountNumber))
	return &TransferResult{
		Message:         "Transfer successful",
		FromBalance:     from.Balance,
		ToBalance:       to.Balance,
		FromTransaction: out,
		ToTransaction:   in,
	}, nil
}

type Query struct {
	Page      int
	Limit     int
	AccountID int64
	Type      domain.TransactionType
	Start     time.Time
	End       time.Time
}

type Page struct {
	Transactions []domain.Transaction
	Total        int
	Page         int
	Limit        int
	Pages        int
}

// Transactions lists the user's transactions on active accounts, newest
// first. Limit is capped at MaxPageLimit; a page past the end is empty.
func (l *Ledger) Transactions(userID int64, q Query) Page {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageLimit
	}
	q.Limit = min(q.Limit, MaxPageLimit)

	l.mu.Lock()
	matched := l.matching(userID, q)
	l.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	pages := (total + q.Limit - 1) / q.Limit
	start := total
	if q.Page <= pages {
		start = (q.Page - 1) * q.Limit
	}
	end := min(start+q.Limit, total)
	return Page{
		Transactions: matched[start:end],
		Total:        total,
		Page:         q.Page,
		Limit:        q.Limit,
		Pages:        pages,
	}
}

// AccountTransactions pages through one account's history. Unlike
// Transactions it reports an account the user cannot see.
func (l *Ledger) AccountTransactions(userID, accountID int64, page, limit int) (Page, error) {
	l.mu.Lock()
	_, err := l.ownedAccount(userID, accountID)
	l.mu.Unlock()
	if err != nil {
		return Page{}, fmt.Errorf("AccountTransactions: %w", err)
	}
	return l.Transactions(userID, Query{Page: page, Limit: limit, AccountID: accountID}), nil
}

// Transaction looks up a single transaction on one of the user's active
// accounts.
func (l *Ledger) Transaction(userID, txID int64) (*domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, tx := range l.transactions {
		if tx.ID != txID {
			continue
		}
		if _, err := l.ownedAccount(userID, tx.AccountID); err != nil {
			break
		}
		out := tx
		return &out, nil
	}
	return nil, fmt.Errorf("Transaction: %w", ErrTransactionNotFound)
}

// Stats summarises the user's transactions on active accounts between start
// and end; zero bounds are open.
func (l *Ledger) Stats(userID int64, start, end time.Time) domain.TransactionStats {
	l.mu.Lock()
	matched := l.matching(userID, Query{Start: start, End: end})
	l.mu.Unlock()

	var st domain.TransactionStats
	withdrawn := decimal.Zero
	for _, tx := range matched {
		st.TotalTransactions++
		st.NetAmount = st.NetAmount.Add(tx.Amount)
		switch tx.Type {
		case domain.TransactionTypeDeposit:
			st.Deposits++
			if tx.Amount.IsPositive() {
				st.TotalDeposited = st.TotalDeposited.Add(tx.Amount)
			}
		case domain.TransactionTypeWithdrawal:
			st.Withdrawals++
			withdrawn = withdrawn.Add(tx.Amount)
		case domain.TransactionTypeTransfer:
			st.Transfers++
		}
	}
	st.TotalWithdrawn = withdrawn.Abs()
	return st
}

// matching must be called with l.mu held.
func (l *Ledger) matching(userID int64, q Query) []domain.Transaction {
	var matched []domain.Transaction
	for _, tx := range l.transactions {
		a, ok := l.accounts[tx.AccountID]
		if !ok || a.userID != userID || !a.IsActive {
			continue
		}
		if q.AccountID != 0 && tx.AccountID != q.AccountID {
			continue
		}
		if q.Type != "" && tx.Type != q.Type {
			continue
		}
		if !q.Start.IsZero() && tx.CreatedAt.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && tx.CreatedAt.After(q.End) {
			continue
		}
		matched = append(matched, tx)
	}
	return matched
}

// ownedAccount must be called with l.mu held.
func (l *Ledger) ownedAccount(userID, accountID int64) (*account, error) {
	a, ok := l.accounts[accountID]
	if !ok || a.userID != userID || !a.IsActive {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

// openAccount must be called with l.mu held.
func (l *Ledger) openAccount(userID int64, accountType domain.AccountType, currency domain.Currency) *account {
	l.lastAcctID++
	a := &account{
		Account: domain.Account{
			ID:            l.lastAcctID,
			AccountNumber: l.newAccountNumber(),
			AccountType:   accountType,
			Currency:      currency,
			Balance:       decimal.Zero,
			IsActive:      true,
			CreatedAt:     l.now(),
		},
		userID: userID,
	}
	l.accounts[a.ID] = a
	return a
}

// record must be called with l.mu held.
func (l *Ledger) record(accountID int64, typ domain.TransactionType, amount decimal.Decimal, description string) domain.Transaction {
	l.lastTxID++
	tx := domain.Transaction{
		ID:              l.lastTxID,
		AccountID:       accountID,
		Type:            typ,
		Amount:          amount,
		Description:     sanitize(description),
		ReferenceNumber: newReference(),
		Status:          "completed",
		CreatedAt:       l.now(),
	}
	l.transactions = append(l.transactions, tx)
	return tx
}

func (l *Ledger) newAccountNumber() string {
	for {
		n := fmt.Sprintf("%010d", rand.Int64N(10_000_000_000))
		taken := false
		for _, a := range l.accounts {
			if a.AccountNumber == n {
				taken = true
				break
			}
		}
		if !taken {
			return n
		}
	}
}

func newReference() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
