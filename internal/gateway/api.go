package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/grey-bank-client/internal/domain"
)

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         domain.User
}

type TransactionQuery struct {
	Page      int
	Limit     int
	AccountID int64
	Type      domain.TransactionType
	Start     time.Time
	End       time.Time
}

func (q TransactionQuery) encode() string {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.AccountID > 0 {
		v.Set("account_id", strconv.FormatInt(q.AccountID, 10))
	}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	if !q.Start.IsZero() {
		v.Set("start_date", q.Start.Format(time.RFC3339Nano))
	}
	if !q.End.IsZero() {
		v.Set("end_date", q.End.Format(time.RFC3339Nano))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

type TransactionPage struct {
	Transactions []domain.Transaction
	Total        int
	Page         int
	Limit        int
	Pages        int
}

type messageResponse struct {
	Message string `json:"message"`
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var resp struct {
		AccessToken  string   `json:"access_token"`
		RefreshToken string   `json:"refresh_token"`
		User         *userDTO `json:"user"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.Post(ctx, "/auth/login", body, &resp); err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, fmt.Errorf("Login: tokens missing: %w", ErrSchema)
	}
	user, err := resp.User.toDomain()
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}
	return &LoginResult{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         *user,
	}, nil
}

func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Registration, error) {
	var resp struct {
		Message       string `json:"message"`
		UserID        int64  `json:"user_id"`
		AccountID     int64  `json:"account_id"`
		AccountNumber string `json:"account_number"`
	}
	body := map[string]string{
		"username": req.Username,
		"email":    req.Email,
		"password": req.Password,
	}
	if err := c.Post(ctx, "/auth/register", body, &resp); err != nil {
		return nil, fmt.Errorf("Register: %w", err)
	}
	if resp.UserID <= 0 {
		return nil, fmt.Errorf("Register: user id missing: %w", ErrSchema)
	}
	return &domain.Registration{
		Message:       resp.Message,
		UserID:        resp.UserID,
		AccountID:     resp.AccountID,
		AccountNumber: resp.AccountNumber,
	}, nil
}

func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var resp struct {
		User *userDTO `json:"user"`
	}
	if err := c.Get(ctx, "/auth/profile", &resp); err != nil {
		return nil, fmt.Errorf("Profile: %w", err)
	}
	user, err := resp.User.toDomain()
	if err != nil {
		return nil, fmt.Errorf("Profile: %w", err)
	}
	return user, nil
}

func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) (string, error) {
	var resp messageResponse
	body := map[string]string{"old_password": oldPassword, "new_password": newPassword}
	if err := c.Post(ctx, "/auth/change-password", body, &resp); err != nil {
		return "", fmt.Errorf("ChangePassword: %w", err)
	}
	return resp.Message, nil
}

func (c *Client) ResetPassword(ctx context.Context, username, email string) (string, error) {
	var resp messageResponse
	body := map[string]string{"username": username, "email": email}
	if err := c.Post(ctx, "/auth/reset-password", body, &resp); err != nil {
		return "", fmt.Errorf("ResetPassword: %w", err)
	}
	return resp.Message, nil
}

// Logout notifies the ledger using token rather than the token source, so it
// still works after local credentials have been cleared.
func (c *Client) Logout(ctx context.Context, token string) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, withBearer(token)); err != nil {
		return fmt.Errorf("Logout: %w", err)
	}
	return nil
}

// RefreshAccessToken exchanges a refresh token for a new access token.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, &resp, withBearer(refreshToken)); err != nil {
		return "", fmt.Errorf("RefreshAccessToken: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("RefreshAccessToken: token missing: %w", ErrSchema)
	}
	return resp.AccessToken, nil
}

func (c *Client) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var resp struct {
		Accounts *[]accountDTO `json:"accounts"`
	}
	if err := c.Get(ctx, "/accounts", &resp); err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	if resp.Accounts == nil {
		return nil, fmt.Errorf("ListAccounts: accounts missing: %w", ErrSchema)
	}
	accounts, err := accountsToDomain(*resp.Accounts)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, nil
}

func (c *Client) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	var resp struct {
		Account *accountDTO `json:"account"`
	}
	if err := c.Get(ctx, fmt.Sprintf("/accounts/%d", id), &resp); err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	a, err := resp.Account.toDomain()
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	return a, nil
}

func (c *Client) CreateAccount(ctx context.Context, accountType domain.AccountType, currency domain.Currency) (*domain.Account, error) {
	var resp struct {
		Message string      `json:"message"`
		Account *accountDTO `json:"account"`
	}
	body := map[string]string{"account_type": string(accountType), "currency": string(currency)}
	if err := c.Post(ctx, "/accounts", body, &resp); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	a, err := resp.Account.toDomain()
	if err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	return a, nil
}

// UpdateAccount changes an account's type or currency; empty values are not
// sent and stay as they are.
func (c *Client) UpdateAccount(ctx context.Context, id int64, accountType domain.AccountType, currency domain.Currency) (*domain.Account, error) {
	var resp struct {
		Message string      `json:"message"`
		Account *accountDTO `json:"account"`
	}
	body := struct {
		AccountType string `json:"account_type,omitempty"`
		Currency    string `json:"currency,omitempty"`
	}{string(accountType), string(currency)}
	if err := c.Put(ctx, fmt.Sprintf("/accounts/%d", id), body, &resp); err != nil {
		return nil, fmt.Errorf("UpdateAccount: %w", err)
	}
	a, err := resp.Account.toDomain()
	if err != nil {
		return nil, fmt.Errorf("UpdateAccount: %w", err)
	}
	return a, nil
}

// DeactivateAccount soft-deletes an account and returns the ledger's message.
func (c *Client) DeactivateAccount(ctx context.Context, id int64) (string, error) {
	var resp messageResponse
	if err := c.Delete(ctx, fmt.Sprintf("/accounts/%d", id), &resp); err != nil {
		return "", fmt.Errorf("DeactivateAccount: %w", err)
	}
	if resp.Message == "" {
		return "", fmt.Errorf("DeactivateAccount: message missing: %w", ErrSchema)
	}
	return resp.Message, nil
}

func (c *Client) AccountBalance(ctx context.Context, id int64) (*domain.Balance, error) {
	var resp struct {
		Balance  *decimal.Decimal `json:"balance"`
		Currency string           `json:"currency"`
	}
	if err := c.Get(ctx, fmt.Sprintf("/accounts/%d/balance", id), &resp); err != nil {
		return nil, fmt.Errorf("AccountBalance: %w", err)
	}
	currency := domain.Currency(resp.Currency)
	if resp.Balance == nil || !currency.IsValid() {
		return nil, fmt.Errorf("AccountBalance: %w", ErrSchema)
	}
	return &domain.Balance{Amount: *resp.Balance, Currency: currency}, nil
}

type mutationBody struct {
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
}

type transferBody struct {
	FromAccountID int64       `json:"from_account_id"`
	ToAccountID   int64       `json:"to_account_id"`
	Amount        json.Number `json:"amount"`
	Description   string      `json:"description"`
}

type mutationResponse struct {
	Message         string           `json:"message"`
	NewBalance      *decimal.Decimal `json:"new_balance"`
	Transaction     *transactionDTO  `json:"transaction"`
	FromBalance     *decimal.Decimal `json:"from_balance"`
	FromTransaction *transactionDTO  `json:"from_transaction"`
}

// toDomain requires a message: the ledger only reports success with one.
func (r *mutationResponse) toDomain() (*domain.MutationResult, error) {
	if r.Message == "" {
		return nil, fmt.Errorf("mutation response has no message: %w", ErrSchema)
	}
	res := &domain.MutationResult{Message: r.Message, NewBalance: r.NewBalance}
	dto := r.Transaction
	if r.FromTransaction != nil {
		dto = r.FromTransaction
		res.NewBalance = r.FromBalance
	}
	if dto != nil {
		t, err := dto.toDomain()
		if err != nil {
			return nil, err
		}
		res.Transaction = t
	}
	return res, nil
}

func (c *Client) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal, description string) (*domain.MutationResult, error) {
	var resp mutationResponse
	body := mutationBody{Amount: json.Number(amount.String()), Description: description}
	if err := c.Post(ctx, fmt.Sprintf("/accounts/%d/deposit", accountID), body, &resp); err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}
	res, err := resp.toDomain()
	if err != nil {
		return nil, fmt.Errorf("Deposit: %w", err)
	}
	return res, nil
}

func (c *Client) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal, description string) (*domain.MutationResult, error) {
	var resp mutationResponse
	body := mutationBody{Amount: json.Number(amount.String()), Description: description}
	if err := c.Post(ctx, fmt.Sprintf("/accounts/%d/withdraw", accountID), body, &resp); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	res, err := resp.toDomain()
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	return res, nil
}

func (c *Client) Transfer(ctx context.Context, fromAccountID, toAccountID int64, amount decimal.Decimal, description string) (*domain.MutationResult, error) {
	var resp mutationResponse
	body := transferBody{
		FromAccountID: fromAccountID,
		ToAccountID:   toAccountID,
		Amount:        json.Number(amount.String()),
		Description:   description,
	}
	if err := c.Post(ctx, "/transactions/transfer", body, &resp); err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}
	res, err := resp.toDomain()
	if err != nil {
		return nil, fmt.Errorf("Transfer: %w", err)
	}
	return res, nil
}

type pageResponse struct {
	Transactions *[]transactionDTO `json:"transactions"`
	Total        int               `json:"total"`
	Page         int               `json:"page"`
	Limit        int               `json:"limit"`
	Pages        int               `json:"pages"`
}

func (r *pageResponse) toDomain() (*TransactionPage, error) {
	if r.Transactions == nil {
		return nil, fmt.Errorf("transactions missing: %w", ErrSchema)
	}
	txs, err := transactionsToDomain(*r.Transactions)
	if err != nil {
		return nil, err
	}
	return &TransactionPage{
		Transactions: txs,
		Total:        r.Total,
		Page:         r.Page,
		Limit:        r.Limit,
		Pages:        r.Pages,
	}, nil
}

func (c *Client) ListTransactions(ctx context.Context, q TransactionQuery) (*TransactionPage, error) {
	var resp pageResponse
	if err := c.Get(ctx, "/transactions"+q.encode(), &resp); err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	page, err := resp.toDomain()
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	return page, nil
}

// AccountTransactions pages through a single account's history. Unlike
// ListTransactions with an account filter, the ledger answers 404 for an
// account the user cannot see.
func (c *Client) AccountTransactions(ctx context.Context, accountID int64, page, limit int) (*TransactionPage, error) {
	q := TransactionQuery{Page: page, Limit: limit}
	var resp pageResponse
	if err := c.Get(ctx, fmt.Sprintf("/accounts/%d/transactions", accountID)+q.encode(), &resp); err != nil {
		return nil, fmt.Errorf("AccountTransactions: %w", err)
	}
	out, err := resp.toDomain()
	if err != nil {
		return nil, fmt.Errorf("AccountTransactions: %w", err)
	}
	return out, nil
}

func (c *Client) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	var resp struct {
		Transaction *transactionDTO `json:"transaction"`
	}
	if err := c.Get(ctx, fmt.Sprintf("/transactions/%d", id), &resp); err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	tx, err := resp.Transaction.toDomain()
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return tx, nil
}

// TransactionStats fetches aggregate counts and sums. Zero times leave the
// range open on that side.
func (c *Client) TransactionStats(ctx context.Context, start, end time.Time) (*domain.TransactionStats, error) {
	var resp struct {
		TotalTransactions *int             `json:"total_transactions"`
		TotalDeposits     int              `json:"total_deposits"`
		TotalWithdrawals  int              `json:"total_withdrawals"`
		TotalTransfers    int              `json:"total_transfers"`
		TotalDeposited    *decimal.Decimal `json:"total_deposited"`
		TotalWithdrawn    *decimal.Decimal `json:"total_withdrawn"`
		NetAmount         *decimal.Decimal `json:"net_amount"`
	}
	q := TransactionQuery{Start: start, End: end}
	if err := c.Get(ctx, "/transactions/stats"+q.encode(), &resp); err != nil {
		return nil, fmt.Errorf("TransactionStats: %w", err)
	}
	if resp.TotalTransactions == nil || resp.TotalDeposited == nil || resp.TotalWithdrawn == nil || resp.NetAmount == nil {
		return nil, fmt.Errorf("TransactionStats: totals missing: %w", ErrSchema)
	}
	return &domain.TransactionStats{
		TotalTransactions: *resp.TotalTransactions,
		Deposits:          resp.TotalDeposits,
		Withdrawals:       resp.TotalWithdrawals,
		Transfers:         resp.TotalTransfers,
		TotalDeposited:    *resp.TotalDeposited,
		TotalWithdrawn:    *resp.TotalWithdrawn,
		NetAmount:         *resp.NetAmount,
	}, nil
}
