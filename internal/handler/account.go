package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/grey-bank-client/internal/auth"
	"github.com/josh-kwaku/grey-bank-client/internal/domain"
	"github.com/josh-kwaku/grey-bank-client/internal/ledgerstub"
	"github.com/josh-kwaku/grey-bank-client/internal/logging"
)

type accountLedger interface {
	Accounts(userID int64) []domain.Account
	Account(userID, accountID int64) (*domain.Account, error)
	CreateAccount(userID int64, accountType domain.AccountType, currency domain.Currency) (*domain.Account, error)
	UpdateAccount(userID, accountID int64, accountType domain.AccountType, currency domain.Currency) (*domain.Account, error)
	DeactivateAccount(userID, accountID int64) error
	AccountTransactions(userID, accountID int64, page, limit int) (ledgerstub.Page, error)
	Deposit(userID, accountID int64, amount decimal.Decimal, description string) (*ledgerstub.Mutation, error)
	Withdraw(userID, accountID int64, amount decimal.Decimal, description string) (*ledgerstub.Mutation, error)
}

type AccountHandler struct {
	accounts accountLedger
}

func NewAccountHandler(accounts accountLedger) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// accountFromPath resolves the caller and the {id} path segment. An
// unparsable id is reported as a missing account.
func accountFromPath(r *http.Request) (int64, int64, *AppError) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return 0, 0, ErrMissingToken
	}
	accountID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || accountID <= 0 {
		return 0, 0, ErrAccountNotFound
	}
	return userID, accountID, nil
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken)
		return
	}

	accounts := h.accounts.Accounts(userID)
	dtos := make([]accountDTO, len(accounts))
	for i := range accounts {
		dtos[i] = toAccountDTO(&accounts[i])
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"accounts": dtos,
		"total":    len(dtos),
	})
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, accountID, appErr := accountFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	account, err := h.accounts.Account(userID, accountID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]accountDTO{"account": toAccountDTO(account)})
}

type createAccountRequest struct {
	AccountType string `json:"account_type"`
	Currency    string `json:"currency"`
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken)
		return
	}

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrNoData)
		return
	}

	account, err := h.accounts.CreateAccount(userID, domain.AccountType(req.AccountType), domain.Currency(req.Currency))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	logging.FromContext(r.Context()).Info("account created", "account_id", account.ID)
	RespondJSON(w, http.StatusCreated, map[string]any{
		"message": "Account created successfully",
		"account": toAccountDTO(account),
	})
}

func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, accountID, appErr := accountFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrNoData)
		return
	}

	account, err := h.accounts.UpdateAccount(userID, accountID, domain.AccountType(req.AccountType), domain.Currency(req.Currency))
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	logging.FromContext(r.Context()).Info("account updated", "account_id", account.ID)
	RespondJSON(w, http.StatusOK, map[string]any{
		"message": "Account updated successfully",
		"account": toAccountDTO(account),
	})
}

// Delete soft-deletes the account; its history stays on the ledger but is
// no longer listed.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, accountID, appErr := accountFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	if err := h.accounts.DeactivateAccount(userID, accountID); err != nil {
		RespondDomainError(w, err)
		return
	}

	logging.FromContext(r.Context()).Info("account deactivated", "account_id", accountID)
	RespondMessage(w, http.StatusOK, "Account deleted successfully")
}

func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, accountID, appErr := accountFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	account, err := h.accounts.Account(userID, accountID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"balance":  number(account.Balance),
		"currency": account.Currency,
	})
}

func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, accountID, appErr := accountFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	pageNum, limit := pageParams(r)
	page, err := h.accounts.AccountTransactions(userID, accountID, pageNum, limit)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	respondPage(w, page)
}

type amountRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description"`
}

type mutationResponse struct {
	Message     string         `json:"message"`
	NewBalance  json.Number    `json:"new_balance"`
	Transaction transactionDTO `json:"transaction"`
}

func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.accounts.Deposit)
}

func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.accounts.Withdraw)
}

type mutateFunc func(userID, accountID int64, amount decimal.Decimal, description string) (*ledgerstub.Mutation, error)

func (h *AccountHandler) mutate(w http.ResponseWriter, r *http.Request, apply mutateFunc) {
	userID, accountID, appErr := accountFromPath(r)
	if appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrNoData)
		return
	}
	if req.Amount == nil {
		RespondAppError(w, ErrAmountRequired)
		return
	}

	m, err := apply(userID, accountID, *req.Amount, req.Description)
	if err != nil {
		logging.FromContext(r.Context()).Info("mutation rejected", "account_id", accountID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, mutationResponse{
		Message:     m.Message,
		NewBalance:  number(m.NewBalance),
		Transaction: toTransactionDTO(&m.Transaction),
	})
}
