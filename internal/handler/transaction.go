package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/grey-bank-client/internal/auth"
	"github.com/josh-kwaku/grey-bank-client/internal/domain"
	"github.com/josh-kwaku/grey-bank-client/internal/ledgerstub"
	"github.com/josh-kwaku/grey-bank-client/internal/logging"
)

type transactionLedger interface {
	Transactions(userID int64, q ledgerstub.Query) ledgerstub.Page
	Transaction(userID, txID int64) (*domain.Transaction, error)
	Stats(userID int64, start, end time.Time) domain.TransactionStats
	Transfer(userID, fromID, toID int64, amount decimal.Decimal, description string) (*ledgerstub.TransferResult, error)
}

type TransactionHandler struct {
	ledger transactionLedger
}

func NewTransactionHandler(ledger transactionLedger) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken)
		return
	}

	q, appErr := parseTransactionQuery(r)
	if appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	respondPage(w, h.ledger.Transactions(userID, q))
}

func respondPage(w http.ResponseWriter, page ledgerstub.Page) {
	dtos := make([]transactionDTO, len(page.Transactions))
	for i := range page.Transactions {
		dtos[i] = toTransactionDTO(&page.Transactions[i])
	}
	RespondJSON(w, http.StatusOK, map[string]any{
		"transactions": dtos,
		"total":        page.Total,
		"page":         page.Page,
		"limit":        page.Limit,
		"pages":        page.Pages,
	})
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken)
		return
	}
	txID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || txID <= 0 {
		RespondAppError(w, ErrTransactionNotFound)
		return
	}

	tx, err := h.ledger.Transaction(userID, txID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]transactionDTO{"transaction": toTransactionDTO(tx)})
}

type statsResponse struct {
	TotalTransactions int         `json:"total_transactions"`
	TotalDeposits     int         `json:"total_deposits"`
	TotalWithdrawals  int         `json:"total_withdrawals"`
	TotalTransfers    int         `json:"total_transfers"`
	TotalDeposited    json.Number `json:"total_deposited"`
	TotalWithdrawn    json.Number `json:"total_withdrawn"`
	NetAmount         json.Number `json:"net_amount"`
}

func (h *TransactionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken)
		return
	}

	q, appErr := parseTransactionQuery(r)
	if appErr != nil {
		RespondAppError(w, appErr)
		return
	}

	st := h.ledger.Stats(userID, q.Start, q.End)
	RespondJSON(w, http.StatusOK, statsResponse{
		TotalTransactions: st.TotalTransactions,
		TotalDeposits:     st.Deposits,
		TotalWithdrawals:  st.Withdrawals,
		TotalTransfers:    st.Transfers,
		TotalDeposited:    number(st.TotalDeposited),
		TotalWithdrawn:    number(st.TotalWithdrawn),
		NetAmount:         number(st.NetAmount),
	})
}

// parseTransactionQuery ignores malformed page, limit and account_id values,
// leaving the defaults in place, but rejects malformed dates.
func parseTransactionQuery(r *http.Request) (ledgerstub.Query, *AppError) {
	v := r.URL.Query()
	q := ledgerstub.Query{
		Type: domain.TransactionType(v.Get("type")),
	}
	q.Page, q.Limit = pageParams(r)
	if n, err := strconv.ParseInt(v.Get("account_id"), 10, 64); err == nil {
		q.AccountID = n
	}

	var err error
	if q.Start, err = parseQueryTime(v.Get("start_date")); err != nil {
		return q, ErrInvalidDate
	}
	if q.End, err = parseQueryTime(v.Get("end_date")); err != nil {
		return q, ErrInvalidDate
	}
	return q, nil
}

// pageParams reads page and limit, leaving zero for anything malformed so
// the ledger defaults apply.
func pageParams(r *http.Request) (page, limit int) {
	v := r.URL.Query()
	if n, err := strconv.Atoi(v.Get("page")); err == nil {
		page = n
	}
	if n, err := strconv.Atoi(v.Get("limit")); err == nil {
		limit = n
	}
	return page, limit
}

func parseQueryTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

type transferRequest struct {
	FromAccountID int64            `json:"from_account_id"`
	ToAccountID   int64            `json:"to_account_id"`
	Amount        *decimal.Decimal `json:"amount"`
	Description   string           `json:"description"`
}

type transferResponse struct {
	Message         string         `json:"message"`
	FromTransaction transactionDTO `json:"from_transaction"`
	ToTransaction   transactionDTO `json:"to_transaction"`
	FromBalance     json.Number    `json:"from_balance"`
	ToBalance       json.Number    `json:"to_balance"`
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken)
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrNoData)
		return
	}
	if req.FromAccountID <= 0 || req.ToAccountID <= 0 || req.Amount == nil {
		RespondAppError(w, ErrTransferFields)
		return
	}

	res, err := h.ledger.Transfer(userID, req.FromAccountID, req.ToAccountID, *req.Amount, req.Description)
	if err != nil {
		logging.FromContext(r.Context()).Info("transfer rejected",
			"from_account_id", req.FromAccountID,
			"to_account_id", req.ToAccountID,
			"error", err,
		)
		RespondDomainError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, transferResponse{
		Message:         res.Message,
		FromTransaction: toTransactionDTO(&res.FromTransaction),
		ToTransaction:   toTransactionDTO(&res.ToTransaction),
		FromBalance:     number(res.FromBalance),
		ToBalance:       number(res.ToBalance),
	})
}
