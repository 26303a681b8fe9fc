package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/grey-bank-client/internal/auth"
	"github.com/josh-kwaku/grey-bank-client/internal/ledgerstub"
	"github.com/josh-kwaku/grey-bank-client/internal/logging"
	"github.com/josh-kwaku/grey-bank-client/internal/server"
)

const testSecret = "test-secret-key-for-unit-tests"

type stub struct {
	srv    *httptest.Server
	ledger *ledgerstub.Ledger
}

func newStub(t *testing.T) *stub {
	t.Helper()
	ledger := ledgerstub.New(decimal.NewFromInt(1_000_000))
	h := server.NewHandler(server.Config{
		JWTSecret:  testSecret,
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}, ledger, ledgerstub.NewIdempotencyCache(), logging.Discard())
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &stub{srv: srv, ledger: ledger}
}

func (s *stub) do(t *testing.T, method, path, token string, body any, headers ...string) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (s *stub) login(t *testing.T, username string) (access, refresh string, accountID int64) {
	t.Helper()
	reg, err := s.ledger.Register(username, username+"@example.com", "secret1", false)
	require.NoError(t, err)

	resp, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["access_token"].(string), body["refresh_token"].(string), reg.AccountID
}

func TestHealth(t *testing.T) {
	s := newStub(t)

	resp, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestIDPropagated(t *testing.T) {
	s := newStub(t)

	resp, _ := s.do(t, http.MethodGet, "/health", "", nil, "X-Request-ID", "req-123")
	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
}

func TestAuthRejections(t *testing.T) {
	s := newStub(t)
	access, refresh, _ := s.login(t, "alice")

	expired, err := auth.GenerateToken(1, "alice", auth.KindAccess, testSecret, -time.Minute)
	require.NoError(t, err)
	forged, err := auth.GenerateToken(1, "alice", auth.KindAccess, "another-secret", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{"missing header", "", http.StatusUnauthorized, "Missing Authorization Header"},
		{"not bearer", "Token " + access, http.StatusUnprocessableEntity, "Invalid token"},
		{"garbage", "Bearer not-a-jwt", http.StatusUnprocessableEntity, "Invalid token"},
		{"wrong secret", "Bearer " + forged, http.StatusUnprocessableEntity, "Invalid token"},
		{"refresh token used as access", "Bearer " + refresh, http.StatusUnprocessableEntity, "Invalid token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Token has expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, http.MethodGet, "/api/auth/profile", "", nil, "Authorization", tt.header)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newStub(t)
	access, _, _ := s.login(t, "alice")

	resp, body := s.do(t, http.MethodPost, "/api/auth/logout", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Logged out successfully", body["message"])

	resp, body = s.do(t, http.MethodGet, "/api/auth/profile", access, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Token has been revoked", body["error"])
}

func TestRefreshIssuesAccessToken(t *testing.T) {
	s := newStub(t)
	access, refresh, _ := s.login(t, "alice")

	resp, _ := s.do(t, http.MethodPost, "/api/auth/refresh", access, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/auth/refresh", refresh, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fresh := body["access_token"].(string)
	assert.NotEqual(t, access, fresh)

	resp, body = s.do(t, http.MethodGet, "/api/auth/profile", fresh, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["user"].(map[string]any)["username"])
}

func TestIdempotentDeposit(t *testing.T) {
	s := newStub(t)
	access, _, accountID := s.login(t, "alice")
	path := "/api/accounts/" + itoa(accountID) + "/deposit"

	resp, first := s.do(t, http.MethodPost, path, access, map[string]any{"amount": 25}, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Idempotent-Replayed"))

	resp, second := s.do(t, http.MethodPost, path, access, map[string]any{"amount": 25}, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("X-Idempotent-Replayed"))
	assert.Equal(t, first, second)

	_, acct := s.do(t, http.MethodGet, "/api/accounts/"+itoa(accountID), access, nil)
	assert.Equal(t, 25.0, acct["account"].(map[string]any)["balance"])

	resp, body := s.do(t, http.MethodPost, path, access, map[string]any{"amount": 30}, "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Idempotency key already used with a different request", body["error"])
}

func TestIdempotencyKeyScopedPerUser(t *testing.T) {
	s := newStub(t)
	aliceToken, _, aliceAcct := s.login(t, "alice")
	bobToken, _, bobAcct := s.login(t, "bob")

	resp, _ := s.do(t, http.MethodPost, "/api/accounts/"+itoa(aliceAcct)+"/deposit", aliceToken,
		map[string]any{"amount": 10}, "Idempotency-Key", "shared")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/accounts/"+itoa(bobAcct)+"/deposit", bobToken,
		map[string]any{"amount": 10}, "Idempotency-Key", "shared")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Idempotent-Replayed"))
}

func TestForeignAccountIsNotFound(t *testing.T) {
	s := newStub(t)
	_, _, aliceAcct := s.login(t, "alice")
	bobToken, _, _ := s.login(t, "bob")

	resp, body := s.do(t, http.MethodGet, "/api/accounts/"+itoa(aliceAcct), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Account not found", body["error"])
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestAccountMaintenanceEndpoints(t *testing.T) {
	s := newStub(t)
	access, _, accountID := s.login(t, "alice")
	bobToken, _, _ := s.login(t, "bob")
	acct := "/api/accounts/" + itoa(accountID)

	resp, body := s.do(t, http.MethodPut, acct, access, map[string]string{"account_type": "business", "currency": "EUR"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Account updated successfully", body["message"])
	assert.Equal(t, "business", body["account"].(map[string]any)["account_type"])

	resp, body = s.do(t, http.MethodPut, acct, access, map[string]string{"account_type": "loan"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid account type", body["error"])

	resp, _ = s.do(t, http.MethodPost, acct+"/deposit", access, map[string]any{"amount": 40})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, acct+"/balance", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 40.0, body["balance"])
	assert.Equal(t, "EUR", body["currency"])

	resp, body = s.do(t, http.MethodGet, acct+"/transactions?limit=1", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["transactions"], 1)
	assert.Equal(t, 1.0, body["pages"])

	for _, path := range []string{acct + "/balance", acct + "/transactions"} {
		resp, body = s.do(t, http.MethodGet, path, bobToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "Account not found", body["error"], path)
	}

	resp, body = s.do(t, http.MethodDelete, acct, access, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Cannot delete account with positive balance", body["error"])

	resp, _ = s.do(t, http.MethodPost, acct+"/withdraw", access, map[string]any{"amount": 40})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.do(t, http.MethodDelete, acct, access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Account deleted successfully", body["message"])

	resp, _ = s.do(t, http.MethodGet, acct, access, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransactionLookupAndStats(t *testing.T) {
	s := newStub(t)
	access, _, accountID := s.login(t, "alice")
	bobToken, _, _ := s.login(t, "bob")

	_, dep := s.do(t, http.MethodPost, "/api/accounts/"+itoa(accountID)+"/deposit", access, map[string]any{"amount": 100})
	_, _ = s.do(t, http.MethodPost, "/api/accounts/"+itoa(accountID)+"/withdraw", access, map[string]any{"amount": 30.5})
	txID := int64(dep["transaction"].(map[string]any)["id"].(float64))

	resp, body := s.do(t, http.MethodGet, "/api/transactions/"+itoa(txID), access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "deposit", body["transaction"].(map[string]any)["transaction_type"])

	resp, body = s.do(t, http.MethodGet, "/api/transactions/"+itoa(txID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Transaction not found", body["error"])

	resp, body = s.do(t, http.MethodGet, "/api/transactions/stats", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2.0, body["total_transactions"])
	assert.Equal(t, 1.0, body["total_deposits"])
	assert.Equal(t, 100.0, body["total_deposited"])
	assert.Equal(t, 30.5, body["total_withdrawn"])
	assert.Equal(t, 69.5, body["net_amount"])

	resp, body = s.do(t, http.MethodGet, "/api/transactions/stats?start_date=2999-01-01", access, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.0, body["total_transactions"])

	resp, body = s.do(t, http.MethodGet, "/api/transactions/stats?start_date=yesterday", access, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid date format", body["error"])
}

func TestTransactionPagingIsBounded(t *testing.T) {
	s := newStub(t)
	access, _, accountID := s.login(t, "alice")
	resp, _ := s.do(t, http.MethodPost, "/api/accounts/"+itoa(accountID)+"/deposit", access, map[string]any{"amount": 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tests := []struct {
		name      string
		query     string
		wantLen   int
		wantLimit float64
	}{
		{"page past int range", "?page=922337203685477582&limit=10", 0, 10},
		{"limit capped", "?limit=100000", 1, float64(ledgerstub.MaxPageLimit)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/api/transactions", "/api/accounts/" + itoa(accountID) + "/transactions"} {
				resp, body := s.do(t, http.MethodGet, path+tt.query, access, nil)
				require.Equal(t, http.StatusOK, resp.StatusCode, path)
				assert.Len(t, body["transactions"], tt.wantLen, path)
				assert.Equal(t, tt.wantLimit, body["limit"], path)
			}
		})
	}
}
