package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/grey-bank-client/internal/config"
	"github.com/josh-kwaku/grey-bank-client/internal/ledgerstub"
	"github.com/josh-kwaku/grey-bank-client/internal/logging"
	"github.com/josh-kwaku/grey-bank-client/internal/server"
)

type cli struct {
	t   *testing.T
	cfg *config.Config
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	h := server.NewHandler(server.Config{
		JWTSecret:  "cli-test-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}, ledgerstub.New(decimal.NewFromInt(1_000_000)), ledgerstub.NewIdempotencyCache(), logging.Discard())
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return &cli{t: t, cfg: &config.Config{
		LedgerURL:           srv.URL + "/api",
		HTTPTimeoutS:        5,
		CredentialBackend:   config.BackendFile,
		CredentialFile:      filepath.Join(t.TempDir(), "bankcli", "credentials.json"),
		CredentialNamespace: "default",
	}}
}

func (c *cli) run(args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), c.cfg, logging.Discard(), args, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	code, out, errOut := c.run(args...)
	require.Equal(c.t, 0, code, "bankcli %s: %s", strings.Join(args, " "), errOut)
	return out
}

func TestCLISession(t *testing.T) {
	c := newCLI(t)

	out := c.ok("register", "-u", "alice", "-e", "alice@example.com", "-p", "secret1")
	assert.Contains(t, out, "User registered successfully")

	out = c.ok("login", "-u", "alice", "-p", "secret1")
	assert.Equal(t, "Logged in as alice\n", out)

	out = c.ok("whoami")
	assert.Contains(t, out, "alice <alice@example.com>")

	c.ok("refresh")
	c.ok("whoami")

	c.ok("logout")
	code, _, errOut := c.run("whoami")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Please log in first")
}

func TestCLIBanking(t *testing.T) {
	c := newCLI(t)
	c.ok("register", "-u", "bob", "-e", "bob@example.com", "-p", "secret1")
	c.ok("login", "-u", "bob", "-p", "secret1")

	out := c.ok("deposit", "-amount", "100", "-desc", "salary")
	assert.Contains(t, out, "Deposit successful")
	assert.Contains(t, out, "New balance: 100.00")

	out = c.ok("open-account", "-type", "checking", "-currency", "usd")
	assert.Contains(t, out, "(checking USD)")

	out = c.ok("accounts")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "savings")
	assert.Contains(t, lines[1], "100.00")
	assert.Contains(t, lines[2], "checking")

	out = c.ok("withdraw", "-amount", "40.25")
	assert.Contains(t, out, "New balance: 59.75")

	out = c.ok("history", "-search", "salary")
	assert.Contains(t, out, "100.00")
	assert.NotContains(t, out, "-40.25")

	out = c.ok("history", "-type", "withdrawal")
	assert.Contains(t, out, "-40.25")
	assert.NotContains(t, out, "salary")
}

func TestCLIAccountMaintenance(t *testing.T) {
	c := newCLI(t)
	c.ok("register", "-u", "carol", "-e", "carol@example.com", "-p", "secret1")
	c.ok("login", "-u", "carol", "-p", "secret1")

	c.ok("deposit", "-amount", "100", "-desc", "salary")
	c.ok("withdraw", "-amount", "40")
	c.ok("open-account", "-type", "checking")

	lines := strings.Split(strings.TrimSpace(c.ok("accounts")), "\n")
	require.Len(t, lines, 3)
	savingsID := strings.Fields(lines[1])[0]
	checkingID := strings.Fields(lines[2])[0]

	out := c.ok("balance", "-id", savingsID)
	assert.Equal(t, "60.00 USD\n", out)

	out = c.ok("update-account", "-id", checkingID, "-type", "business")
	assert.Contains(t, out, "(business USD)")

	out = c.ok("statement", "-id", savingsID)
	assert.Contains(t, out, "salary")
	assert.Contains(t, out, "-40.00")
	assert.Contains(t, out, "Page 1 of 1 (2 total)")

	out = c.ok("statement", "-id", checkingID)
	assert.Equal(t, "No transactions\n", out)

	day := time.Now().UTC()
	out = c.ok("stats",
		"-start", day.AddDate(0, 0, -1).Format("2006-01-02"),
		"-end", day.AddDate(0, 0, 1).Format("2006-01-02"))
	assert.Regexp(t, `Transactions\s+2`, out)
	assert.Regexp(t, `Deposits\s+1\s+100\.00`, out)
	assert.Regexp(t, `Withdrawals\s+1\s+40\.00`, out)
	assert.Regexp(t, `Net\s+60\.00`, out)

	code, _, errOut := c.run("close-account", "-id", savingsID)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Cannot delete account with positive balance")

	out = c.ok("close-account", "-id", checkingID)
	assert.Contains(t, out, "Account deleted successfully")

	lines = strings.Split(strings.TrimSpace(c.ok("accounts")), "\n")
	assert.Len(t, lines, 2)
}

func TestCLITransactionLookup(t *testing.T) {
	c := newCLI(t)
	c.ok("register", "-u", "dave", "-e", "dave@example.com", "-p", "secret1")
	c.ok("login", "-u", "dave", "-p", "secret1")
	c.ok("deposit", "-amount", "12.50", "-desc", "refund")

	out := c.ok("transaction", "-id", "1")
	assert.Contains(t, out, "Type: deposit")
	assert.Contains(t, out, "Amount: 12.50")
	assert.Contains(t, out, "Description: refund")

	code, _, errOut := c.run("transaction", "-id", "999")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Transaction not found")
}

func TestCLIFailures(t *testing.T) {
	c := newCLI(t)

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"no command", nil, 2, "usage: bankcli"},
		{"unknown command", []string{"frobnicate"}, 2, `unknown command "frobnicate"`},
		{"bad flag", []string{"deposit", "-bogus"}, 2, "flag provided but not defined"},
		{"deposit logged out", []string{"deposit", "-account", "1", "-amount", "5"}, 1, "Please log in first"},
		{"invalid amount", []string{"deposit", "-account", "1", "-amount", "abc"}, 1, "amount must be a positive number"},
		{"bad login", []string{"login", "-u", "nobody", "-p", "secret1"}, 1, "Invalid username or password"},
		{"bad date", []string{"history", "-start", "yesterday"}, 1, "start date must be YYYY-MM-DD"},
		{"update without id", []string{"update-account", "-type", "savings"}, 2, "update-account: -id is required"},
		{"close without id", []string{"close-account"}, 2, "close-account: -id is required"},
		{"transaction without id", []string{"transaction"}, 2, "transaction: -id is required"},
		{"stats bad date", []string{"stats", "-end", "tomorrow"}, 1, "end date must be YYYY-MM-DD"},
		{"statement logged out", []string{"statement", "-id", "1"}, 1, "Please log in first"},
		{"amount too large", []string{"deposit", "-account", "1", "-amount", "1e9"}, 1, "amount must be a positive number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := c.run(tt.args...)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, errOut, tt.wantErr)
		})
	}
}
