package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/josh-kwaku/grey-bank-client/internal/domain"
	"github.com/josh-kwaku/grey-bank-client/internal/gateway"
	"github.com/josh-kwaku/grey-bank-client/internal/transactions"
)

var errUsage = errors.New("usage error")

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":          {"log in and persist the session", runLogin},
	"logout":         {"end the session", runLogout},
	"whoami":         {"show the logged-in user", runWhoami},
	"register":       {"create a user", runRegister},
	"passwd":         {"change the password", runPasswd},
	"reset-password": {"request a password reset", runResetPassword},
	"refresh":        {"exchange the refresh token for a new access token", runRefresh},
	"accounts":       {"list accounts", runAccounts},
	"account":        {"show one account", runAccount},
	"open-account":   {"open a new account", runOpenAccount},
	"update-account": {"change an account's type or currency", runUpdateAccount},
	"close-account":  {"close an empty account", runCloseAccount},
	"balance":        {"show an account's current balance", runBalance},
	"statement":      {"list one account's transactions", runStatement},
	"transaction":    {"show one transaction", runTransaction},
	"stats":          {"summarise transactions over a date range", runStats},
	"deposit":        {"deposit into an account", runDeposit},
	"withdraw":       {"withdraw from an account", runWithdraw},
	"transfer":       {"transfer between two accounts", runTransfer},
	"history":        {"list transactions", runHistory},
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// parseFlags reports any parse failure as a usage error; the flag package has
// already printed the details.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// prompt reads one line from stdin when a value was not passed as a flag.
func (a *app) prompt(label, value string) string {
	if value != "" {
		return value
	}
	fmt.Fprintf(a.errOut, "%s: ", label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	username := fs.String("u", "", "username")
	password := fs.String("p", "", "password (prompted when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	user, err := a.session.Login(ctx, a.prompt("Username", *username), a.prompt("Password", *password))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", user.Username)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func runWhoami(_ context.Context, a *app, _ []string) error {
	s := a.session.Snapshot()
	if !s.IsAuthenticated() {
		return domain.NotAuthenticated()
	}
	role := "user"
	if s.User.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(a.out, "%s <%s> (id %d, %s)\n", s.User.Username, s.User.Email, s.User.ID, role)
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flags("register")
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	password := fs.String("p", "", "password (prompted when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	reg, err := a.session.Register(ctx, domain.RegisterRequest{
		Username: a.prompt("Username", *username),
		Email:    a.prompt("Email", *email),
		Password: a.prompt("Password", *password),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s. Account number %s\n", reg.Message, reg.AccountNumber)
	return nil
}

func runPasswd(ctx context.Context, a *app, args []string) error {
	fs := a.flags("passwd")
	oldPassword := fs.String("old", "", "current password (prompted when omitted)")
	newPassword := fs.String("new", "", "new password (prompted when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !a.session.IsAuthenticated() {
		return domain.NotAuthenticated()
	}

	if err := a.session.ChangePassword(ctx, a.prompt("Current password", *oldPassword), a.prompt("New password", *newPassword)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

func runResetPassword(ctx context.Context, a *app, args []string) error {
	fs := a.flags("reset-password")
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if err := a.session.ResetPassword(ctx, a.prompt("Username", *username), a.prompt("Email", *email)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password reset instructions sent to your email")
	return nil
}

func runRefresh(ctx context.Context, a *app, _ []string) error {
	if err := a.session.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Access token refreshed")
	return nil
}

func runAccounts(ctx context.Context, a *app, _ []string) error {
	if err := a.dir.Refresh(ctx); err != nil {
		return err
	}
	list := a.dir.List()
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No accounts")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNUMBER\tTYPE\tCURRENCY\tBALANCE")
	for _, acct := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", acct.ID, acct.AccountNumber, acct.AccountType, acct.Currency, acct.Balance.StringFixed(2))
	}
	return tw.Flush()
}

func runAccount(ctx context.Context, a *app, args []string) error {
	fs := a.flags("account")
	id := fs.Int64("id", 0, "account id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := a.requireID("account", *id); err != nil {
		return err
	}
	if !a.session.IsAuthenticated() {
		return domain.NotAuthenticated()
	}

	acct, err := a.dir.Fetch(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account %s (%s)\nBalance: %s %s\n",
		acct.AccountNumber, acct.AccountType, acct.Balance.StringFixed(2), acct.Currency)
	return nil
}

func runOpenAccount(ctx context.Context, a *app, args []string) error {
	fs := a.flags("open-account")
	accountType := fs.String("type", string(domain.AccountTypeSavings), "savings, checking or business")
	currency := fs.String("currency", string(domain.CurrencyUSD), "ISO currency code")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	acct, err := a.dir.Create(ctx, domain.AccountType(*accountType), domain.Currency(*currency))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account created: %s (%s %s)\n", acct.AccountNumber, acct.AccountType, acct.Currency)
	return nil
}

func runDeposit(ctx context.Context, a *app, args []string) error {
	return runMutation(ctx, a, domain.KindDeposit, args)
}

func runWithdraw(ctx context.Context, a *app, args []string) error {
	return runMutation(ctx, a, domain.KindWithdraw, args)
}

func runMutation(ctx context.Context, a *app, kind domain.RequestKind, args []string) error {
	fs := a.flags(string(kind))
	accountID := fs.Int64("account", 0, "account id (defaults to the first account)")
	amount := fs.String("amount", "", "amount, e.g. 25.00")
	description := fs.String("desc", "", "description")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	id, err := a.resolveAccount(ctx, *accountID)
	if err != nil {
		return err
	}
	return a.submit(ctx, domain.TransactionRequest{
		Kind:        kind,
		AccountID:   id,
		Amount:      *amount,
		Description: *description,
	})
}

func runTransfer(ctx context.Context, a *app, args []string) error {
	fs := a.flags("transfer")
	from := fs.Int64("from", 0, "source account id (defaults to the first account)")
	to := fs.Int64("to", 0, "destination account id")
	amount := fs.String("amount", "", "amount, e.g. 25.00")
	description := fs.String("desc", "", "description")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	id, err := a.resolveAccount(ctx, *from)
	if err != nil {
		return err
	}
	return a.submit(ctx, domain.TransactionRequest{
		Kind:        domain.KindTransfer,
		AccountID:   id,
		ToAccountID: *to,
		Amount:      *amount,
		Description: *description,
	})
}

// resolveAccount falls back to the default account when id is unset.
func (a *app) resolveAccount(ctx context.Context, id int64) (int64, error) {
	if id > 0 || !a.session.IsAuthenticated() {
		return id, nil
	}
	if err := a.dir.Refresh(ctx); err != nil {
		return 0, err
	}
	if def, ok := a.dir.Default(); ok {
		return def.ID, nil
	}
	return 0, nil
}

func (a *app) submit(ctx context.Context, req domain.TransactionRequest) error {
	receipt, err := a.orch.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, receipt.Message)
	if receipt.NewBalance != nil {
		fmt.Fprintf(a.out, "New balance: %s\n", receipt.NewBalance.StringFixed(2))
	}
	if receipt.Transaction != nil && receipt.Transaction.ReferenceNumber != "" {
		fmt.Fprintf(a.out, "Reference: %s\n", receipt.Transaction.ReferenceNumber)
	}
	if !receipt.Refreshed {
		fmt.Fprintln(a.errOut, "warning: account balances could not be refreshed")
	}
	return nil
}

func runHistory(ctx context.Context, a *app, args []string) error {
	fs := a.flags("history")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "transactions per page")
	accountID := fs.Int64("account", 0, "only this account")
	txType := fs.String("type", "", "deposit, withdrawal or transfer")
	search := fs.String("search", "", "description contains, case-insensitive")
	start := fs.String("start", "", "from date, YYYY-MM-DD")
	end := fs.String("end", "", "to date inclusive, YYYY-MM-DD")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	startAt, err := transactions.ParseDate(*start)
	if err != nil {
		return domain.Validation(errors.New("start date must be YYYY-MM-DD"))
	}
	endAt, err := transactions.ParseDate(*end)
	if err != nil {
		return domain.Validation(errors.New("end date must be YYYY-MM-DD"))
	}
	typ := domain.TransactionType(strings.ToLower(*txType))

	result, err := a.orch.LoadPage(ctx, gateway.TransactionQuery{
		Page:      *page,
		Limit:     *limit,
		AccountID: *accountID,
		Type:      typ,
		Start:     startAt,
	})
	if err != nil {
		return err
	}

	filter := transactions.Filter{Search: *search, Start: startAt, End: endAt}
	txs := result.Transactions
	if !filter.IsZero() {
		txs = transactions.ListFiltered(txs, filter)
	}
	if len(txs) == 0 {
		fmt.Fprintln(a.out, "No transactions")
		return nil
	}

	numbers := make(map[int64]string, len(result.Accounts))
	for _, acct := range result.Accounts {
		numbers[acct.ID] = acct.AccountNumber
	}
	if err := a.printTransactions(txs, numbers); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Page %d of %d (%d total)\n", result.Page, max(result.Pages, 1), result.Total)
	return nil
}

// printTransactions renders txs as a table. numbers maps account ids to
// account numbers; ids without an entry are printed as is.
func (a *app) printTransactions(txs []domain.Transaction, numbers map[int64]string) error {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tACCOUNT\tTYPE\tAMOUNT\tREFERENCE\tDESCRIPTION")
	for _, tx := range txs {
		account, ok := numbers[tx.AccountID]
		if !ok {
			account = strconv.FormatInt(tx.AccountID, 10)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.CreatedAt.Format("2006-01-02 15:04"), account, tx.Type,
			tx.Amount.StringFixed(2), tx.ReferenceNumber, tx.Description)
	}
	return tw.Flush()
}

func (a *app) requireID(cmd string, id int64) error {
	if id > 0 {
		return nil
	}
	fmt.Fprintf(a.errOut, "%s: -id is required\n", cmd)
	return errUsage
}

func runUpdateAccount(ctx context.Context, a *app, args []string) error {
	fs := a.flags("update-account")
	id := fs.Int64("id", 0, "account id")
	accountType := fs.String("type", "", "savings, checking or business")
	currency := fs.String("currency", "", "ISO currency code")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := a.requireID("update-account", *id); err != nil {
		return err
	}

	acct, err := a.dir.Update(ctx, *id, domain.AccountType(*accountType), domain.Currency(*currency))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Account updated: %s (%s %s)\n", acct.AccountNumber, acct.AccountType, acct.Currency)
	return nil
}

func runCloseAccount(ctx context.Context, a *app, args []string) error {
	fs := a.flags("close-account")
	id := fs.Int64("id", 0, "account id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := a.requireID("close-account", *id); err != nil {
		return err
	}

	msg, err := a.dir.Deactivate(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func runBalance(ctx context.Context, a *app, args []string) error {
	fs := a.flags("balance")
	id := fs.Int64("id", 0, "account id (defaults to the first account)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	accountID, err := a.resolveAccount(ctx, *id)
	if err != nil {
		return err
	}
	if err := a.requireID("balance", accountID); err != nil {
		return err
	}
	b, err := a.dir.Balance(ctx, accountID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s\n", b.Amount.StringFixed(2), b.Currency)
	return nil
}

func runStatement(ctx context.Context, a *app, args []string) error {
	fs := a.flags("statement")
	id := fs.Int64("id", 0, "account id (defaults to the first account)")
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 20, "transactions per page")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	accountID, err := a.resolveAccount(ctx, *id)
	if err != nil {
		return err
	}
	if err := a.requireID("statement", accountID); err != nil {
		return err
	}
	result, err := a.orch.AccountHistory(ctx, accountID, *page, *limit)
	if err != nil {
		return err
	}
	if len(result.Transactions) == 0 {
		fmt.Fprintln(a.out, "No transactions")
		return nil
	}

	numbers := map[int64]string{}
	if acct, ok := a.dir.ByID(accountID); ok {
		numbers[accountID] = acct.AccountNumber
	}
	if err := a.printTransactions(result.Transactions, numbers); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Page %d of %d (%d total)\n", result.Page, max(result.Pages, 1), result.Total)
	return nil
}

func runTransaction(ctx context.Context, a *app, args []string) error {
	fs := a.flags("transaction")
	id := fs.Int64("id", 0, "transaction id")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := a.requireID("transaction", *id); err != nil {
		return err
	}

	tx, err := a.orch.Transaction(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Transaction %d on account %d\n", tx.ID, tx.AccountID)
	fmt.Fprintf(a.out, "Type: %s\nAmount: %s\nStatus: %s\nReference: %s\n",
		tx.Type, tx.Amount.StringFixed(2), tx.Status, tx.ReferenceNumber)
	if tx.Description != "" {
		fmt.Fprintf(a.out, "Description: %s\n", tx.Description)
	}
	if !tx.CreatedAt.IsZero() {
		fmt.Fprintf(a.out, "Date: %s\n", tx.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runStats(ctx context.Context, a *app, args []string) error {
	fs := a.flags("stats")
	start := fs.String("start", "", "from date, YYYY-MM-DD")
	end := fs.String("end", "", "to date inclusive, YYYY-MM-DD")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	startAt, err := transactions.ParseDate(*start)
	if err != nil {
		return domain.Validation(errors.New("start date must be YYYY-MM-DD"))
	}
	endAt, err := transactions.ParseDate(*end)
	if err != nil {
		return domain.Validation(errors.New("end date must be YYYY-MM-DD"))
	}

	st, err := a.orch.Stats(ctx, startAt, endAt)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Transactions\t%d\n", st.TotalTransactions)
	fmt.Fprintf(tw, "Deposits\t%d\t%s\n", st.Deposits, st.TotalDeposited.StringFixed(2))
	fmt.Fprintf(tw, "Withdrawals\t%d\t%s\n", st.Withdrawals, st.TotalWithdrawn.StringFixed(2))
	fmt.Fprintf(tw, "Transfers\t%d\n", st.Transfers)
	fmt.Fprintf(tw, "Net\t\t%s\n", st.NetAmount.StringFixed(2))
	return tw.Flush()
}
