package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/josh-kwaku/grey-bank-client/internal/credstore"
	"github.com/josh-kwaku/grey-bank-client/internal/domain"
	"github.com/josh-kwaku/grey-bank-client/internal/gateway"
	"github.com/josh-kwaku/grey-bank-client/internal/logging"
)

var errCredentialsRequired = errors.New("username and password are required")

type authAPI interface {
	Login(ctx context.Context, username, password string) (*gateway.LoginResult, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.Registration, error)
	Profile(ctx context.Context) (*domain.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) (string, error)
	ResetPassword(ctx context.Context, username, email string) (string, error)
	Logout(ctx context.Context, token string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
}

// Manager owns the authentication lifecycle. It is the only writer of the
// session and of the persisted tokens; everything else reads through it.
//
// States: unauthenticated (no user) and authenticated (user and access
// token). IsLoading is set from construction until the first Bootstrap
// finishes.
type Manager struct {
	store  credstore.Store
	api    authAPI
	logger *slog.Logger

	// transition serializes changes that touch both the session and the
	// store, so a logout cannot wipe tokens a concurrent login just wrote.
	transition sync.Mutex

	mu        sync.RWMutex
	session   domain.Session
	loaded    bool
	validated string

	hooksMu  sync.Mutex
	onLogout []func()
}

func NewManager(store credstore.Store, api authAPI, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		store:   store,
		api:     api,
		logger:  logger.With("component", "session"),
		session: domain.Session{IsLoading: true},
	}
}

// Bootstrap turns persisted tokens into a validated session. The profile is
// fetched only when the access token differs from the one last validated, so
// calling it again with an unchanged token is a no-op. Any failure, whether
// the token was rejected or the ledger was unreachable, logs the user out,
// unless a login or logout replaced the token while the profile was in flight.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.loadPersisted(ctx)
	defer m.setLoading(false)

	m.mu.RLock()
	token := m.session.AccessToken
	upToDate := token != "" && token == m.validated && m.session.User != nil
	m.mu.RUnlock()

	if token == "" || upToDate {
		return nil
	}

	user, err := m.api.Profile(ctx)
	if err != nil {
		if !m.logout(ctx, token) {
			m.logger.Info("stale profile failure ignored", "error", err)
			return nil
		}
		m.logger.Warn("profile bootstrap failed, logged out", "error", err)
		return gateway.Classify(err, "Session expired, please log in again")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.AccessToken != token {
		// a login or logout landed while the profile was in flight
		return nil
	}
	m.session.User = user
	m.validated = token
	m.logger.Debug("session bootstrapped", "user_id", user.ID)
	return nil
}

func (m *Manager) loadPersisted(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return
	}
	m.loaded = true

	access, _, err := m.store.Get(ctx, credstore.KeyAccessToken)
	if err != nil {
		m.logger.Warn("read persisted access token", "error", err)
		return
	}
	refresh, _, err := m.store.Get(ctx, credstore.KeyRefreshToken)
	if err != nil {
		m.logger.Warn("read persisted refresh token", "error", err)
	}
	m.session.AccessToken = access
	m.session.RefreshToken = refresh
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.session.IsLoading = v
	m.mu.Unlock()
}

func (m *Manager) Login(ctx context.Context, username, password string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, domain.Validation(errCredentialsRequired)
	}

	res, err := m.api.Login(ctx, username, password)
	if err != nil {
		m.logger.Info("login rejected", "username", username, "error", err)
		return nil, gateway.Classify(err, "Login failed")
	}

	m.transition.Lock()
	defer m.transition.Unlock()
	m.persist(ctx, credstore.KeyAccessToken, res.AccessToken)
	m.persist(ctx, credstore.KeyRefreshToken, res.RefreshToken)

	user := res.User
	m.mu.Lock()
	m.loaded = true
	m.session = domain.Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		User:         &user,
	}
	m.validated = ""
	m.mu.Unlock()

	m.logger.Info("logged in", "user_id", user.ID)
	out := user
	return &out, nil
}

// persist writes a token through to the store. A write failure only costs
// durability, so the in-memory session still proceeds.
func (m *Manager) persist(ctx context.Context, key, value string) {
	if err := m.store.Set(ctx, key, value); err != nil {
		m.logger.Error("persist credential", "key", key, "error", err)
	}
}

// Register creates an account on the ledger. It never logs the user in.
func (m *Manager) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Registration, error) {
	reg, err := m.api.Register(ctx, req)
	if err != nil {
		return nil, gateway.Classify(err, "Registration failed")
	}
	return reg, nil
}

// Logout always leaves local state empty. The ledger is notified afterwards
// with the captured token; a failed notification is only logged.
func (m *Manager) Logout(ctx context.Context) {
	m.logout(ctx, "")
}

// OnLogout registers fn to run after every logout, once local state is
// cleared. Caches derived from the session hang off this.
func (m *Manager) OnLogout(fn func()) {
	m.hooksMu.Lock()
	m.onLogout = append(m.onLogout, fn)
	m.hooksMu.Unlock()
}

// logout clears the session. A non-empty expected restricts it to the case
// where that token is still current; it reports whether anything was cleared.
func (m *Manager) logout(ctx context.Context, expected string) bool {
	m.transition.Lock()
	m.mu.Lock()
	token := m.session.AccessToken
	if expected != "" && token != expected {
		m.mu.Unlock()
		m.transition.Unlock()
		return false
	}
	m.session = domain.Session{}
	m.loaded = true
	m.validated = ""
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("clear persisted credentials", "error", err)
	}
	m.transition.Unlock()

	m.hooksMu.Lock()
	hooks := append([]func(){}, m.onLogout...)
	m.hooksMu.Unlock()
	for _, fn := range hooks {
		fn()
	}

	if token != "" {
		if err := m.api.Logout(ctx, token); err != nil {
			m.logger.Warn("logout notification failed", "error", err)
		}
	}
	return true
}

func (m *Manager) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if !m.IsAuthenticated() {
		return domain.NotAuthenticated()
	}
	if _, err := m.api.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		return gateway.Classify(err, "Password change failed")
	}
	return nil
}

func (m *Manager) ResetPassword(ctx context.Context, username, email string) error {
	if _, err := m.api.ResetPassword(ctx, username, email); err != nil {
		return gateway.Classify(err, "Password reset failed")
	}
	return nil
}

// Refresh exchanges the refresh token for a new access token. The user stays
// in place; the next Bootstrap re-validates the new token. Failure logs out.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.RLock()
	refresh := m.session.RefreshToken
	m.mu.RUnlock()

	if refresh == "" {
		return domain.AuthFailure("Session expired, please log in again", domain.ErrNotAuthenticated)
	}

	access, err := m.api.RefreshAccessToken(ctx, refresh)
	if err != nil {
		m.logger.Warn("token refresh failed, logging out", "error", err)
		m.Logout(ctx)
		return gateway.Classify(err, "Session expired, please log in again")
	}

	m.transition.Lock()
	defer m.transition.Unlock()
	m.mu.Lock()
	if m.session.RefreshToken != refresh {
		// logged out or replaced while the exchange was in flight
		m.mu.Unlock()
		return domain.AuthFailure("Session expired, please log in again", domain.ErrNotAuthenticated)
	}
	m.session.AccessToken = access
	m.validated = ""
	m.mu.Unlock()
	m.persist(ctx, credstore.KeyAccessToken, access)
	return nil
}

func (m *Manager) Snapshot() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// AccessToken satisfies gateway.TokenSource.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.AccessToken
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.IsAuthenticated()
}

func (m *Manager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.User != nil && m.session.User.IsAdmin
}
