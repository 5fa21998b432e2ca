// Package session holds the authenticated user and bearer token for the
// lifetime of the process and persists them between runs.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"

	"finclient/internal/core"
	"finclient/internal/log"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoExpiry         = errors.New("token carries no expiry")
)

// Authenticator performs the backend side of login, register and logout.
// *api.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, req core.LoginRequest) (core.AuthResponse, error)
	Register(ctx context.Context, req core.RegisterRequest) (core.AuthResponse, error)
	Logout(ctx context.Context) error
}

// State is a snapshot of the session.
type State struct {
	User      *core.User
	IsLoading bool
}

func (s State) Authenticated() bool { return s.User != nil }

// Manager is the single writer of session state. It also serves as the
// gateway's token store, so every request reads the token through it.
type Manager struct {
	mu      sync.RWMutex
	user    *core.User
	token   string
	loading bool

	store  Store
	auth   Authenticator
	logger *log.Logger
}

type Option func(*Manager)

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l.WithComponent(log.ComponentSession) }
}

// NewManager creates a manager in the loading state. Call Restore before use.
// auth may be set later with SetAuthenticator when the gateway needs the
// manager as its token store.
func NewManager(store Store, auth Authenticator, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		auth:    auth,
		loading: true,
		logger:  log.Default().WithComponent(log.ComponentSession),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) SetAuthenticator(auth Authenticator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth = auth
}

func (m *Manager) authenticator() Authenticator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.auth
}

// Restore loads the persisted token and user. Corrupted data is removed
// and the session starts unauthenticated; this is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	defer func() {
		m.mu.Lock()
		m.loading = false
		m.mu.Unlock()
	}()

	token, hasToken, err := m.store.Get(ctx, KeyAuthToken)
	if errors.Is(err, ErrCorruptSession) {
		return m.discard(ctx, err)
	}
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	raw, hasUser, err := m.store.Get(ctx, KeyUserData)
	if errors.Is(err, ErrCorruptSession) {
		return m.discard(ctx, err)
	}
	if err != nil {
		return fmt.Errorf("read user: %w", err)
	}

	if !hasToken || !hasUser || token == "" {
		m.logger.Debug("No stored session", log.FieldOperation, log.OpRestore)
		return nil
	}

	user, err := decodeUser(raw)
	if err != nil {
		return m.discard(ctx, err)
	}

	m.mu.Lock()
	m.user = user
	m.token = token
	m.mu.Unlock()

	if exp, err := tokenExpiry(token); err == nil && time.Now().After(exp) {
		m.logger.Warn("Restored token has expired",
			log.FieldOperation, log.OpRestore,
			log.FieldUser, user.Username,
			"expired_at", exp)
	}

	m.logger.Info("Session restored",
		log.FieldOperation, log.OpRestore,
		log.FieldUser, user.Username)
	return nil
}

func decodeUser(raw string) (*core.User, error) {
	var user *core.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSession, err)
	}
	if user == nil || (user.ID == 0 && user.Username == "") {
		return nil, fmt.Errorf("%w: user has no identity", ErrCorruptSession)
	}
	return user, nil
}

// discard drops unreadable persisted state and leaves the session
// unauthenticated.
func (m *Manager) discard(ctx context.Context, cause error) error {
	m.logger.Warn("Discarding corrupted session data",
		log.FieldOperation, log.OpRestore,
		log.FieldError, cause)
	if err := m.store.Delete(ctx, KeyAuthToken, KeyUserData); err != nil {
		return fmt.Errorf("clear corrupted session: %w", err)
	}
	return nil
}

// Login authenticates through the gateway. On failure the state is left
// unchanged and the gateway error is returned as-is.
func (m *Manager) Login(ctx context.Context, usernameOrEmail, password string) (core.User, error) {
	req := core.LoginRequest{UsernameOrEmail: usernameOrEmail, Password: password}
	if err := req.Validate(); err != nil {
		return core.User{}, err
	}
	auth := m.authenticator()
	if auth == nil {
		return core.User{}, errors.New("session has no authenticator")
	}
	resp, err := auth.Login(ctx, req)
	if err != nil {
		return core.User{}, err
	}
	return m.establish(ctx, resp, log.OpLogin)
}

func (m *Manager) Register(ctx context.Context, req core.RegisterRequest) (core.User, error) {
	if err := req.Validate(); err != nil {
		return core.User{}, err
	}
	auth := m.authenticator()
	if auth == nil {
		return core.User{}, errors.New("session has no authenticator")
	}
	resp, err := auth.Register(ctx, req)
	if err != nil {
		return core.User{}, err
	}
	return m.establish(ctx, resp, log.OpRegister)
}

func (m *Manager) establish(ctx context.Context, resp core.AuthResponse, op string) (core.User, error) {
	user := resp.Identity()
	data, err := json.Marshal(user)
	if err != nil {
		return core.User{}, fmt.Errorf("encode user: %w", err)
	}

	// The gateway stores the token through SetToken; it is written again
	// here so a custom Authenticator need not.
	if err := m.SetToken(ctx, resp.Token); err != nil {
		return core.User{}, m.rollback(ctx, err)
	}
	if err := m.store.Set(ctx, KeyUserData, string(data)); err != nil {
		return core.User{}, m.rollback(ctx, fmt.Errorf("persist user: %w", err))
	}

	m.mu.Lock()
	m.user = &user
	m.mu.Unlock()

	m.logger.Info("Authenticated",
		log.FieldOperation, op,
		log.FieldUser, user.Username)
	return user, nil
}

// rollback undoes a half-established session so no token outlives a
// failed login. It returns cause, joined with any cleanup failure.
func (m *Manager) rollback(ctx context.Context, cause error) error {
	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.mu.Unlock()
	if err := m.store.Delete(ctx, KeyAuthToken, KeyUserData); err != nil {
		m.logger.Error("Failed to roll back session",
			log.FieldError, err)
		return errors.Join(cause, err)
	}
	return cause
}

// Logout clears memory and persisted state whatever the prior state was.
// A gateway failure is logged and does not keep the session alive.
func (m *Manager) Logout(ctx context.Context) error {
	if auth := m.authenticator(); auth != nil {
		if err := auth.Logout(ctx); err != nil {
			m.logger.Warn("Gateway logout failed",
				log.FieldOperation, log.OpLogout,
				log.FieldError, err)
		}
	}

	m.mu.Lock()
	m.user = nil
	m.token = ""
	m.mu.Unlock()

	if err := m.store.Delete(ctx, KeyAuthToken, KeyUserData); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.logger.Info("Logged out", log.FieldOperation, log.OpLogout)
	return nil
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := State{IsLoading: m.loading}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// User returns the current user or ErrNotAuthenticated.
func (m *Manager) User() (core.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return core.User{}, ErrNotAuthenticated
	}
	return *m.user, nil
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil
}

func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Token returns the bearer token attached to outgoing requests.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *Manager) SetToken(ctx context.Context, token string) error {
	if err := m.store.Set(ctx, KeyAuthToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *Manager) ClearToken(ctx context.Context) error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	if err := m.store.Delete(ctx, KeyAuthToken); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// TokenExpiry reports when the current token expires. The signature is
// not verified; the backend remains the authority on validity.
func (m *Manager) TokenExpiry() (time.Time, error) {
	token := m.Token()
	if token == "" {
		return time.Time{}, ErrNotAuthenticated
	}
	return tokenExpiry(token)
}

func (m *Manager) Close() error {
	return m.store.Close()
}

func tokenExpiry(raw string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0), nil
	case json.Number:
		v, err := exp.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("parse exp claim: %w", err)
		}
		return time.Unix(v, 0), nil
	default:
		return time.Time{}, ErrNoExpiry
	}
}
