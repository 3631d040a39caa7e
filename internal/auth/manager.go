package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"drivepower/console/internal/clients"
	"drivepower/console/internal/models"
	"drivepower/console/internal/session"
)

// Navigation targets signalled on state transitions.
const (
	PathLogin     = "/"
	PathDashboard = "/dashboard"
)

// State of the authentication flow.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// API is the subset of the backend auth endpoints the manager calls.
type API interface {
	Login(ctx context.Context, email, password string) (int, []byte, error)
	Refresh(ctx context.Context, refreshToken string) (int, []byte, error)
}

// Navigator receives navigation signals.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Navigate calls f(path).
func (f NavigatorFunc) Navigate(path string) { f(path) }

type navigatorKey struct{}

// WithNavigator returns a context whose Login and Logout calls signal nav
// instead of the manager's own navigator.
func WithNavigator(ctx context.Context, nav Navigator) context.Context {
	return context.WithValue(ctx, navigatorKey{}, nav)
}

// Snapshot is an immutable view of the manager.
type Snapshot struct {
	Session         models.Session
	State           State
	IsLoading       bool
	IsAuthenticated bool
}

// Manager owns the in-memory session and is the only writer of the session store.
type Manager struct {
	store  *session.Store
	api    API
	nav    Navigator
	logger *zap.Logger
	now    func() time.Time

	// notifyMu orders dispatch so subscribers never see an older snapshot
	// after a newer one.
	notifyMu sync.Mutex

	mu      sync.RWMutex
	session models.Session
	state   State
	loading bool
	subs    map[uint64]func(Snapshot)
	nextSub uint64
}

// NewManager builds a manager. It reports IsLoading until Init completes.
func NewManager(store *session.Store, api API, nav Navigator, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:   store,
		api:     api,
		nav:     nav,
		logger:  logger,
		now:     time.Now,
		loading: true,
		subs:    make(map[uint64]func(Snapshot)),
	}
}

// Init loads the persisted session into memory.
func (m *Manager) Init(ctx context.Context) error {
	sess, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Error("failed to load session", zap.Error(err))
		sess = models.Session{}
	}

	m.mu.Lock()
	m.session = sess
	m.state = derive(sess)
	m.loading = false
	m.mu.Unlock()
	m.notify()

	if err != nil {
		return fmt.Errorf("auth: load session: %w", err)
	}
	return nil
}

// Subscribe registers fn for snapshots after every change. The returned
// function removes the subscription. Dispatch is serialized: fn runs on the
// mutating goroutine and must not call back into Login, Logout, RefreshToken
// or Init.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// Login authenticates against the backend and persists the session.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.mu.Lock()
	m.state = StateAuthenticating
	m.mu.Unlock()
	m.notify()

	sess, err := m.login(ctx, email, password)
	if err != nil {
		m.mu.Lock()
		m.state = derive(m.session)
		m.mu.Unlock()
		m.notify()
		m.logger.Warn("login failed", zap.Error(err))
		return err
	}

	m.mu.Lock()
	m.session = sess
	m.state = StateAuthenticated
	m.mu.Unlock()
	m.notify()

	m.logger.Info("user logged in", zap.String("user_id", sess.User.ID), zap.String("role", string(sess.User.Role)))
	m.navigate(ctx, PathDashboard)
	return nil
}

func (m *Manager) login(ctx context.Context, email, password string) (models.Session, error) {
	status, body, err := m.api.Login(ctx, email, password)
	if err != nil {
		return models.Session{}, err
	}

	if !clients.IsSuccess(status) {
		msg, ok := clients.ErrorMessage(body)
		switch {
		case !ok:
			msg = fallbackUnreadable
		case msg == "":
			msg = fallbackNoMessage
		}
		return models.Session{}, &LoginError{Status: status, Message: msg}
	}

	env, err := clients.ParseEnvelope(body)
	if err != nil {
		return models.Session{}, err
	}
	var payload struct {
		User   *models.User `json:"user"`
		Tokens *struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"tokens"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return models.Session{}, clients.ErrMalformedResponse
	}
	if payload.User == nil || payload.Tokens == nil || payload.Tokens.AccessToken == "" {
		return models.Session{}, clients.ErrMalformedResponse
	}

	if err := m.store.SaveLogin(ctx, *payload.User, payload.Tokens.AccessToken, payload.Tokens.RefreshToken); err != nil {
		m.restoreStore(ctx)
		return models.Session{}, fmt.Errorf("auth: persist session: %w", err)
	}

	m.mu.RLock()
	refresh := m.session.RefreshToken
	m.mu.RUnlock()
	if payload.Tokens.RefreshToken != "" {
		refresh = payload.Tokens.RefreshToken
	}

	return models.Session{
		User:         payload.User,
		AccessToken:  payload.Tokens.AccessToken,
		RefreshToken: refresh,
	}, nil
}

// restoreStore writes the in-memory session back after a partial save.
func (m *Manager) restoreStore(ctx context.Context) {
	m.mu.RLock()
	prior := m.session
	m.mu.RUnlock()

	var err error
	if prior.IsAuthenticated() {
		err = m.store.SaveLogin(ctx, *prior.User, prior.AccessToken, prior.RefreshToken)
	} else {
		err = m.store.Clear(ctx)
	}
	if err != nil {
		m.logger.Error("failed to restore session store", zap.Error(err))
	}
}

// Logout clears the session everywhere. It never fails.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("failed to clear session store", zap.Error(err))
	}

	m.mu.Lock()
	m.session = models.Session{}
	m.state = StateUnauthenticated
	m.mu.Unlock()
	m.notify()

	m.logger.Info("user logged out")
	m.navigate(ctx, PathLogin)
}

// RefreshToken exchanges the stored refresh token for a new access token.
// It only touches the access token and never changes State.
func (m *Manager) RefreshToken(ctx context.Context) bool {
	refresh, err := m.store.RefreshToken(ctx)
	if err != nil {
		m.logger.Warn("failed to read refresh token", zap.Error(err))
		return false
	}
	if refresh == "" {
		return false
	}

	status, body, err := m.api.Refresh(ctx, refresh)
	if err != nil {
		m.logger.Warn("token refresh failed", zap.Error(err))
		return false
	}
	if !clients.IsSuccess(status) {
		m.logger.Info("token refresh rejected", zap.Int("status", status))
		return false
	}

	env, err := clients.ParseEnvelope(body)
	if err != nil {
		m.logger.Warn("token refresh returned malformed body")
		return false
	}
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.AccessToken == "" {
		m.logger.Warn("token refresh returned no access token")
		return false
	}

	if err := m.store.SaveAccessToken(ctx, data.AccessToken); err != nil {
		m.logger.Error("failed to persist refreshed token", zap.Error(err))
		return false
	}

	m.mu.Lock()
	m.session.AccessToken = data.AccessToken
	m.mu.Unlock()
	m.notify()

	m.logger.Debug("access token refreshed")
	return true
}

// EnsureFreshToken refreshes the access token when it expires within leeway.
// Tokens without a readable exp claim are treated as fresh.
func (m *Manager) EnsureFreshToken(ctx context.Context, leeway time.Duration) bool {
	m.mu.RLock()
	token := m.session.AccessToken
	m.mu.RUnlock()

	if token == "" {
		stored, err := m.store.AccessToken(ctx)
		if err != nil || stored == "" {
			return false
		}
		token = stored
	}

	exp, ok := TokenExpiry(token)
	if !ok || m.now().Add(leeway).Before(exp) {
		return true
	}
	m.logger.Debug("access token near expiry, refreshing", zap.Time("exp", exp))
	return m.RefreshToken(ctx)
}

func (m *Manager) navigate(ctx context.Context, path string) {
	if nav, ok := ctx.Value(navigatorKey{}).(Navigator); ok && nav != nil {
		nav.Navigate(path)
		return
	}
	if m.nav != nil {
		m.nav.Navigate(path)
	}
}

func (m *Manager) notify() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.RLock()
	snap := m.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (m *Manager) snapshotLocked() Snapshot {
	sess := m.session
	if sess.User != nil {
		u := *sess.User
		sess.User = &u
	}
	return Snapshot{
		Session:         sess,
		State:           m.state,
		IsLoading:       m.loading,
		IsAuthenticated: sess.IsAuthenticated(),
	}
}

func derive(sess models.Session) State {
	if sess.IsAuthenticated() {
		return StateAuthenticated
	}
	return StateUnauthenticated
}
