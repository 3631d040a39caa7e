package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"drivepower/console/internal/auth"
	"drivepower/console/internal/storage"
)

// SessionCookie carries the browser session id.
const SessionCookie = "console_session"

const (
	namespacePrefix    = "web:"
	defaultIdleTimeout = 30 * time.Minute
)

// Console is the state of one browser: its own auth manager over its own
// slice of session storage, and the resources bound to that session.
type Console struct {
	ID        string
	CSRFToken string
	Manager   *auth.Manager
	Resources Resources

	lastSeen time.Time
}

// ValidCSRF reports whether token matches the console's form token.
func (c *Console) ValidCSRF(token string) bool {
	return token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(c.CSRFToken)) == 1
}

// ConsoleFactory builds the manager and resources of a browser session
// persisted in kv.
type ConsoleFactory func(kv storage.KV) (*auth.Manager, Resources)

// SessionsOptions tune cookie issuing.
type SessionsOptions struct {
	SecureCookie bool
	IdleTimeout  time.Duration
}

// Sessions maps session cookies to consoles.
type Sessions struct {
	kv      storage.KV
	factory ConsoleFactory
	opts    SessionsOptions
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	consoles map[string]*Console
}

// NewSessions returns an empty registry.
func NewSessions(kv storage.KV, factory ConsoleFactory, opts SessionsOptions, logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	return &Sessions{
		kv:       kv,
		factory:  factory,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		consoles: make(map[string]*Console),
	}
}

// Lookup returns the console named by the request cookie. An id unknown to
// this process is restored from storage only when its persisted session is
// authenticated.
func (s *Sessions) Lookup(r *http.Request) (*Console, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	c, ok := s.consoles[id.String()]
	if ok {
		c.lastSeen = s.now()
	}
	s.mu.Unlock()
	if ok {
		return c, true
	}
	return s.restore(r.Context(), id.String())
}

// Start creates a console with a fresh id and sets its cookie.
func (s *Sessions) Start(ctx context.Context, w http.ResponseWriter) *Console {
	c := s.build(ctx, uuid.NewString())

	s.mu.Lock()
	s.pruneLocked()
	s.consoles[c.ID] = c
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    c.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return c
}

// Discard forgets c and clears whatever it persisted.
func (s *Sessions) Discard(ctx context.Context, c *Console) {
	s.forget(c.ID)
	if c.Manager.Snapshot().IsAuthenticated {
		c.Manager.Logout(auth.WithNavigator(ctx, auth.NavigatorFunc(func(string) {})))
	}
}

// ExpireCookie tells the browser to drop its session cookie.
func (s *Sessions) ExpireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

// Len returns the number of tracked consoles.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.consoles)
}

func (s *Sessions) restore(ctx context.Context, id string) (*Console, bool) {
	c := s.build(ctx, id)
	if !c.Manager.Snapshot().IsAuthenticated {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.consoles[id]; ok {
		return existing, true
	}
	s.consoles[id] = c
	s.logger.Info("browser session restored from storage")
	return c, true
}

func (s *Sessions) build(ctx context.Context, id string) *Console {
	manager, resources := s.factory(storage.Namespace(s.kv, namespacePrefix+id))
	if err := manager.Init(ctx); err != nil {
		s.logger.Warn("browser session started empty", zap.Error(err))
	}
	c := &Console{
		ID:        id,
		CSRFToken: uuid.NewString(),
		Manager:   manager,
		Resources: resources,
		lastSeen:  s.now(),
	}

	wasAuthenticated := manager.Snapshot().IsAuthenticated
	manager.Subscribe(func(snap auth.Snapshot) {
		fields := []zap.Field{zap.Stringer("state", snap.State)}
		if snap.Session.User != nil {
			fields = append(fields, zap.String("user_id", snap.Session.User.ID))
		}
		s.logger.Debug("browser session changed", fields...)

		if wasAuthenticated && snap.State == auth.StateUnauthenticated {
			s.forget(id)
		}
		wasAuthenticated = snap.IsAuthenticated
	})
	return c
}

func (s *Sessions) forget(id string) {
	s.mu.Lock()
	delete(s.consoles, id)
	s.mu.Unlock()
}

// pruneLocked drops anonymous consoles idle for longer than the timeout.
// Authenticated ones stay until logout; their state lives in storage.
func (s *Sessions) pruneLocked() {
	cutoff := s.now().Add(-s.opts.IdleTimeout)
	for id, c := range s.consoles {
		if c.lastSeen.Before(cutoff) && !c.Manager.Snapshot().IsAuthenticated {
			delete(s.consoles, id)
		}
	}
}
