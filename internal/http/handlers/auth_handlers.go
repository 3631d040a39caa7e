package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"drivepower/console/internal/auth"
	"drivepower/console/internal/clients"
)

// AuthHandlers serve the login screen and the session endpoints.
type AuthHandlers struct {
	sessions *Sessions
	logger   *zap.Logger
}

// NewAuthHandlers returns handler struct.
func NewAuthHandlers(sessions *Sessions, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{sessions: sessions, logger: logger}
}

const csrfField = "csrf"

type loginView struct {
	Email string
	Error string
	CSRF  string
}

// LoginPage handles GET /.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	c, ok := h.sessions.Lookup(r)
	if ok && c.Manager.Snapshot().IsAuthenticated {
		http.Redirect(w, r, auth.PathDashboard, http.StatusSeeOther)
		return
	}
	if !ok {
		c = h.sessions.Start(r.Context(), w)
	}
	h.render(w, http.StatusOK, loginView{CSRF: c.CSRFToken})
}

// Login handles POST /login. A successful login always continues on a new
// session id.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, loginView{Error: "invalid form"})
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))

	current, ok := h.sessions.Lookup(r)
	if !ok || !current.ValidCSRF(r.PostForm.Get(csrfField)) {
		fresh := h.sessions.Start(r.Context(), w)
		h.render(w, http.StatusForbidden, loginView{Email: email, Error: "Your session expired, please sign in again", CSRF: fresh.CSRFToken})
		return
	}

	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		h.render(w, http.StatusBadRequest, loginView{Email: email, Error: "email and password are required", CSRF: current.CSRFToken})
		return
	}

	fresh := h.sessions.Start(r.Context(), w)
	h.sessions.Discard(r.Context(), current)

	var nav redirect
	if err := fresh.Manager.Login(nav.bind(r.Context()), email, password); err != nil {
		status, msg := loginFailure(err)
		h.render(w, status, loginView{Email: email, Error: msg, CSRF: fresh.CSRFToken})
		return
	}
	http.Redirect(w, r, nav.target(auth.PathDashboard), http.StatusSeeOther)
}

// Logout handles POST /logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessions.Lookup(r)
	if !ok {
		h.sessions.ExpireCookie(w)
		http.Redirect(w, r, auth.PathLogin, http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil || !c.ValidCSRF(r.PostForm.Get(csrfField)) {
		http.Error(w, "invalid form token", http.StatusForbidden)
		return
	}

	var nav redirect
	c.Manager.Logout(nav.bind(r.Context()))
	h.sessions.ExpireCookie(w)
	http.Redirect(w, r, nav.target(auth.PathLogin), http.StatusSeeOther)
}

// Session handles GET /api/session. Tokens are never exposed.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessions.Lookup(r)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"authenticated": false,
			"state":         auth.StateUnauthenticated.String(),
			"loading":       false,
			"user":          nil,
		})
		return
	}
	snap := c.Manager.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": snap.IsAuthenticated,
		"state":         snap.State.String(),
		"loading":       snap.IsLoading,
		"user":          snap.Session.User,
	})
}

func (h *AuthHandlers) render(w http.ResponseWriter, status int, view loginView) {
	if err := writeHTML(w, status, loginTemplate, view); err != nil {
		h.logger.Error("failed to render login page", zap.Error(err))
	}
}

func loginFailure(err error) (int, string) {
	var loginErr *auth.LoginError
	switch {
	case errors.As(err, &loginErr):
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return http.StatusUnauthorized, loginErr.Message
		}
		return http.StatusBadGateway, loginErr.Message
	case errors.Is(err, clients.ErrMalformedResponse):
		return http.StatusBadGateway, "Invalid response format"
	case errors.Is(err, clients.ErrNetworkFailure):
		return http.StatusBadGateway, "Authentication service unavailable"
	default:
		return http.StatusInternalServerError, "Login failed"
	}
}
