package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"drivepower/console/internal/auth"
	"drivepower/console/internal/clients"
	"drivepower/console/internal/http/handlers"
	"drivepower/console/internal/http/middleware"
	"drivepower/console/internal/resource"
	"drivepower/console/internal/session"
	"drivepower/console/internal/storage"
)

type fakeCSMS struct {
	stationCalls atomic.Int32
	statsStatus  int
}

func (f *fakeCSMS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/auth/login":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "correct" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"user":{"id":"u-1","email":"`+body.Email+`","role":"admin","firstName":"Ada","lastName":"Lovelace"},"tokens":{"accessToken":"access-1","refreshToken":"refresh-1"}}}`)
	case "/stations/":
		f.stationCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":[{"id":"s-1","chargePointId":"CP-001","name":"Depot North","location":"Yard","status":"Available","siteId":"site","connectors":[{},{}],"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}]}`)
	case "/transactions/":
		_, _ = io.WriteString(w, `[{"id":"tx-9","stationId":"s-1","connectorId":1,"status":"active","amount":4.2,"startTime":"2024-01-01T10:00:00Z","createdAt":"2024-01-01T10:00:00Z","updatedAt":"2024-01-01T10:00:00Z"}]`)
	case "/transactions/stats/summary":
		if f.statsStatus != 0 {
			w.WriteHeader(f.statsStatus)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"totalTransactions":7,"completedTransactions":6,"totalEnergy":120.5,"totalRevenue":88}}`)
	default:
		http.NotFound(w, r)
	}
}

type consoleFixture struct {
	backend  *fakeCSMS
	kv       *storage.MemoryKV
	sessions *handlers.Sessions
	server   *httptest.Server
}

func newConsole(t *testing.T) *consoleFixture {
	t.Helper()
	backend := &fakeCSMS{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	logger := zap.NewNop()
	base := clients.NewBaseClient(srv.URL, clients.NewDefaultHTTPClient(5*time.Second))
	authAPI := clients.NewAuthClient(base)
	api := clients.NewAPIClient(base)
	kv := storage.NewMemoryKV()

	sessions := handlers.NewSessions(kv, func(scoped storage.KV) (*auth.Manager, handlers.Resources) {
		store := session.NewStore(scoped, logger)
		return auth.NewManager(store, authAPI, nil, logger), handlers.Resources{
			Stations:     resource.NewStations(store, api, logger),
			Transactions: resource.NewTransactions(20, store, api, logger),
			Stats:        resource.NewTransactionStats(store, api, logger),
		}
	}, handlers.SessionsOptions{}, logger)

	router := NewRouter(RouterDeps{
		AuthHandlers:      handlers.NewAuthHandlers(sessions, logger),
		DashboardHandlers: handlers.NewDashboardHandlers(sessions, time.Minute, logger),
		HealthHandler:     handlers.NewHealthHandler(),
	})
	server := NewServer(":0", router, logger, middleware.RecoveryMiddleware(logger), middleware.RequestIDMiddleware())
	console := httptest.NewServer(server.Handler())
	t.Cleanup(console.Close)
	return &consoleFixture{backend: backend, kv: kv, sessions: sessions, server: console}
}

// browser keeps its own cookies and does not follow redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
	csrf   string
}

func (c *consoleFixture) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &browser{
		t:    t,
		base: c.server.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type page struct {
	code     int
	location string
	header   http.Header
	body     string
}

var csrfInput = regexp.MustCompile(`name="csrf" value="([^"]+)"`)

func (b *browser) do(method, target string, form url.Values) page {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, b.base+target, body)
	if err != nil {
		b.t.Fatalf("request: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if m := csrfInput.FindSubmatch(data); m != nil {
		b.csrf = string(m[1])
	}
	return page{code: resp.StatusCode, location: resp.Header.Get("Location"), header: resp.Header, body: string(data)}
}

// login opens the login page for a form token, then submits credentials.
func (b *browser) login(email, password string) page {
	b.t.Helper()
	b.do(http.MethodGet, "/", nil)
	return b.do(http.MethodPost, "/login", url.Values{"email": {email}, "password": {password}, "csrf": {b.csrf}})
}

func (b *browser) logout() page {
	b.t.Helper()
	return b.do(http.MethodPost, "/logout", url.Values{"csrf": {b.csrf}})
}

func (b *browser) session() map[string]interface{} {
	b.t.Helper()
	p := b.do(http.MethodGet, "/api/session", nil)
	var sess map[string]interface{}
	if err := json.Unmarshal([]byte(p.body), &sess); err != nil {
		b.t.Fatalf("decode session: %v", err)
	}
	return sess
}

func TestHealth(t *testing.T) {
	b := newConsole(t).browser(t)
	p := b.do(http.MethodGet, "/health", nil)
	if p.code != http.StatusOK || !strings.Contains(p.body, `"ok"`) {
		t.Fatalf("unexpected response %d %s", p.code, p.body)
	}
	if p.header.Get(clients.RequestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
}

func TestLoginPageRendersFormAndCookie(t *testing.T) {
	c := newConsole(t)
	b := c.browser(t)
	p := b.do(http.MethodGet, "/", nil)
	if p.code != http.StatusOK || !strings.Contains(p.body, `action="/login"`) || b.csrf == "" {
		t.Fatalf("unexpected login page %d", p.code)
	}
	cookie := p.header.Get("Set-Cookie")
	for _, want := range []string{handlers.SessionCookie + "=", "HttpOnly", "SameSite=Strict"} {
		if !strings.Contains(cookie, want) {
			t.Fatalf("cookie %q missing %q", cookie, want)
		}
	}
	if p := b.do(http.MethodGet, "/nope", nil); p.code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", p.code)
	}
}

func TestLoginFailureShowsInlineMessage(t *testing.T) {
	c := newConsole(t)
	p := c.browser(t).login("admin@example.com", "wrong")

	if p.code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", p.code)
	}
	if !strings.Contains(p.body, "Invalid credentials") {
		t.Fatalf("expected inline error, got %s", p.body)
	}
	if c.kv.Len() != 0 {
		t.Fatal("failed login must not persist anything")
	}
}

func TestLoginRequiresFields(t *testing.T) {
	b := newConsole(t).browser(t)
	b.do(http.MethodGet, "/", nil)
	p := b.do(http.MethodPost, "/login", url.Values{"email": {"admin@example.com"}, "csrf": {b.csrf}})
	if p.code != http.StatusBadRequest || !strings.Contains(p.body, "email and password are required") {
		t.Fatalf("unexpected response %d", p.code)
	}
}

func TestLoginRejectsMissingFormToken(t *testing.T) {
	c := newConsole(t)
	b := c.browser(t)
	b.do(http.MethodGet, "/", nil)

	p := b.do(http.MethodPost, "/login", url.Values{"email": {"admin@example.com"}, "password": {"correct"}})
	if p.code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", p.code)
	}
	if c.kv.Len() != 0 {
		t.Fatal("rejected form must not log in")
	}

	cookieless := c.browser(t)
	p = cookieless.do(http.MethodPost, "/login", url.Values{"email": {"admin@example.com"}, "password": {"correct"}, "csrf": {b.csrf}})
	if p.code != http.StatusForbidden {
		t.Fatalf("token from another browser must be rejected, got %d", p.code)
	}
}

func TestLoginRotatesSessionID(t *testing.T) {
	c := newConsole(t)
	b := c.browser(t)
	before := b.do(http.MethodGet, "/", nil).header.Get("Set-Cookie")
	after := b.do(http.MethodPost, "/login", url.Values{"email": {"admin@example.com"}, "password": {"correct"}, "csrf": {b.csrf}}).header.Get("Set-Cookie")
	if before == "" || after == "" || before == after {
		t.Fatalf("expected a new session cookie on login, got %q then %q", before, after)
	}
	if c.sessions.Len() != 1 {
		t.Fatalf("expected pre-login session dropped, %d tracked", c.sessions.Len())
	}
}

func TestLoginDashboardLogoutFlow(t *testing.T) {
	c := newConsole(t)
	b := c.browser(t)

	p := b.login("admin@example.com", "correct")
	if p.code != http.StatusSeeOther || p.location != "/dashboard" {
		t.Fatalf("expected redirect to dashboard, got %d %q", p.code, p.location)
	}

	if p := b.do(http.MethodGet, "/", nil); p.code != http.StatusSeeOther {
		t.Fatalf("authenticated login page should redirect, got %d", p.code)
	}

	p = b.do(http.MethodGet, "/dashboard", nil)
	if p.code != http.StatusOK {
		t.Fatalf("expected dashboard, got %d", p.code)
	}
	for _, want := range []string{"Ada Lovelace", "Depot North", "CP-001", "tx-9", "4.20", "120.5 kWh"} {
		if !strings.Contains(p.body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	sess := b.session()
	if sess["authenticated"] != true || sess["state"] != "authenticated" {
		t.Fatalf("unexpected session payload %v", sess)
	}
	if raw := b.do(http.MethodGet, "/api/session", nil).body; strings.Contains(raw, "access-1") {
		t.Fatal("tokens must not be exposed")
	}

	p = b.logout()
	if p.code != http.StatusSeeOther || p.location != "/" {
		t.Fatalf("expected redirect to login, got %d %q", p.code, p.location)
	}
	if c.kv.Len() != 0 {
		t.Fatal("logout must clear storage")
	}
	if c.sessions.Len() != 0 {
		t.Fatalf("logout must drop the browser session, %d tracked", c.sessions.Len())
	}
	if p := b.do(http.MethodGet, "/dashboard", nil); p.code != http.StatusSeeOther {
		t.Fatalf("dashboard after logout should redirect, got %d", p.code)
	}
}

func TestBrowsersDoNotShareSessions(t *testing.T) {
	c := newConsole(t)
	operator := c.browser(t)
	if p := operator.login("a@example.com", "correct"); p.code != http.StatusSeeOther {
		t.Fatalf("login: %d", p.code)
	}

	stranger := c.browser(t)
	if p := stranger.do(http.MethodGet, "/dashboard", nil); p.code != http.StatusSeeOther || strings.Contains(p.body, "Depot North") {
		t.Fatalf("other browser must not see the dashboard, got %d", p.code)
	}
	if sess := stranger.session(); sess["authenticated"] != false || sess["user"] != nil {
		t.Fatalf("other browser must see no session, got %v", sess)
	}

	stranger.do(http.MethodGet, "/", nil)
	stranger.logout()
	if p := stranger.do(http.MethodPost, "/logout", url.Values{"csrf": {operator.csrf}}); p.code != http.StatusSeeOther {
		t.Fatalf("unexpected logout status %d", p.code)
	}

	if sess := operator.session(); sess["authenticated"] != true {
		t.Fatalf("operator session must survive another browser's logout, got %v", sess)
	}
	if p := operator.do(http.MethodGet, "/dashboard", nil); p.code != http.StatusOK {
		t.Fatalf("operator dashboard: %d", p.code)
	}
}

func TestLogoutRejectsMissingFormToken(t *testing.T) {
	c := newConsole(t)
	b := c.browser(t)
	b.login("admin@example.com", "correct")

	if p := b.do(http.MethodPost, "/logout", url.Values{}); p.code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", p.code)
	}
	if sess := b.session(); sess["authenticated"] != true {
		t.Fatal("session must survive a rejected logout")
	}
}

func TestDashboardShowsSectionErrors(t *testing.T) {
	c := newConsole(t)
	c.backend.statsStatus = http.StatusServiceUnavailable
	b := c.browser(t)
	b.login("admin@example.com", "correct")

	p := b.do(http.MethodGet, "/dashboard", nil)
	if p.code != http.StatusOK {
		t.Fatalf("expected dashboard, got %d", p.code)
	}
	if !strings.Contains(p.body, "Failed to fetch transaction stats: 503") {
		t.Fatalf("expected stats error in page")
	}
	if !strings.Contains(p.body, "Depot North") {
		t.Fatal("other sections must still render")
	}
}

func TestDashboardRequiresSession(t *testing.T) {
	c := newConsole(t)
	p := c.browser(t).do(http.MethodGet, "/dashboard", nil)
	if p.code != http.StatusSeeOther || p.location != "/" {
		t.Fatalf("expected redirect, got %d", p.code)
	}
	if c.backend.stationCalls.Load() != 0 {
		t.Fatal("no backend calls expected without session")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	b := newConsole(t).browser(t)
	p := b.do(http.MethodGet, "/login", nil)
	if p.code != http.StatusMethodNotAllowed || p.header.Get("Allow") != http.MethodPost {
		t.Fatalf("unexpected response %d", p.code)
	}
}
