package httpserver

import (
	"net/http"

	"drivepower/console/internal/http/handlers"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	AuthHandlers      *handlers.AuthHandlers
	DashboardHandlers *handlers.DashboardHandlers
	HealthHandler     http.HandlerFunc
}

// NewRouter wires console routes.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", method(http.MethodGet, deps.HealthHandler))

	mux.Handle("/", method(http.MethodGet, http.HandlerFunc(deps.AuthHandlers.LoginPage)))
	mux.Handle("/login", method(http.MethodPost, http.HandlerFunc(deps.AuthHandlers.Login)))
	mux.Handle("/logout", method(http.MethodPost, http.HandlerFunc(deps.AuthHandlers.Logout)))
	mux.Handle("/api/session", method(http.MethodGet, http.HandlerFunc(deps.AuthHandlers.Session)))

	mux.Handle("/dashboard", method(http.MethodGet, http.HandlerFunc(deps.DashboardHandlers.Dashboard)))

	return mux
}

func method(expected string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
