package auth

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials represents a rejected login.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrLoginFailed represents any other unsuccessful login status.
	ErrLoginFailed = errors.New("auth: login failed")
)

// Messages shown when the backend error body carries none.
const (
	fallbackUnreadable = "Login failed"
	fallbackNoMessage  = "Invalid credentials"
)

// LoginError is returned by Login for non-2xx responses. Its message is the
// backend's, suitable for inline display.
type LoginError struct {
	Status  int
	Message string
}

func (e *LoginError) Error() string {
	return e.Message
}

// Is matches ErrInvalidCredentials for client errors about the credentials
// and ErrLoginFailed otherwise.
func (e *LoginError) Is(target error) bool {
	switch target {
	case ErrInvalidCredentials:
		return e.Status == http.StatusBadRequest || e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrLoginFailed:
		return true
	}
	return false
}
