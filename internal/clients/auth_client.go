package clients

import (
	"context"
	"encoding/json"
	"net/http"
)

// AuthClient calls the backend auth endpoints.
type AuthClient struct {
	base *BaseClient
}

// NewAuthClient returns client.
func NewAuthClient(base *BaseClient) *AuthClient {
	return &AuthClient{base: base}
}

// Login posts credentials to /auth/login.
func (c *AuthClient) Login(ctx context.Context, email, password string) (int, []byte, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return 0, nil, err
	}
	return c.base.Do(ctx, http.MethodPost, "/auth/login", body, nil)
}

// Refresh exchanges a refresh token at /auth/refresh.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (int, []byte, error) {
	body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return 0, nil, err
	}
	return c.base.Do(ctx, http.MethodPost, "/auth/refresh", body, nil)
}
