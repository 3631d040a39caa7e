package clients

import (
	"context"
	"net/http"
)

// APIClient issues authenticated reads against the CSMS REST API.
type APIClient struct {
	base *BaseClient
}

// NewAPIClient returns client.
func NewAPIClient(base *BaseClient) *APIClient {
	return &APIClient{base: base}
}

// Get performs GET path with a bearer token.
func (c *APIClient) Get(ctx context.Context, path, token string) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodGet, path, nil, BearerHeaders(token))
}
