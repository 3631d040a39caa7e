package resource

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"drivepower/console/internal/clients"
)

// NoTokenMessage is the error text when no access token is stored.
const NoTokenMessage = "No authentication token"

// TokenSource yields the current access token ("" when absent).
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Getter performs an authenticated GET.
type Getter interface {
	Get(ctx context.Context, path, token string) (int, []byte, error)
}

// State is what a consumer renders: data, or the reason there is none.
type State[T any] struct {
	Data    T
	Loading bool
	Error   string
	Err     error
}

// Resource is a read-only authenticated loader bound to one endpoint.
type Resource[T any] struct {
	name   string
	path   string
	empty  func() T
	tokens TokenSource
	api    Getter
	logger *zap.Logger
}

// New builds a resource. empty produces the value exposed when no data is
// available.
func New[T any](name, path string, empty func() T, tokens TokenSource, api Getter, logger *zap.Logger) *Resource[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if empty == nil {
		empty = func() T {
			var zero T
			return zero
		}
	}
	return &Resource[T]{
		name:   name,
		path:   path,
		empty:  empty,
		tokens: tokens,
		api:    api,
		logger: logger,
	}
}

// Path returns the endpoint.
func (r *Resource[T]) Path() string {
	return r.path
}

// Fetch loads the resource once. It never retries.
func (r *Resource[T]) Fetch(ctx context.Context) State[T] {
	token, err := r.tokens.AccessToken(ctx)
	if err != nil {
		return r.failed(err, err.Error())
	}
	if token == "" {
		return r.failed(clients.ErrNoToken, NoTokenMessage)
	}

	status, body, err := r.api.Get(ctx, r.path, token)
	if err != nil {
		r.logger.Warn("fetch failed", zap.String("resource", r.name), zap.Error(err))
		return r.failed(err, err.Error())
	}
	if !clients.IsSuccess(status) {
		msg := fmt.Sprintf("Failed to fetch %s: %d", r.name, status)
		r.logger.Warn("fetch rejected", zap.String("resource", r.name), zap.Int("status", status))
		return r.failed(&clients.HTTPError{Status: status, Message: msg}, msg)
	}

	data := r.empty()
	if err := json.Unmarshal(clients.UnwrapData(body), &data); err != nil {
		r.logger.Warn("decode failed", zap.String("resource", r.name), zap.Error(err))
		wrapped := fmt.Errorf("%w: %s: %v", clients.ErrMalformedResponse, r.name, err)
		return r.failed(wrapped, wrapped.Error())
	}
	return State[T]{Data: data}
}

// Watch fetches in the background, emitting a loading state and then the
// result. Nothing is emitted after ctx is done.
func (r *Resource[T]) Watch(ctx context.Context, fn func(State[T])) {
	if ctx.Err() != nil {
		return
	}
	fn(State[T]{Data: r.empty(), Loading: true})
	go func() {
		st := r.Fetch(ctx)
		if ctx.Err() != nil {
			r.logger.Debug("dropping result for cancelled watcher", zap.String("resource", r.name))
			return
		}
		fn(st)
	}()
}

func (r *Resource[T]) failed(err error, msg string) State[T] {
	return State[T]{Data: r.empty(), Error: msg, Err: err}
}
