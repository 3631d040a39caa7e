package handlers

import (
	"context"

	"drivepower/console/internal/auth"
)

// redirect captures the navigation signal of a single request.
type redirect struct {
	path string
}

func (r *redirect) Navigate(path string) {
	r.path = path
}

// bind returns ctx routing the manager's navigation signals into r.
func (r *redirect) bind(ctx context.Context) context.Context {
	return auth.WithNavigator(ctx, r)
}

// target returns the signalled path, or fallback when none was sent.
func (r *redirect) target(fallback string) string {
	if r.path == "" {
		return fallback
	}
	return r.path
}
