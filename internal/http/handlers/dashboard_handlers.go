package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"drivepower/console/internal/auth"
	"drivepower/console/internal/models"
	"drivepower/console/internal/resource"
)

// Resources groups the loaders the dashboard mounts.
type Resources struct {
	Stations     *resource.Resource[[]models.Station]
	Transactions *resource.Resource[[]models.Transaction]
	Stats        *resource.Resource[*models.TransactionStats]
}

// DashboardHandlers render the authenticated area.
type DashboardHandlers struct {
	sessions *Sessions
	leeway   time.Duration
	logger   *zap.Logger
}

// NewDashboardHandlers returns handler.
func NewDashboardHandlers(sessions *Sessions, leeway time.Duration, logger *zap.Logger) *DashboardHandlers {
	return &DashboardHandlers{sessions: sessions, leeway: leeway, logger: logger}
}

type dashboardView struct {
	User              models.User
	CSRF              string
	Stations          []models.Station
	StationsError     string
	Transactions      []models.Transaction
	TransactionsError string
	Stats             *models.TransactionStats
	StatsError        string
}

// Dashboard handles GET /dashboard.
func (h *DashboardHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	c, ok := h.sessions.Lookup(r)
	if !ok || !c.Manager.Snapshot().IsAuthenticated {
		http.Redirect(w, r, auth.PathLogin, http.StatusSeeOther)
		return
	}
	c.Manager.EnsureFreshToken(r.Context(), h.leeway)

	view, err := load(r.Context(), c.Resources)
	if err != nil {
		h.logger.Debug("dashboard request gone before load finished", zap.Error(err))
		return
	}
	snap := c.Manager.Snapshot()
	if snap.Session.User == nil {
		http.Redirect(w, r, auth.PathLogin, http.StatusSeeOther)
		return
	}
	view.User = *snap.Session.User
	view.CSRF = c.CSRFToken
	if err := writeHTML(w, http.StatusOK, dashboardTemplate, view); err != nil {
		h.logger.Error("failed to render dashboard", zap.Error(err))
	}
}

// load mounts the three dashboard resources concurrently. It gives up once
// ctx is done; results arriving later are dropped by the resources.
func load(ctx context.Context, res Resources) (dashboardView, error) {
	var view dashboardView
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := await(ctx, res.Stations)
		view.Stations, view.StationsError = st.Data, st.Error
		return err
	})
	g.Go(func() error {
		st, err := await(ctx, res.Transactions)
		view.Transactions, view.TransactionsError = st.Data, st.Error
		return err
	})
	g.Go(func() error {
		st, err := await(ctx, res.Stats)
		view.Stats, view.StatsError = st.Data, st.Error
		return err
	})
	err := g.Wait()
	return view, err
}

func await[T any](ctx context.Context, r *resource.Resource[T]) (resource.State[T], error) {
	done := make(chan resource.State[T], 1)
	r.Watch(ctx, func(st resource.State[T]) {
		if !st.Loading {
			done <- st
		}
	})
	select {
	case st := <-done:
		return st, nil
	case <-ctx.Done():
		return resource.State[T]{}, ctx.Err()
	}
}
