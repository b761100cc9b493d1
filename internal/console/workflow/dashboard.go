// Package workflow holds the console's view-level state handling: the
// dashboard loader and the review list, detail, and edit flows. All server
// state is a transient cache of the last successful fetch, replaced
// wholesale on refresh.
package workflow

import (
	"context"
	"errors"
	"sync"

	"sitedesk.org/internal/console/client"
	"sitedesk.org/internal/obs"
	"sitedesk.org/internal/registry"
)

// API is the slice of the HTTP client the workflows consume.
type API interface {
	DashboardMetrics(ctx context.Context) (registry.Metrics, error)
	RecentActivity(ctx context.Context, limit int) ([]registry.Activity, error)
	PendingReviews(ctx context.Context) ([]registry.Review, error)
	ReviewDetails(ctx context.Context, id string) (registry.Review, error)
	ApproveReview(ctx context.Context, id, notes string) error
	RejectReview(ctx context.Context, id, notes string) error
	UpdateSiteDetails(ctx context.Context, siteID string, upd registry.SiteUpdate) (registry.Site, error)
}

var _ API = (*client.Client)(nil)

const activityLimit = 20

// Dashboard loads the aggregate metrics and activity feed.
type Dashboard struct {
	api            API
	onUnauthorized func()

	mu       sync.Mutex
	inFlight bool
	metrics  registry.Metrics
	activity []registry.Activity
}

// NewDashboard constructs a Dashboard. onUnauthorized is the centralized
// session-teardown hook, invoked once per failed refresh.
func NewDashboard(api API, onUnauthorized func()) *Dashboard {
	return &Dashboard{api: api, onUnauthorized: onUnauthorized}
}

// Refresh fetches metrics and recent activity concurrently and replaces the
// held state wholesale. A refresh already in flight makes this a no-op.
func (d *Dashboard) Refresh(ctx context.Context) error {
	d.mu.Lock()
	if d.inFlight {
		d.mu.Unlock()
		return nil
	}
	d.inFlight = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.inFlight = false
		d.mu.Unlock()
	}()

	var (
		wg       sync.WaitGroup
		metrics  registry.Metrics
		activity []registry.Activity
		mErr     error
		aErr     error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		metrics, mErr = d.api.DashboardMetrics(ctx)
	}()
	go func() {
		defer wg.Done()
		activity, aErr = d.api.RecentActivity(ctx, activityLimit)
	}()
	wg.Wait()

	if err := errors.Join(mErr, aErr); err != nil {
		if errors.Is(err, client.ErrUnauthorized) && d.onUnauthorized != nil {
			d.onUnauthorized()
		}
		return err
	}

	d.mu.Lock()
	d.metrics = metrics
	d.activity = activity
	d.mu.Unlock()
	return nil
}

// Snapshot returns the last successfully fetched state.
func (d *Dashboard) Snapshot() (registry.Metrics, []registry.Activity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	activity := make([]registry.Activity, len(d.activity))
	copy(activity, d.activity)
	return d.metrics, activity
}

func logSwallowed(op string, err error) {
	obs.LogEntry(map[string]any{
		"level": "warn",
		"msg":   "background fetch failed",
		"op":    op,
		"error": err.Error(),
	})
}
