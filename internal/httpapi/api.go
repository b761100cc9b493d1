package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"sitedesk.org/internal/auth"
	"sitedesk.org/internal/obs"
	"sitedesk.org/internal/registry"
)

// ReadyProbe checks dependencies for the readiness endpoint (e.g. DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the review registry.
type API struct {
	mux        *http.ServeMux
	registry   registry.Service
	directory  auth.Directory
	readyProbe ReadyProbe
	version    string

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, reg registry.Service, dir auth.Directory) *API {
	a := &API{
		mux:        http.NewServeMux(),
		registry:   reg,
		directory:  dir,
		readyProbe: rp,
		version:    version,
		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// employee module
	a.mux.HandleFunc("/employee/login", a.handleLogin)
	a.mux.HandleFunc("/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/employee/dashboard/metrics", a.handleDashboardMetrics)
	a.mux.HandleFunc("/employee/dashboard/recent-activity", a.handleRecentActivity)
	a.mux.HandleFunc("/employee/reviews/pending", a.handlePendingReviews)
	a.mux.HandleFunc("/employee/reviews/", a.handleReviewResource)

	// reviewer module
	a.mux.HandleFunc("/reviewer/sites/", a.handleSiteResource)
	a.mux.HandleFunc("/reviewer/geo/areas", a.handleAreas)
	a.mux.HandleFunc("/reviewer/geo/areas/", a.handleAreaScoped)
	a.mux.HandleFunc("/reviewer/blocks/create-or-update", a.handleCreateOrUpdateBlock)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- health handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "sitedesk-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
