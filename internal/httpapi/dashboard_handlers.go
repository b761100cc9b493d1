package httpapi

import "net/http"

func (a *API) handleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	metrics, err := a.registry.Metrics(r.Context())
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, metrics)
}

func (a *API) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 20, 1, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	feed, err := a.registry.RecentActivity(r.Context(), limit)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, feed)
}
