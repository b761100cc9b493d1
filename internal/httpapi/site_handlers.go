package httpapi

import (
	"net/http"
	"strings"

	"sitedesk.org/internal/audit"
	"sitedesk.org/internal/registry"
)

// handleSiteResource serves /reviewer/sites/{id}/update-details.
func (a *API) handleSiteResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/reviewer/sites/")
	path = strings.TrimSuffix(path, "/")
	if !strings.HasSuffix(path, "/update-details") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id := strings.TrimSuffix(path, "/update-details")
	id = strings.TrimSuffix(id, "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "site not found")
		return
	}

	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}

	var upd registry.SiteUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if upd.IsEmpty() {
		writeError(w, r, http.StatusBadRequest, "no editable fields in request")
		return
	}

	site, err := a.registry.UpdateSiteDetails(r.Context(), id, upd)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "site.update_details", map[string]any{
		"site_id": site.ID,
	})

	writeData(w, http.StatusOK, site)
}
