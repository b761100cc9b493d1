package httpapi

import (
	"net/http"
	"strings"

	"sitedesk.org/internal/audit"
	"sitedesk.org/internal/auth"
	"sitedesk.org/internal/obs"
	"sitedesk.org/internal/registry"
)

type reviewActionRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes"`
}

type reviewActionData struct {
	ID     string            `json:"id"`
	Status string            `json:"status"`
	Site   *reviewActionSite `json:"site,omitempty"`
}

type reviewActionSite struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (a *API) handlePendingReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	reviews, err := a.registry.PendingReviews(r.Context())
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []registry.Review{}
	}
	writeData(w, http.StatusOK, reviews)
}

// handleReviewResource serves /employee/reviews/{id} and /employee/reviews/{id}/action.
func (a *API) handleReviewResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/employee/reviews/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/action") {
		id := strings.TrimSuffix(path, "/action")
		id = strings.TrimSuffix(id, "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "review case not found")
			return
		}
		a.reviewAction(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getReview(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) getReview(w http.ResponseWriter, r *http.Request, id string) {
	review, err := a.registry.GetReview(r.Context(), id)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, review)
}

func (a *API) reviewAction(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req reviewActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	action := strings.TrimSpace(strings.ToLower(req.Action))
	if action == "" {
		writeError(w, r, http.StatusBadRequest, "action is required")
		return
	}
	if action == registry.ActionReject && strings.TrimSpace(req.Notes) == "" {
		writeError(w, r, http.StatusBadRequest, "rejection requires notes")
		return
	}

	actorID, _ := auth.EmployeeIDFromContext(r.Context())
	review, err := a.registry.ApplyAction(r.Context(), id, action, req.Notes, actorID)
	if err != nil {
		handleRegistryError(w, r, err)
		return
	}

	obs.CountReviewDecision(action)
	_ = audit.LogEvent(r.Context(), "review.decision", map[string]any{
		"review_id": review.ID,
		"site_id":   review.SiteID,
		"action":    action,
		"status":    review.Status,
	})

	writeData(w, http.StatusOK, reviewActionData{
		ID:     review.ID,
		Status: review.Status,
		Site:   &reviewActionSite{ID: review.SiteID, Status: review.Status},
	})
}
