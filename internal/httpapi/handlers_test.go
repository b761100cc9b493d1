package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"sitedesk.org/internal/auth"
	"sitedesk.org/internal/registry"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestRegistry(t *testing.T) *registry.InMemory {
	t.Helper()

	reg := registry.NewInMemory()
	reg.PutArea(registry.Area{ID: 1, Name: "Gulshan East"})
	reg.PutArea(registry.Area{ID: 2, Name: "Model Town"})
	reg.PutBlock(registry.Block{ID: 1, AreaID: 1, Name: "Block A"})
	reg.PutBlock(registry.Block{ID: 2, AreaID: 2, Name: "Block 1"})

	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	reg.PutEmployee(auth.Employee{
		ID:           "emp-1",
		FullName:     "Test Reviewer",
		Email:        "reviewer@example.com",
		Role:         "REVIEWER",
		Status:       auth.EmployeeStatusActive,
		PasswordHash: hash,
	})

	lat := 31.52
	reg.PutReview(registry.Review{
		ID:        "rev-1",
		SiteID:    "site-1",
		Status:    registry.StatusPendingReview,
		Priority:  registry.PriorityHigh,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		Site: registry.Site{
			ID:      "site-1",
			HouseNo: "14-B",
			Street:  "Iqbal Road",
			PinLat:  &lat,
			Area:    registry.Area{ID: 1, Name: "Gulshan East"},
			Block:   registry.Block{ID: 1, Name: "Block A"},
		},
	})
	reg.PutReview(registry.Review{
		ID:        "rev-2",
		SiteID:    "site-2",
		Status:    registry.StatusUnderReview,
		Priority:  registry.PriorityNormal,
		CreatedAt: time.Now().UTC(),
		Site: registry.Site{
			ID:      "site-2",
			HouseNo: "112",
			Street:  "Liberty Lane",
			Area:    registry.Area{ID: 2, Name: "Model Town"},
			Block:   registry.Block{ID: 2, Name: "Block 1"},
		},
	})
	return reg
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("SITEDESK_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()
	t.Cleanup(auth.ResetSecretForTests)

	reg := newTestRegistry(t)
	api := New(ReadyProbe{}, "test", reg, reg)
	api.rateBurst = 100
	api.ratePerSec = 100

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	if params != nil {
		path += "?" + params.Encode()
	}
	return c.do(http.MethodGet, path, nil, headers)
}

func (c *apiClient) login() (string, map[string]string) {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/employee/login", map[string]any{
		"username": "reviewer@example.com",
		"password": "secret123",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected login status: %d", resp.StatusCode)
	}
	var payload struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode login response: %v", err)
	}
	if !payload.Success || payload.Data.Token == "" {
		c.t.Fatalf("login did not return a token")
	}
	return payload.Data.Token, map[string]string{"Authorization": "Bearer " + payload.Data.Token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodPost, "/employee/login", map[string]any{
		"username": "reviewer@example.com",
		"password": "wrong",
	}, nil)
	body := decode[envelope[any]](t, resp)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body.Success || body.Message == "" {
		t.Fatalf("expected error envelope, got %+v", body)
	}
}

func TestAPIEnforcesAuth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/employee/reviews/pending", nil, nil)
	body := decode[envelope[any]](t, resp)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body.Message == "" {
		t.Fatal("expected error message")
	}
}

func TestDashboardEndpoints(t *testing.T) {
	api := newTestAPI(t)
	_, authHeader := api.login()

	resp := api.get("/employee/dashboard/metrics", nil, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status: %d", resp.StatusCode)
	}
	metrics := decode[envelope[registry.Metrics]](t, resp)
	if metrics.Data.PendingReviews != 2 {
		t.Fatalf("pendingReviews = %d, want 2", metrics.Data.PendingReviews)
	}

	resp = api.get("/employee/dashboard/recent-activity", url.Values{"limit": []string{"1"}}, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activity status: %d", resp.StatusCode)
	}
	feed := decode[envelope[[]registry.Activity]](t, resp)
	if len(feed.Data) != 1 {
		t.Fatalf("expected limit applied, got %d entries", len(feed.Data))
	}

	resp = api.get("/employee/dashboard/recent-activity", url.Values{"limit": []string{"abc"}}, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", resp.StatusCode)
	}
}

func TestReviewDecisionFlow(t *testing.T) {
	api := newTestAPI(t)
	_, authHeader := api.login()

	// Approve rev-1 and verify it leaves the pending list.
	resp := api.do(http.MethodPost, "/employee/reviews/rev-1/action", map[string]any{
		"action": "approve",
		"notes":  "All documents verified. Site approved.",
	}, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve status: %d", resp.StatusCode)
	}
	action := decode[envelope[reviewActionData]](t, resp)
	if action.Data.Status != registry.StatusApproved {
		t.Fatalf("unexpected status: %s", action.Data.Status)
	}

	resp = api.get("/employee/reviews/pending", nil, authHeader)
	pending := decode[envelope[[]registry.Review]](t, resp)
	for _, r := range pending.Data {
		if r.ID == "rev-1" {
			t.Fatal("approved review still pending")
		}
	}

	// Reject without notes is refused.
	resp = api.do(http.MethodPost, "/employee/reviews/rev-2/action", map[string]any{
		"action": "reject",
	}, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for reject without notes, got %d", resp.StatusCode)
	}

	// Reject with a reason succeeds.
	resp = api.do(http.MethodPost, "/employee/reviews/rev-2/action", map[string]any{
		"action": "reject",
		"notes":  "incomplete documents",
	}, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reject status: %d", resp.StatusCode)
	}
	rejected := decode[envelope[reviewActionData]](t, resp)
	if rejected.Data.Status != registry.StatusRejected {
		t.Fatalf("unexpected status: %s", rejected.Data.Status)
	}

	// A second decision on a terminal review conflicts.
	resp = api.do(http.MethodPost, "/employee/reviews/rev-2/action", map[string]any{
		"action": "approve",
		"notes":  "changed my mind",
	}, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestReviewDetailAndNotFound(t *testing.T) {
	api := newTestAPI(t)
	_, authHeader := api.login()

	resp := api.get("/employee/reviews/rev-1", nil, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("detail status: %d", resp.StatusCode)
	}
	detail := decode[envelope[registry.Review]](t, resp)
	if detail.Data.ID != "rev-1" || detail.Data.Site.HouseNo != "14-B" {
		t.Fatalf("unexpected detail: %+v", detail.Data)
	}

	resp = api.get("/employee/reviews/rev-unknown", nil, authHeader)
	body := decode[envelope[any]](t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if body.Message != "review case not found" {
		t.Fatalf("unexpected message: %q", body.Message)
	}
}

func TestUpdateSiteDetails(t *testing.T) {
	api := newTestAPI(t)
	_, authHeader := api.login()

	resp := api.do(http.MethodPut, "/reviewer/sites/site-1/update-details", map[string]any{
		"houseNo": "15-C",
		"pinLat":  31.46,
	}, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status: %d", resp.StatusCode)
	}
	site := decode[envelope[registry.Site]](t, resp)
	if site.Data.HouseNo != "15-C" {
		t.Fatalf("houseNo not updated: %q", site.Data.HouseNo)
	}
	if site.Data.Street != "Iqbal Road" {
		t.Fatalf("untouched field changed: %q", site.Data.Street)
	}
	if site.Data.PinLat == nil || *site.Data.PinLat != 31.46 {
		t.Fatalf("pinLat not updated: %v", site.Data.PinLat)
	}

	// Empty patch is rejected.
	resp = api.do(http.MethodPut, "/reviewer/sites/site-1/update-details", map[string]any{}, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty patch, got %d", resp.StatusCode)
	}

	resp = api.do(http.MethodPut, "/reviewer/sites/nope/update-details", map[string]any{
		"houseNo": "1",
	}, authHeader)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown site, got %d", resp.StatusCode)
	}
}

func TestGeoEndpoints(t *testing.T) {
	api := newTestAPI(t)
	_, authHeader := api.login()

	resp := api.get("/reviewer/geo/areas", nil, authHeader)
	areas := decode[envelope[[]registry.Area]](t, resp)
	if len(areas.Data) != 2 {
		t.Fatalf("expected 2 areas, got %d", len(areas.Data))
	}

	resp = api.get("/reviewer/geo/areas/1/blocks", nil, authHeader)
	blocks := decode[envelope[[]registry.Block]](t, resp)
	if len(blocks.Data) != 1 || blocks.Data[0].Name != "Block A" {
		t.Fatalf("unexpected blocks: %+v", blocks.Data)
	}

	resp = api.do(http.MethodPost, "/reviewer/blocks/create-or-update", map[string]any{
		"areaId": 1,
		"name":   "Block Z",
	}, authHeader)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("block upsert status: %d", resp.StatusCode)
	}
	block := decode[envelope[registry.Block]](t, resp)
	if block.Data.Name != "Block Z" {
		t.Fatalf("unexpected block: %+v", block.Data)
	}
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/healthz", nil, nil)
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", body)
	}
}
