// Package client is the console's single point of contact with the Sitedesk
// API: it builds URLs from a fixed endpoint table, attaches bearer auth, and
// normalizes transport and API errors into typed values.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sitedesk.org/internal/obs"
	"sitedesk.org/internal/registry"
)

// Typed error kinds. Callers branch with errors.Is instead of matching
// message substrings.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Endpoint paths consumed by the console.
const (
	pathLogin          = "/employee/login"
	pathLogout         = "/auth/logout"
	pathMetrics        = "/employee/dashboard/metrics"
	pathRecentActivity = "/employee/dashboard/recent-activity"
	pathPendingReviews = "/employee/reviews/pending"
	pathReviewDetail   = "/employee/reviews/%s"
	pathReviewAction   = "/employee/reviews/%s/action"
	pathSiteUpdate     = "/reviewer/sites/%s/update-details"
	pathAreas          = "/reviewer/geo/areas"
	pathAreaBlocks     = "/reviewer/geo/areas/%d/blocks"
	pathBlockUpsert    = "/reviewer/blocks/create-or-update"
)

// TokenSource supplies the bearer token for authenticated calls. An empty
// token means no session is active.
type TokenSource interface {
	Token() string
}

// Client talks to the Sitedesk API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New constructs a Client for the given API origin.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Employee is the profile returned at login.
type Employee struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// LoginResult carries the session token and profile from a successful login.
type LoginResult struct {
	Token    string   `json:"token"`
	Role     string   `json:"role"`
	Employee Employee `json:"employee"`
}

// Login exchanges credentials for a session token. No auth is attached.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, http.MethodPost, pathLogin, map[string]string{
		"username": username,
		"password": password,
	}, &out, false)
	return out, err
}

// Logout tells the server the session ended. Best-effort; tokens are
// stateless so a failure here only loses the audit entry.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, pathLogout, nil, nil, true)
}

// DashboardMetrics fetches the aggregate dashboard counts.
func (c *Client) DashboardMetrics(ctx context.Context) (registry.Metrics, error) {
	var out registry.Metrics
	err := c.do(ctx, http.MethodGet, pathMetrics, nil, &out, true)
	return out, err
}

// RecentActivity fetches the recent-activity feed.
func (c *Client) RecentActivity(ctx context.Context, limit int) ([]registry.Activity, error) {
	path := pathRecentActivity
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []registry.Activity
	err := c.do(ctx, http.MethodGet, path, nil, &out, true)
	return out, err
}

// PendingReviews fetches the actionable review list. Identifiers are
// normalized at this boundary; records with no usable identifier are
// excluded and logged.
func (c *Client) PendingReviews(ctx context.Context) ([]registry.Review, error) {
	var raw []wireReview
	if err := c.do(ctx, http.MethodGet, pathPendingReviews, nil, &raw, true); err != nil {
		return nil, err
	}
	out := make([]registry.Review, 0, len(raw))
	for _, w := range raw {
		r, ok := w.normalized()
		if !ok {
			obs.LogEntry(map[string]any{
				"level":   "warn",
				"msg":     "review record dropped: no identifier",
				"site_id": w.SiteID,
			})
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ReviewDetails fetches the full detail shape for one review.
func (c *Client) ReviewDetails(ctx context.Context, id string) (registry.Review, error) {
	var raw wireReview
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf(pathReviewDetail, id), nil, &raw, true); err != nil {
		return registry.Review{}, err
	}
	r, ok := raw.normalized()
	if !ok {
		// The server addressed it by this id; trust the request path.
		r = raw.Review
		r.ID = id
	}
	return r, nil
}

// ApproveReview applies the approve action.
func (c *Client) ApproveReview(ctx context.Context, id, notes string) error {
	return c.reviewAction(ctx, id, registry.ActionApprove, notes)
}

// RejectReview applies the reject action with the given reason.
func (c *Client) RejectReview(ctx context.Context, id, notes string) error {
	return c.reviewAction(ctx, id, registry.ActionReject, notes)
}

func (c *Client) reviewAction(ctx context.Context, id, action, notes string) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf(pathReviewAction, id), map[string]string{
		"action": action,
		"notes":  notes,
	}, nil, true)
}

// UpdateSiteDetails submits a partial update of the editable site fields.
func (c *Client) UpdateSiteDetails(ctx context.Context, siteID string, upd registry.SiteUpdate) (registry.Site, error) {
	var out registry.Site
	err := c.do(ctx, http.MethodPut, fmt.Sprintf(pathSiteUpdate, siteID), upd, &out, true)
	return out, err
}

// ListAreas fetches the geo reference areas.
func (c *Client) ListAreas(ctx context.Context) ([]registry.Area, error) {
	var out []registry.Area
	err := c.do(ctx, http.MethodGet, pathAreas, nil, &out, true)
	return out, err
}

// ListBlocksByArea fetches the blocks belonging to an area.
func (c *Client) ListBlocksByArea(ctx context.Context, areaID int) ([]registry.Block, error) {
	var out []registry.Block
	err := c.do(ctx, http.MethodGet, fmt.Sprintf(pathAreaBlocks, areaID), nil, &out, true)
	return out, err
}

// CreateOrUpdateBlock upserts a block by area and name.
func (c *Client) CreateOrUpdateBlock(ctx context.Context, areaID int, name string) (registry.Block, error) {
	var out registry.Block
	err := c.do(ctx, http.MethodPost, pathBlockUpsert, map[string]any{
		"areaId": areaID,
		"name":   name,
	}, &out, true)
	return out, err
}

// wireReview tolerates the id/reviewId naming inconsistency on inbound
// records.
type wireReview struct {
	registry.Review
	ReviewID string `json:"reviewId"`
}

// normalized resolves the identifier (id wins over reviewId) and reports
// whether the record carries one at all.
func (w wireReview) normalized() (registry.Review, bool) {
	r := w.Review
	if r.ID == "" {
		r.ID = w.ReviewID
	}
	if r.ID == "" {
		return registry.Review{}, false
	}
	return r, true
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, requireAuth bool) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireAuth && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		obs.LogEntry(map[string]any{
			"level":  "error",
			"msg":    "api request failed",
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	obs.LogEntry(map[string]any{
		"level":       "debug",
		"msg":         "api request",
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if !isJSONResponse(resp) {
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = resp.Status
		}
		return c.statusError(resp.StatusCode, msg)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return c.statusError(resp.StatusCode, msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}

// statusError maps the HTTP status onto the typed error kinds so callers
// never inspect message text.
func (c *Client) statusError(code int, msg string) error {
	switch code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	default:
		return errors.New(msg)
	}
}

func isJSONResponse(resp *http.Response) bool {
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
