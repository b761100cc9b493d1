package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"sitedesk.org/internal/auth"
	"sitedesk.org/internal/ids"
)

// Service defines the review-workflow operations the HTTP API exposes.
type Service interface {
	PendingReviews(ctx context.Context) ([]Review, error)
	GetReview(ctx context.Context, id string) (Review, error)
	ApplyAction(ctx context.Context, id, action, notes, actorID string) (Review, error)
	UpdateSiteDetails(ctx context.Context, siteID string, upd SiteUpdate) (Site, error)
	Metrics(ctx context.Context) (Metrics, error)
	RecentActivity(ctx context.Context, limit int) ([]Activity, error)
	ListAreas(ctx context.Context) ([]Area, error)
	ListBlocksByArea(ctx context.Context, areaID int) ([]Block, error)
	CreateOrUpdateBlock(ctx context.Context, areaID int, name string) (Block, error)
}

// InMemory implements Service with in-process state. Used by tests and as a
// fallback when no database DSN is configured.
type InMemory struct {
	mu        sync.RWMutex
	reviews   map[string]*Review
	areas     map[int]Area
	blocks    map[int]Block
	employees map[string]auth.Employee // keyed by ID
	nextBlock int
	now       func() time.Time
}

// NewInMemory creates an empty registry.
func NewInMemory() *InMemory {
	return &InMemory{
		reviews:   make(map[string]*Review),
		areas:     make(map[int]Area),
		blocks:    make(map[int]Block),
		employees: make(map[string]auth.Employee),
		nextBlock: 1,
		now:       time.Now,
	}
}

// SetClock overrides the time source for tests.
func (s *InMemory) SetClock(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// PutArea registers an area for lookups.
func (s *InMemory) PutArea(a Area) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.areas[a.ID] = a
}

// PutBlock registers a block for lookups.
func (s *InMemory) PutBlock(b Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[b.ID] = b
	if b.ID >= s.nextBlock {
		s.nextBlock = b.ID + 1
	}
}

// PutReview stores a review, overwriting any previous record with the same ID.
func (s *InMemory) PutReview(r Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := r
	s.reviews[r.ID] = &cp
}

// PutEmployee registers an employee account.
func (s *InMemory) PutEmployee(e auth.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

// FindByUsername implements auth.Directory. Usernames match the employee
// email, case-insensitively.
func (s *InMemory) FindByUsername(username string) (auth.Employee, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" {
		return auth.Employee{}, auth.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.employees {
		if strings.ToLower(e.Email) == username {
			return e, nil
		}
	}
	return auth.Employee{}, auth.ErrNotFound
}

// FindByID implements auth.Directory.
func (s *InMemory) FindByID(id string) (auth.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[id]
	if !ok {
		return auth.Employee{}, auth.ErrNotFound
	}
	return e, nil
}

// PendingReviews returns actionable reviews in summary shape, oldest first.
func (s *InMemory) PendingReviews(ctx context.Context) ([]Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Review
	for _, r := range s.reviews {
		if !r.Actionable() {
			continue
		}
		out = append(out, summaryOf(*r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GetReview returns the detail shape including documents, memberships and events.
func (s *InMemory) GetReview(ctx context.Context, id string) (Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reviews[id]
	if !ok {
		return Review{}, ErrReviewNotFound
	}
	return cloneReview(*r), nil
}

// ApplyAction transitions a review and appends an audit event.
func (s *InMemory) ApplyAction(ctx context.Context, id, action, notes, actorID string) (Review, error) {
	action = strings.TrimSpace(strings.ToLower(action))
	if !KnownAction(action) {
		return Review{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return Review{}, ErrReviewNotFound
	}
	if !ValidTransition(action, r.Status) {
		return Review{}, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, r.Status)
	}
	from := r.Status
	r.Status = targetStatus[action]
	r.Events = append(r.Events, Event{
		ID:         ids.New(),
		Action:     action,
		FromStatus: from,
		ToStatus:   r.Status,
		Note:       notes,
		CreatedAt:  s.now().UTC(),
	})
	if actorID != "" && r.AssigneeEmployeeID == "" {
		r.AssigneeEmployeeID = actorID
	}
	return cloneReview(*r), nil
}

// UpdateSiteDetails applies a partial update to the editable site attributes.
func (s *InMemory) UpdateSiteDetails(ctx context.Context, siteID string, upd SiteUpdate) (Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *Review
	for _, r := range s.reviews {
		if r.Site.ID == siteID {
			target = r
			break
		}
	}
	if target == nil {
		return Site{}, ErrSiteNotFound
	}

	site := &target.Site
	targetArea := site.Area
	if upd.AreaID != nil {
		area, ok := s.areas[*upd.AreaID]
		if !ok {
			return Site{}, ErrAreaNotFound
		}
		targetArea = area
	}
	// The site's block must belong to its area after the patch is applied,
	// whichever of the two fields the patch carries.
	switch {
	case upd.BlockID != nil:
		block, ok := s.blocks[*upd.BlockID]
		if !ok {
			return Site{}, ErrBlockNotFound
		}
		if block.AreaID != 0 && block.AreaID != targetArea.ID {
			return Site{}, fmt.Errorf("%w: block %d is outside area %d", ErrInvalidInput, block.ID, targetArea.ID)
		}
		site.Block = Block{ID: block.ID, Name: block.Name}
	case upd.AreaID != nil && site.Block.ID != 0:
		if block, ok := s.blocks[site.Block.ID]; ok && block.AreaID != 0 && block.AreaID != targetArea.ID {
			return Site{}, fmt.Errorf("%w: block %d is outside area %d", ErrInvalidInput, site.Block.ID, targetArea.ID)
		}
	}
	site.Area = targetArea
	if upd.HouseNo != nil {
		site.HouseNo = *upd.HouseNo
	}
	if upd.Street != nil {
		site.Street = *upd.Street
	}
	if upd.NearestLandmark != nil {
		site.NearestLandmark = *upd.NearestLandmark
	}
	if upd.AdditionalDirections != nil {
		site.AdditionalDirections = *upd.AdditionalDirections
	}
	if upd.PinLat != nil {
		v := *upd.PinLat
		site.PinLat = &v
	}
	if upd.PinLng != nil {
		v := *upd.PinLng
		site.PinLng = &v
	}
	if upd.PinAccuracyM != nil {
		v := *upd.PinAccuracyM
		site.PinAccuracyM = &v
	}
	return cloneSite(*site), nil
}

// Metrics computes the dashboard aggregates from current state.
func (s *InMemory) Metrics(ctx context.Context) (Metrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m Metrics
	today := s.now().UTC().Truncate(24 * time.Hour)
	users := make(map[string]bool)
	for _, r := range s.reviews {
		switch r.Status {
		case StatusPendingReview:
			m.PendingReviews++
		case StatusUnderReview:
			m.PendingReviews++
			m.PendingTickets++
		}
		if r.AssigneeEmployeeID != "" && r.Actionable() {
			m.AssignedReviews++
		}
		for _, ev := range r.Events {
			if ev.ToStatus == StatusApproved || ev.ToStatus == StatusRejected {
				if !ev.CreatedAt.UTC().Before(today) {
					m.ResolvedToday++
				}
			}
		}
		for _, mem := range r.Site.Memberships {
			if active, seen := users[mem.User.ID]; !seen || (!active && mem.IsActive) {
				users[mem.User.ID] = mem.IsActive
			}
		}
	}
	m.TotalUsers = len(users)
	for _, active := range users {
		if active {
			m.ActiveUsers++
		}
	}
	return m, nil
}

// RecentActivity derives a newest-first feed from review events.
func (s *InMemory) RecentActivity(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var feed []Activity
	for _, r := range s.reviews {
		feed = append(feed, Activity{
			Type:      "review_created",
			Message:   fmt.Sprintf("Review opened for %s, %s", r.Site.HouseNo, r.Site.Street),
			SiteID:    r.SiteID,
			CreatedAt: r.CreatedAt,
		})
		for _, ev := range r.Events {
			feed = append(feed, Activity{
				Type:      "review_" + ev.Action,
				Message:   fmt.Sprintf("Site %s, %s %s", r.Site.HouseNo, r.Site.Street, strings.ToLower(ev.ToStatus)),
				SiteID:    r.SiteID,
				CreatedAt: ev.CreatedAt,
			})
		}
	}
	sort.Slice(feed, func(i, j int) bool { return feed[i].CreatedAt.After(feed[j].CreatedAt) })
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

// ListAreas returns all areas sorted by name.
func (s *InMemory) ListAreas(ctx context.Context) ([]Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Area, 0, len(s.areas))
	for _, a := range s.areas {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListBlocksByArea returns the blocks belonging to an area.
func (s *InMemory) ListBlocksByArea(ctx context.Context, areaID int) ([]Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.areas[areaID]; !ok {
		return nil, ErrAreaNotFound
	}
	var out []Block
	for _, b := range s.blocks {
		if b.AreaID == areaID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateOrUpdateBlock upserts a block by (area, name).
func (s *InMemory) CreateOrUpdateBlock(ctx context.Context, areaID int, name string) (Block, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Block{}, fmt.Errorf("%w: block name is required", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.areas[areaID]; !ok {
		return Block{}, ErrAreaNotFound
	}
	for _, b := range s.blocks {
		if b.AreaID == areaID && strings.EqualFold(b.Name, name) {
			b.Name = name
			s.blocks[b.ID] = b
			return b, nil
		}
	}
	b := Block{ID: s.nextBlock, AreaID: areaID, Name: name}
	s.nextBlock++
	s.blocks[b.ID] = b
	return b, nil
}

// summaryOf strips the detail-only fields for list responses.
func summaryOf(r Review) Review {
	r.Events = nil
	r.Assignee = nil
	site := r.Site
	site.Documents = nil
	site.Memberships = nil
	site.CreatedBy = nil
	r.Site = site
	return r
}

func cloneReview(r Review) Review {
	r.Site = cloneSite(r.Site)
	if r.Events != nil {
		events := make([]Event, len(r.Events))
		copy(events, r.Events)
		r.Events = events
	}
	if r.Assignee != nil {
		a := *r.Assignee
		r.Assignee = &a
	}
	return r
}

func cloneSite(site Site) Site {
	if site.Documents != nil {
		docs := make([]Document, len(site.Documents))
		copy(docs, site.Documents)
		site.Documents = docs
	}
	if site.Memberships != nil {
		mems := make([]Membership, len(site.Memberships))
		copy(mems, site.Memberships)
		site.Memberships = mems
	}
	if site.CreatedBy != nil {
		u := *site.CreatedBy
		site.CreatedBy = &u
	}
	site.PinLat = cloneFloat(site.PinLat)
	site.PinLng = cloneFloat(site.PinLng)
	site.PinAccuracyM = cloneFloat(site.PinAccuracyM)
	return site
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
