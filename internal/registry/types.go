package registry

import (
	"errors"
	"time"
)

// Review statuses. PENDING_REVIEW and UNDER_REVIEW are actionable;
// APPROVED and REJECTED are terminal.
const (
	StatusPendingReview = "PENDING_REVIEW"
	StatusUnderReview   = "UNDER_REVIEW"
	StatusApproved      = "APPROVED"
	StatusRejected      = "REJECTED"
)

// Review priorities.
const (
	PriorityLow    = "LOW"
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// Reviewer actions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// Review links a submitted Site to the approval workflow.
type Review struct {
	ID                 string    `json:"id"`
	SiteID             string    `json:"siteId"`
	Status             string    `json:"status"`
	Priority           string    `json:"priority"`
	CreatedAt          time.Time `json:"createdAt"`
	Site               Site      `json:"site"`
	AssigneeEmployeeID string    `json:"currentAssigneeEmployeeId,omitempty"`
	Assignee           *Assignee `json:"assignee,omitempty"`
	Events             []Event   `json:"events,omitempty"`
}

// Actionable reports whether the review still awaits a decision.
func (r Review) Actionable() bool {
	return r.Status == StatusPendingReview || r.Status == StatusUnderReview
}

// Assignee is the employee currently holding the review.
type Assignee struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

// Site is a physical-address record with geographic classification.
type Site struct {
	ID                   string       `json:"id"`
	HouseNo              string       `json:"houseNo"`
	Street               string       `json:"street"`
	NearestLandmark      string       `json:"nearestLandmark,omitempty"`
	AdditionalDirections string       `json:"additionalDirections,omitempty"`
	PinLat               *float64     `json:"pinLat,omitempty"`
	PinLng               *float64     `json:"pinLng,omitempty"`
	PinAccuracyM         *float64     `json:"pinAccuracyM,omitempty"`
	PinCapturedAt        *time.Time   `json:"pinCapturedAt,omitempty"`
	Area                 Area         `json:"area"`
	Block                Block        `json:"block"`
	Documents            []Document   `json:"documents,omitempty"`
	Memberships          []Membership `json:"memberships,omitempty"`
	CreatedBy            *User        `json:"createdBy,omitempty"`
}

// Area is a geographic classification unit.
type Area struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Block is a subdivision of an area.
type Block struct {
	ID     int    `json:"id"`
	AreaID int    `json:"areaId,omitempty"`
	Name   string `json:"name"`
}

// Membership associates a user with a site.
type Membership struct {
	ID       string `json:"id"`
	Role     string `json:"role,omitempty"`
	IsActive bool   `json:"isActive"`
	User     User   `json:"user"`
}

// User is a resident or applicant tied to a site.
type User struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName,omitempty"`
	Email        string     `json:"email,omitempty"`
	PrimaryPhone string     `json:"primaryPhone,omitempty"`
	CNIC         string     `json:"cnic,omitempty"`
	Documents    []Document `json:"documents,omitempty"`
}

// Document is a read-only supporting file reference.
type Document struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	FileURI    string     `json:"fileUri"`
	UploadedBy *User      `json:"uploadedBy,omitempty"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
}

// Event is an append-only audit-trail entry describing a status transition.
type Event struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus"`
	Note       string    `json:"note"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SiteUpdate is a partial update over the editable site attributes.
// Nil fields are left untouched.
type SiteUpdate struct {
	HouseNo              *string  `json:"houseNo,omitempty"`
	Street               *string  `json:"street,omitempty"`
	AreaID               *int     `json:"areaId,omitempty"`
	BlockID              *int     `json:"blockId,omitempty"`
	NearestLandmark      *string  `json:"nearestLandmark,omitempty"`
	AdditionalDirections *string  `json:"additionalDirections,omitempty"`
	PinLat               *float64 `json:"pinLat,omitempty"`
	PinLng               *float64 `json:"pinLng,omitempty"`
	PinAccuracyM         *float64 `json:"pinAccuracyM,omitempty"`
}

// IsEmpty reports whether the update carries no changes.
func (u SiteUpdate) IsEmpty() bool {
	return u.HouseNo == nil && u.Street == nil && u.AreaID == nil && u.BlockID == nil &&
		u.NearestLandmark == nil && u.AdditionalDirections == nil &&
		u.PinLat == nil && u.PinLng == nil && u.PinAccuracyM == nil
}

// Metrics are the dashboard aggregate counts.
type Metrics struct {
	PendingReviews  int `json:"pendingReviews"`
	AssignedReviews int `json:"assignedReviews"`
	PendingTickets  int `json:"pendingTickets"`
	ResolvedToday   int `json:"resolvedToday"`
	TotalUsers      int `json:"totalUsers"`
	ActiveUsers     int `json:"activeUsers"`
}

// Activity is a recent-activity feed entry.
type Activity struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	SiteID    string    `json:"siteId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

var (
	ErrReviewNotFound    = errors.New("review case not found")
	ErrSiteNotFound      = errors.New("site not found")
	ErrAreaNotFound      = errors.New("area not found")
	ErrBlockNotFound     = errors.New("block not found")
	ErrInvalidAction     = errors.New("invalid action")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInput      = errors.New("invalid input")
)
