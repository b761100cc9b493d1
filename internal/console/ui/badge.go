package ui

import (
	"strings"

	"sitedesk.org/internal/registry"
)

// StatusBadge renders a review status as a short display label.
func StatusBadge(status string) string {
	switch status {
	case registry.StatusPendingReview:
		return "Pending Review"
	case registry.StatusUnderReview:
		return "Under Review"
	case registry.StatusApproved:
		return "Approved"
	case registry.StatusRejected:
		return "Rejected"
	default:
		return titleCase(status)
	}
}

// PriorityBadge renders a review priority as a short display label.
func PriorityBadge(priority string) string {
	switch priority {
	case registry.PriorityLow:
		return "Low"
	case registry.PriorityNormal:
		return "Normal"
	case registry.PriorityHigh:
		return "High"
	case registry.PriorityUrgent:
		return "Urgent"
	default:
		return titleCase(priority)
	}
}

func titleCase(v string) string {
	v = strings.ReplaceAll(strings.ToLower(v), "_", " ")
	words := strings.Fields(v)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
