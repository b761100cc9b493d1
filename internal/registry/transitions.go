package registry

// transitionMap lists the statuses each reviewer action may be applied from.
var transitionMap = map[string][]string{
	ActionApprove: {StatusPendingReview, StatusUnderReview},
	ActionReject:  {StatusPendingReview, StatusUnderReview},
}

// targetStatus maps an action to the status it produces.
var targetStatus = map[string]string{
	ActionApprove: StatusApproved,
	ActionReject:  StatusRejected,
}

// TargetStatus returns the status an action produces, or "" for unknown actions.
func TargetStatus(action string) string {
	return targetStatus[action]
}

// KnownAction reports whether the action is part of the workflow.
func KnownAction(action string) bool {
	_, ok := transitionMap[action]
	return ok
}

// ValidTransition reports whether the action may be applied from the given status.
func ValidTransition(action, fromStatus string) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == fromStatus {
			return true
		}
	}
	return false
}
