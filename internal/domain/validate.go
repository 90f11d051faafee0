package domain

import (
	"regexp"
	"strings"
	"time"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether s looks like an email address. Only syntax is
// checked; deliverability is the tracker's problem.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidDueDate reports whether s is a calendar date in YYYY-MM-DD form.
func ValidDueDate(s string) bool {
	if len(s) != len("2006-01-02") {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// NormalizePriority maps any input to one of the three accepted priorities,
// defaulting to medium for absent or unrecognized values.
func NormalizePriority(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh, "urgent":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// NormalizeActionItems enforces the item invariants on a freshly parsed
// batch: items without a title are dropped, priorities are defaulted,
// ownerEmail and dueDate are cleared when syntactically invalid, and every
// item starts out pending.
func NormalizeActionItems(items []ActionItem) []ActionItem {
	out := make([]ActionItem, 0, len(items))
	for _, item := range items {
		item.Title = strings.TrimSpace(item.Title)
		if item.Title == "" {
			continue
		}

		item.Priority = NormalizePriority(item.Priority)

		if item.OwnerEmail != "" && !ValidEmail(item.OwnerEmail) {
			item.OwnerEmail = ""
		}
		if item.DueDate != "" && !ValidDueDate(item.DueDate) {
			item.DueDate = ""
		}
		if item.Status == "" {
			item.Status = StatusPending
		}

		out = append(out, item)
	}
	return out
}
