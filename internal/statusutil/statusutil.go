package statusutil

import (
	"fmt"
	"strings"
	"time"

	"taskflow-cli/internal/model"
)

// OverdueAfter is how long a task may sit in an open status before it counts as overdue.
const OverdueAfter = 24 * time.Hour

// NormalizeStatus maps user input (any case, dashes/underscores for spaces) to a task status.
func NormalizeStatus(s string) (model.Status, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	if key == "" {
		return "", fmt.Errorf("invalid status: empty")
	}
	for _, st := range model.Statuses {
		if strings.ToLower(string(st)) == key {
			return st, nil
		}
	}
	if key == "inprogress" || key == "doing" {
		return model.StatusInProgress, nil
	}
	return "", fmt.Errorf("invalid status: %q", s)
}

func ValidStatus(st model.Status) bool {
	for _, s := range model.Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsEndState reports whether no further work is expected on a task in this status.
func IsEndState(st model.Status) bool {
	return st == model.StatusCompleted || st == model.StatusCancelled
}

// IsOpen reports whether the status can become overdue.
func IsOpen(st model.Status) bool {
	switch st {
	case model.StatusPending, model.StatusInProgress, model.StatusHold:
		return true
	}
	return false
}

// IsOverdue is derived on every render and never stored.
func IsOverdue(t model.Task, now time.Time) bool {
	if !IsOpen(t.Status) || t.Timestamp.IsZero() {
		return false
	}
	return now.Sub(t.Timestamp.Time) > OverdueAfter
}

// HoursOverdue returns whole hours since creation for overdue tasks, 0 otherwise.
func HoursOverdue(t model.Task, now time.Time) int {
	if !IsOverdue(t, now) {
		return 0
	}
	return int(now.Sub(t.Timestamp.Time) / time.Hour)
}
