package service

import (
	"strings"
	"time"
)

const dueDateLayout = "2006-01-02"

// parseDueDate accepts YYYY-MM-DD or a full RFC 3339 timestamp. Blank input yields nil.
func parseDueDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	if t, err := time.Parse(dueDateLayout, s); err == nil {
		return &t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d, true
	}
	return nil, false
}
