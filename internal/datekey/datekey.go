// Package datekey converts calendar days to and from the string keys tasks
// are stored and grouped by.
package datekey

import (
	"fmt"
	"time"
)

// Layout is the date key format. Keys sort lexically in calendar order, which
// the range queries rely on.
const Layout = "2006-01-02"

// Format returns the key of the calendar day t falls on, in t's location.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Parse reads a date key as midnight in loc.
func Parse(key string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", key, err)
	}
	return t, nil
}

// Valid reports whether key is a well-formed date key.
func Valid(key string) bool {
	_, err := time.Parse(Layout, key)
	return err == nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
