package domain

import "time"

// TimeLayout is the stored timestamp format. It is fixed width so that
// ORDER BY on the text column is chronological.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Stamp formats t in UTC with TimeLayout.
func Stamp(t time.Time) string { return t.UTC().Format(TimeLayout) }
