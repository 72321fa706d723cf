package stats

import (
	"fmt"
	"math"
	"time"
)

// Window is a calendar range split into day, week or month buckets.
// Boundaries are snapped to whole buckets in the location of the inputs.
type Window struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Bucket string    `json:"bucket"` // "day", "week", "month"
}

// NewWindow creates a window whose start and end cover whole buckets.
func NewWindow(start, end time.Time, bucket string) Window {
	if bucket == "" {
		bucket = "day"
	}
	return Window{
		Start:  SnapToStart(start, bucket),
		End:    SnapToEnd(end, bucket),
		Bucket: bucket,
	}
}

// SnapToStart normalizes a timestamp to the beginning of its bucket (0:00:00).
// Weeks start on Monday.
func SnapToStart(t time.Time, bucket string) time.Time {
	if t.IsZero() {
		return t
	}
	switch bucket {
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case "week":
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday -> 7
		}
		return time.Date(t.Year(), t.Month(), t.Day()-(weekday-1), 0, 0, 0, 0, t.Location())
	default: // day
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

// SnapToEnd normalizes a timestamp to the very end of its bucket (23:59:59.999...).
func SnapToEnd(t time.Time, bucket string) time.Time {
	if t.IsZero() {
		return t
	}
	switch bucket {
	case "month":
		nextMonth := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
		return nextMonth.Add(-time.Nanosecond)
	case "week":
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		return time.Date(t.Year(), t.Month(), t.Day()+(7-weekday), 23, 59, 59, 999999999, t.Location())
	default: // day
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
	}
}

// Subdivide returns the start of every bucket in the window.
func (w Window) Subdivide() []time.Time {
	var buckets []time.Time
	current := w.Start

	for current.Before(w.End) {
		buckets = append(buckets, current)
		switch w.Bucket {
		case "month":
			current = current.AddDate(0, 1, 0)
		case "week":
			current = current.AddDate(0, 0, 7)
		default: // day
			current = current.AddDate(0, 0, 1)
		}
	}
	return buckets
}

// FindBucketIndex returns the index of the bucket containing t, or -1 when t
// falls outside the window. t is first moved into the window's location.
func (w Window) FindBucketIndex(t time.Time) int {
	tNorm := SnapToStart(t.In(w.Start.Location()), w.Bucket)
	if tNorm.Before(w.Start) || tNorm.After(w.End) {
		return -1
	}

	switch w.Bucket {
	case "month":
		return (tNorm.Year()-w.Start.Year())*12 + int(tNorm.Month()-w.Start.Month())
	case "week":
		// Rounded so that a DST shift of one hour does not move a bucket.
		return int(math.Round(tNorm.Sub(w.Start).Hours() / (24 * 7)))
	default: // day
		return int(math.Round(tNorm.Sub(w.Start).Hours() / 24))
	}
}

// DayCount returns the number of calendar days in the window.
func (w Window) DayCount() int {
	return int(math.Round(w.End.Sub(w.Start).Hours() / 24.0))
}

// GenerateLabel returns a human-readable label for a bucket (e.g., "Jan 2024" or "2024-W01").
func (w Window) GenerateLabel(t time.Time) string {
	switch w.Bucket {
	case "month":
		return t.Format("Jan 2006")
	case "week":
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default: // day
		return t.Format("2006-01-02")
	}
}
