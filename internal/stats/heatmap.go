package stats

import (
	"time"

	"gitlab-pulse/internal/gitlab"
)

// HeatmapWeeks is the trailing span of the full-year heatmap.
const HeatmapWeeks = 52

// DayCount is one cell of a commit heatmap.
type DayCount struct {
	Date  string `json:"date"` // yyyy-mm-dd
	Count int    `json:"count"`
	Level int    `json:"level"` // 0 (none) to 4 (busiest)
}

type Heatmap struct {
	Days  []DayCount `json:"days"`
	Total int        `json:"total"`
	Max   int        `json:"max"`
}

// Counts returns the heatmap as a date to count map.
func (h Heatmap) Counts() map[string]int {
	m := make(map[string]int, len(h.Days))
	for _, d := range h.Days {
		m[d.Date] = d.Count
	}
	return m
}

// CommitHeatmap counts commits per calendar day of their committed date, for
// every day from start to end inclusive. Days are taken in end's location.
// Days without commits are present with a zero count.
func CommitHeatmap(commits []gitlab.Commit, start, end time.Time) Heatmap {
	w := NewWindow(start.In(end.Location()), end, "day")
	days := w.Subdivide()

	counts := make([]int, len(days))
	for _, c := range commits {
		if idx := w.FindBucketIndex(c.CommittedDate); idx >= 0 && idx < len(counts) {
			counts[idx]++
		}
	}

	h := Heatmap{Days: make([]DayCount, len(days))}
	for i, day := range days {
		h.Total += counts[i]
		h.Max = max(h.Max, counts[i])
		h.Days[i] = DayCount{Date: w.GenerateLabel(day), Count: counts[i]}
	}
	for i := range h.Days {
		h.Days[i].Level = IntensityLevel(h.Days[i].Count, h.Max)
	}
	return h
}

// YearHeatmap covers the 52 weeks up to and including today.
func YearHeatmap(commits []gitlab.Commit, now time.Time) Heatmap {
	return CommitHeatmap(commits, now.AddDate(0, 0, -7*HeatmapWeeks), now)
}

// WeekHeatmap lays out Monday to Sunday of the current week and counts the
// commits of the trailing seven days that fall on those dates.
func WeekHeatmap(commits []gitlab.Commit, now time.Time) Heatmap {
	weekAgo := now.AddDate(0, 0, -7)
	recent := make([]gitlab.Commit, 0, len(commits))
	for _, c := range commits {
		if !c.CommittedDate.Before(weekAgo) && !c.CommittedDate.After(now) {
			recent = append(recent, c)
		}
	}
	return CommitHeatmap(recent, SnapToStart(now, "week"), SnapToEnd(now, "week"))
}

// IntensityLevel maps a count onto five shades relative to the busiest day.
func IntensityLevel(count, maxCount int) int {
	if count <= 0 {
		return 0
	}
	if maxCount < 1 {
		maxCount = 1
	}
	return 1 + min(count*4/maxCount, 3)
}
