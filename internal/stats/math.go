package stats

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean and false for an empty slice.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return stat.Mean(values, nil), true
}

// Median returns the median value and false for an empty slice.
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	// Work on a copy to avoid mutating the original
	temp := slices.Clone(values)
	slices.Sort(temp)

	n := len(temp)
	if n%2 == 1 {
		return temp[n/2], true
	}
	return (temp[n/2-1] + temp[n/2]) / 2.0, true
}

// Percent returns part/total*100, or 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
