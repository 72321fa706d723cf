package stats

import (
	"testing"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
		ok       bool
	}{
		{"Empty", []float64{}, 0, false},
		{"SingleItem", []float64{5.5}, 5.5, true},
		{"OddCount", []float64{1.1, 3.3, 2.2, 4.4, 5.5}, 3.3, true},
		{"EvenCount", []float64{1, 2, 3, 4}, 2.5, true},
		{"Unsorted", []float64{10.5, 2.5, 8.5, 4.5, 6.5}, 6.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Median(tt.values)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("Median() = %v, %v, want %v, %v", got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestMedian_DoesNotMutateInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Median(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("Median() reordered its input: %v", in)
	}
}

func TestMean(t *testing.T) {
	if _, ok := Mean(nil); ok {
		t.Error("Mean(nil) reported ok")
	}
	if got, ok := Mean([]float64{2, 4, 9}); !ok || got != 5 {
		t.Errorf("Mean() = %v, %v, want 5, true", got, ok)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, total int
		want        float64
	}{
		{0, 0, 0},
		{2, 4, 50},
		{3, 3, 100},
	}
	for _, tt := range tests {
		if got := Percent(tt.part, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %v, want %v", tt.part, tt.total, got, tt.want)
		}
	}
}
