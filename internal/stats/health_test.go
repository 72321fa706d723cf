package stats

import (
	"testing"
	"time"

	"gitlab-pulse/internal/gitlab"

	"pgregory.net/rapid"
)

func TestHealthScore(t *testing.T) {
	tests := []struct {
		name  string
		in    HealthInput
		score int
		label string
	}{
		{"Perfect", HealthInput{SuccessRate: 100}, 100, HealthExcellent},
		{"MixedPenalties", HealthInput{SuccessRate: 75, OpenMRs: 12, FailedPipelines: 2}, 75, HealthGood},
		{"SuccessBelow90", HealthInput{SuccessRate: 85}, 90, HealthExcellent},
		{"ExactlyNinety", HealthInput{SuccessRate: 90}, 100, HealthExcellent},
		{"ManyOpenMRs", HealthInput{SuccessRate: 100, OpenMRs: 21}, 85, HealthExcellent},
		{"TwentyOpenMRs", HealthInput{SuccessRate: 100, OpenMRs: 20}, 95, HealthExcellent},
		{"EverythingWrong", HealthInput{SuccessRate: 0, OpenMRs: 50, FailedPipelines: 40, StaleMRs: 10}, 45, HealthNeedsAttention},
		{"StaleThreshold", HealthInput{SuccessRate: 100, StaleMRs: 3}, 100, HealthExcellent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HealthScore(tt.in)
			if got.Score != tt.score || got.Label != tt.label {
				t.Errorf("HealthScore() = %d %q, want %d %q", got.Score, got.Label, tt.score, tt.label)
			}
		})
	}
}

func TestHealthScore_RangeAndMonotonicity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		in := HealthInput{
			SuccessRate:     rapid.Float64Range(0, 100).Draw(t, "rate"),
			OpenMRs:         rapid.IntRange(0, 100).Draw(t, "open"),
			FailedPipelines: rapid.IntRange(0, 100).Draw(t, "failed"),
			StaleMRs:        rapid.IntRange(0, 100).Draw(t, "stale"),
		}
		base := HealthScore(in).Score
		if base < 0 || base > 100 {
			t.Fatalf("score %d out of range for %+v", base, in)
		}

		worse := in
		switch rapid.IntRange(0, 3).Draw(t, "signal") {
		case 0:
			worse.SuccessRate = rapid.Float64Range(0, in.SuccessRate).Draw(t, "lower rate")
		case 1:
			worse.OpenMRs += rapid.IntRange(0, 50).Draw(t, "more open")
		case 2:
			worse.FailedPipelines += rapid.IntRange(0, 50).Draw(t, "more failed")
		case 3:
			worse.StaleMRs += rapid.IntRange(0, 50).Draw(t, "more stale")
		}
		if got := HealthScore(worse).Score; got > base {
			t.Fatalf("score rose from %d to %d going from %+v to %+v", base, got, in, worse)
		}
	})
}

func TestNewHealthInput(t *testing.T) {
	now := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	mrs := []gitlab.MergeRequest{
		{ID: 1, State: gitlab.StateOpened, CreatedAt: now.AddDate(0, 0, -10)},
		{ID: 2, State: gitlab.StateOpened, CreatedAt: now.AddDate(0, 0, -1)},
		{ID: 3, State: gitlab.StateMerged, CreatedAt: now.AddDate(0, 0, -30)},
	}
	pipelines := []gitlab.Pipeline{
		{ID: 1, Status: gitlab.PipelineSuccess},
		{ID: 2, Status: gitlab.PipelineFailed},
	}

	got := NewHealthInput(mrs, pipelines, now)
	want := HealthInput{SuccessRate: 50, OpenMRs: 2, FailedPipelines: 1, StaleMRs: 1}
	if got != want {
		t.Errorf("NewHealthInput() = %+v, want %+v", got, want)
	}
}
