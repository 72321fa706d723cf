package stats

import (
	"testing"
	"time"

	"gitlab-pulse/internal/gitlab"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tsp(s string) *time.Time {
	t := ts(s)
	return &t
}

func TestSummarizePipelines(t *testing.T) {
	got := SummarizePipelines([]gitlab.Pipeline{
		{ID: 1, Status: "success"},
		{ID: 2, Status: "success"},
		{ID: 3, Status: "failed"},
		{ID: 4, Status: "running"},
	})
	if got.SuccessRate != 50 || got.Successful != 2 || got.Failed != 1 || got.Running != 1 || got.Total != 4 {
		t.Errorf("SummarizePipelines() = %+v", got)
	}

	empty := SummarizePipelines(nil)
	if empty.SuccessRate != 0 || empty.Total != 0 {
		t.Errorf("SummarizePipelines(nil) = %+v, want zero rate", empty)
	}
}

func TestAverageCycleTime(t *testing.T) {
	tests := []struct {
		name string
		mrs  []gitlab.MergeRequest
		want float64
		ok   bool
	}{
		{
			name: "NoneMerged",
			mrs: []gitlab.MergeRequest{
				{ID: 1, State: "opened", CreatedAt: ts("2024-01-01T00:00:00Z")},
				{ID: 2, State: "closed", CreatedAt: ts("2024-01-01T00:00:00Z")},
			},
			ok: false,
		},
		{
			name: "ExcludesUnmerged",
			mrs: []gitlab.MergeRequest{
				{ID: 1, State: "merged", CreatedAt: ts("2024-01-01T00:00:00Z"), MergedAt: tsp("2024-01-01T10:00:00Z")},
				{ID: 2, State: "merged", CreatedAt: ts("2024-01-01T00:00:00Z"), MergedAt: tsp("2024-01-02T06:00:00Z")},
				{ID: 3, State: "opened", CreatedAt: ts("2023-01-01T00:00:00Z")},
			},
			want: 20,
			ok:   true,
		},
		{
			name: "FractionalHours",
			mrs: []gitlab.MergeRequest{
				{ID: 1, State: "merged", CreatedAt: ts("2024-01-01T00:00:00Z"), MergedAt: tsp("2024-01-01T01:30:00Z")},
			},
			want: 1.5,
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AverageCycleTime(tt.mrs)
			if got != tt.want || ok != tt.ok {
				t.Errorf("AverageCycleTime() = %v, %v, want %v, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSummarizeMergeRequests_NullAverage(t *testing.T) {
	s := SummarizeMergeRequests([]gitlab.MergeRequest{{ID: 1, State: "opened"}})
	if s.AvgCycleHours != nil || s.MedianCycleHours != nil {
		t.Errorf("cycle times = %v, %v, want nil", s.AvgCycleHours, s.MedianCycleHours)
	}
	if s.Opened != 1 || s.Total != 1 {
		t.Errorf("SummarizeMergeRequests() = %+v", s)
	}
}

func TestRankContributors(t *testing.T) {
	commits := []gitlab.Commit{
		{ID: "1", AuthorEmail: "ann@example.com", AuthorName: "Ann"},
		{ID: "2", AuthorEmail: "bob@example.com", AuthorName: "Bob"},
		{ID: "3", AuthorEmail: "bob@example.com", AuthorName: "Robert"},
		{ID: "4", AuthorEmail: "cy@example.com", AuthorName: "Cy"},
	}
	mrs := []gitlab.MergeRequest{
		{ID: 1, Author: gitlab.User{Email: "ann@example.com", Name: "Ann A."}},
		{ID: 2, Author: gitlab.User{Email: "ann@example.com", Name: "Ann A."}},
		{ID: 3, Author: gitlab.User{Email: "dee@example.com", Name: "Dee"}},
	}

	got := RankContributors(commits, mrs)
	want := []Contributor{
		{Email: "ann@example.com", Name: "Ann", Commits: 1, MergeRequests: 2},
		{Email: "bob@example.com", Name: "Bob", Commits: 2},
		{Email: "cy@example.com", Name: "Cy", Commits: 1},
		{Email: "dee@example.com", Name: "Dee", MergeRequests: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEnergy(t *testing.T) {
	if got := EnergyScore(10, 3, 4); got != 39 {
		t.Errorf("EnergyScore(10, 3, 4) = %d, want 39", got)
	}

	levels := []struct {
		energy int
		want   string
	}{
		{0, "inactive"}, {1, "low"}, {21, "medium"}, {51, "high"}, {101, "very high"},
	}
	for _, tt := range levels {
		if got := EnergyLevel(tt.energy); got != tt.want {
			t.Errorf("EnergyLevel(%d) = %q, want %q", tt.energy, got, tt.want)
		}
	}

	in := []ProjectEnergy{
		NewProjectEnergy(1, "beta", "", 1, 0, 0),
		NewProjectEnergy(2, "Alpha", "", 10, 1, 0),
		NewProjectEnergy(3, "gamma", "", 5, 0, 0),
	}
	byEnergy := RankEnergy(in, SortByEnergy)
	if byEnergy[0].ProjectID != 2 || byEnergy[1].ProjectID != 3 || byEnergy[2].ProjectID != 1 {
		t.Errorf("RankEnergy(energy) = %+v", byEnergy)
	}
	byName := RankEnergy(in, SortByName)
	if byName[0].Name != "Alpha" || byName[2].Name != "gamma" {
		t.Errorf("RankEnergy(name) = %+v", byName)
	}
	if in[0].ProjectID != 1 {
		t.Error("RankEnergy mutated its input")
	}
}

func TestVelocity(t *testing.T) {
	// Thursday.
	now := ts("2024-04-11T12:00:00Z")
	mrs := []gitlab.MergeRequest{
		{ID: 1, CreatedAt: ts("2024-04-08T09:00:00Z"), MergedAt: tsp("2024-04-10T09:00:00Z")},
		{ID: 2, CreatedAt: ts("2024-04-05T09:00:00Z"), MergedAt: tsp("2024-04-09T09:00:00Z")},
		{ID: 3, CreatedAt: ts("2023-01-01T09:00:00Z")},
	}

	weeks := Velocity(mrs, now, VelocityWeeks)
	if len(weeks) != 13 {
		t.Fatalf("len(weeks) = %d, want 13", len(weeks))
	}
	last := weeks[len(weeks)-1]
	if last.Start.Format("2006-01-02") != "2024-04-08" || last.Opened != 1 || last.Merged != 2 {
		t.Errorf("current week = %+v", last)
	}
	prev := weeks[len(weeks)-2]
	if prev.Opened != 1 || prev.Merged != 0 {
		t.Errorf("previous week = %+v", prev)
	}
	for _, w := range weeks {
		if w.Start.Weekday() != time.Monday {
			t.Errorf("week %s starts on %s, want Monday", w.Week, w.Start.Weekday())
		}
	}
}

func TestVelocity_SundayBelongsToPreviousWeek(t *testing.T) {
	now := ts("2024-04-11T12:00:00Z")
	sunday := []gitlab.MergeRequest{{ID: 1, CreatedAt: ts("2024-04-07T18:00:00Z")}}

	weeks := Velocity(sunday, now, VelocityWeeks)
	if got := weeks[len(weeks)-2]; got.Opened != 1 || got.Start.Format("2006-01-02") != "2024-04-01" {
		t.Errorf("Sunday MR bucket = %+v, want week of 2024-04-01", got)
	}
}

func TestSummarizeReviews(t *testing.T) {
	mrs := []gitlab.MergeRequest{
		{ID: 1, State: "merged", Author: gitlab.User{ID: 7}, CreatedAt: ts("2024-01-01T00:00:00Z"), MergedAt: tsp("2024-01-01T04:00:00Z")},
		{ID: 2, State: "merged", Author: gitlab.User{ID: 7}, CreatedAt: ts("2024-01-01T00:00:00Z"), MergedAt: tsp("2024-01-01T08:00:00Z")},
		{ID: 3, State: "merged", Author: gitlab.User{ID: 9}, CreatedAt: ts("2024-01-01T00:00:00Z"), MergedAt: tsp("2024-01-01T12:00:00Z")},
		{ID: 4, State: "opened", Author: gitlab.User{ID: 11}},
	}
	got := SummarizeReviews(mrs)
	if got.Reviewers != 2 || got.Merged != 3 || got.AvgCycleHours == nil || *got.AvgCycleHours != 8 {
		t.Errorf("SummarizeReviews() = %+v", got)
	}
}

func TestAgingIssues(t *testing.T) {
	now := ts("2024-06-01T00:00:00Z")
	issues := []gitlab.Issue{
		{ID: 1, State: "opened", CreatedAt: now.AddDate(0, 0, -3)},
		{ID: 2, State: "opened", CreatedAt: now.AddDate(0, 0, -40)},
		{ID: 3, State: "closed", CreatedAt: now.AddDate(0, 0, -200)},
		{ID: 4, State: "opened", CreatedAt: now.AddDate(0, 0, -100)},
		{ID: 5, State: "opened", CreatedAt: now.AddDate(0, 0, -10)},
	}

	aging := AgingIssues(issues, nil, now)
	if len(aging) != 3 || aging[0].ID != 4 || aging[1].ID != 2 || aging[2].ID != 5 {
		t.Fatalf("AgingIssues() = %+v", aging)
	}

	s := SummarizeAging(aging)
	want := AgingSummary{Total: 3, Old: 2, VeryOld: 1, AverageAgeDays: 50}
	if s != want {
		t.Errorf("SummarizeAging() = %+v, want %+v", s, want)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{0.4, "0h"},
		{5.2, "5h"},
		{24, "1d"},
		{51, "2d 3h"},
		{47.8, "2d"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.hours); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.hours, got, tt.want)
		}
	}
}

func TestDateRangeAndActiveProjects(t *testing.T) {
	now := ts("2024-03-31T12:00:00Z")
	since, until := DateRange(PeriodMonth, now)
	if !until.Equal(now) || since.Format("2006-01-02") != "2024-03-02" {
		t.Errorf("DateRange(month) = %v, %v", since, until)
	}

	projects := []gitlab.Project{
		{ID: 1, UpdatedAt: now.AddDate(0, 0, -2)},
		{ID: 2, UpdatedAt: now.AddDate(0, 0, -20)},
		{ID: 3, UpdatedAt: now.AddDate(0, -6, 0)},
	}
	tests := []struct {
		period Period
		want   int
	}{
		{PeriodWeek, 1},
		{PeriodMonth, 2},
		{PeriodAll, 3},
	}
	for _, tt := range tests {
		if got := ActiveProjects(projects, tt.period, now); got != tt.want {
			t.Errorf("ActiveProjects(%s) = %d, want %d", tt.period, got, tt.want)
		}
	}
	if ParsePeriod("bogus") != PeriodMonth {
		t.Error("ParsePeriod(bogus) should fall back to month")
	}
}

func TestActivityFeedAndCodePulse(t *testing.T) {
	mrs := []gitlab.MergeRequest{{ID: 1, ProjectID: 5, State: "opened", CreatedAt: ts("2024-01-02T00:00:00Z")}}
	pipelines := []gitlab.Pipeline{
		{ID: 10, ProjectID: 5, Status: "failed", Ref: "main", CreatedAt: ts("2024-01-03T00:00:00Z")},
		{ID: 11, ProjectID: 5, Status: "success", Ref: "main", CreatedAt: ts("2024-01-01T00:00:00Z")},
	}
	names := map[int]string{5: "api"}

	feed := ActivityFeed(mrs, pipelines, names, 0)
	if len(feed) != 3 || feed[0].ID != "pipeline-10" || feed[1].ID != "mr-1" || feed[2].ID != "pipeline-11" {
		t.Errorf("ActivityFeed() = %+v", feed)
	}
	if feed[1].Project != "api" {
		t.Errorf("Project = %q, want api", feed[1].Project)
	}

	pulse := CodePulse(mrs, pipelines, names, 0)
	if len(pulse) != 2 {
		t.Errorf("CodePulse() kept %d events, want 2", len(pulse))
	}

	if got := ActivityFeed(mrs, pipelines, names, 1); len(got) != 1 {
		t.Errorf("limit not applied: %d events", len(got))
	}
}

func TestAttributedBranch(t *testing.T) {
	p := gitlab.Project{DefaultBranch: "develop"}
	if got := AttributedBranch(p, []gitlab.Branch{{Name: "feature"}, {Name: "develop"}}); got != "develop" {
		t.Errorf("AttributedBranch() = %q, want develop", got)
	}
	if got := AttributedBranch(p, []gitlab.Branch{{Name: "feature"}}); got != FallbackBranch {
		t.Errorf("AttributedBranch() = %q, want %q", got, FallbackBranch)
	}

	ranked := RankBranches(map[string]int{"main": 3, "develop": 9, "alpha": 3})
	if ranked[0].Branch != "develop" || ranked[1].Branch != "alpha" || ranked[2].Branch != "main" {
		t.Errorf("RankBranches() = %+v", ranked)
	}
}

func TestFailedByProjectAndWall(t *testing.T) {
	pipelines := []gitlab.Pipeline{
		{ID: 1, ProjectID: 1, Status: "failed", CreatedAt: ts("2024-01-01T00:00:00Z")},
		{ID: 2, ProjectID: 2, Status: "failed", CreatedAt: ts("2024-01-03T00:00:00Z")},
		{ID: 3, ProjectID: 2, Status: "failed", CreatedAt: ts("2024-01-02T00:00:00Z")},
		{ID: 4, ProjectID: 3, Status: "success", CreatedAt: ts("2024-01-04T00:00:00Z")},
	}
	failed := FailedByProject(pipelines, map[int]string{2: "web"})
	if len(failed) != 2 || failed[0].ProjectID != 2 || failed[0].Failed != 2 || failed[0].Name != "web" {
		t.Errorf("FailedByProject() = %+v", failed)
	}

	wall := NewestFirst(pipelines, 2)
	if len(wall) != 2 || wall[0].ID != 4 || wall[1].ID != 2 {
		t.Errorf("NewestFirst() = %+v", wall)
	}
}

func TestAverageDurationMinutes(t *testing.T) {
	d := func(v float64) *float64 { return &v }
	details := []gitlab.PipelineDetail{
		{Duration: d(120)},
		{Duration: d(240)},
		{Duration: d(0)},
		{Duration: nil},
	}
	if got, ok := AverageDurationMinutes(details); !ok || got != 3 {
		t.Errorf("AverageDurationMinutes() = %v, %v, want 3, true", got, ok)
	}
	if _, ok := AverageDurationMinutes(nil); ok {
		t.Error("AverageDurationMinutes(nil) reported ok")
	}
}

func TestRankActiveRepos(t *testing.T) {
	got := RankActiveRepos([]RepoActivity{{ProjectID: 1, Commits: 0}, {ProjectID: 2, Commits: 4}, {ProjectID: 3, Commits: 9}})
	if len(got) != 2 || got[0].ProjectID != 3 {
		t.Errorf("RankActiveRepos() = %+v", got)
	}
}
