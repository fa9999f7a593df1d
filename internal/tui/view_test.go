package tui

import (
	"testing"
	"time"

	"github.com/runoshun/git-murm/internal/domain"
	"github.com/runoshun/git-murm/internal/usecase"
	"github.com/stretchr/testify/assert"
)

func TestModel_View(t *testing.T) {
	m := New(&fakeLoader{}, nil, 0)
	assert.Contains(t, m.View(), "Loading...")

	m.Update(MsgStatusLoaded{Status: sampleStatus()})
	view := m.View()

	assert.Contains(t, view, "run 0f8c2b1e on main")
	assert.Contains(t, view, "Running in pid 4242 since 09:30:00")
	assert.Contains(t, view, "auth")
	assert.Contains(t, view, "Running")
	assert.Contains(t, view, "2m05s")
	assert.Contains(t, view, "cass")
	assert.Contains(t, view, "1 complete, 1 failed, 1 pending of 3 feature(s)")
	assert.NotContains(t, view, "exited with code 2", "details are hidden by default")

	m.showDetails = true
	assert.Contains(t, m.View(), "pipeline exited with code 2 (log: /wt/feat-search/pipeline.log)")
}

func TestModel_View_NoRun(t *testing.T) {
	m := New(&fakeLoader{}, nil, 0)
	m.Update(MsgStatusLoaded{Status: &usecase.ShowStatusOutput{State: &domain.RunState{}}})

	view := m.View()

	assert.Contains(t, view, "No run holds the lock")
	assert.Contains(t, view, "No murm run recorded.")
}

func TestModel_View_StaleLock(t *testing.T) {
	out := sampleStatus()
	out.LockAlive = false
	m := New(&fakeLoader{}, nil, 0)
	m.Update(MsgStatusLoaded{Status: out})

	assert.Contains(t, m.View(), "Stale lock from pid 4242")
}

func TestFeatureDetail(t *testing.T) {
	tests := []struct {
		name string
		f    domain.FeatureRecord
		want string
	}{
		{"none", domain.FeatureRecord{Status: domain.StatusComplete}, ""},
		{"timeout", domain.FeatureRecord{Status: domain.StatusFailed, TimedOut: true, Error: "Pipeline timed out after 30 minutes", LogPath: "/l"}, "Pipeline timed out after 30 minutes (log: /l)"},
		{"conflict", domain.FeatureRecord{Status: domain.StatusMergeConflict, BranchName: "feature/x", WorktreePath: "/wt/feat-x"}, "branch feature/x preserved at /wt/feat-x"},
		{"worktree error", domain.FeatureRecord{Status: domain.StatusFailed, Error: "create worktree: exists"}, "create worktree: exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FeatureDetail(&tt.f))
		})
	}
}

func TestSummaryLine(t *testing.T) {
	assert.Equal(t, "3 complete of 3 feature(s)", SummaryLine(domain.Summary{Total: 3, Complete: 3}))
	assert.Equal(t, "1 complete, 1 conflicted, 2 aborted of 4 feature(s)",
		SummaryLine(domain.Summary{Total: 4, Complete: 1, Conflicts: 1, Aborted: 2}))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "-", FormatElapsed(0))
	assert.Equal(t, "12s", FormatElapsed(12*time.Second))
	assert.Equal(t, "4m05s", FormatElapsed(4*time.Minute+5*time.Second))
	assert.Equal(t, "1h02m", FormatElapsed(62*time.Minute))
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", PadRight("ab", 5))
	assert.Equal(t, "日本 ", PadRight("日本", 5))
	assert.Equal(t, "abcd…", PadRight("abcdefgh", 5))
}

func TestSlugColumnWidth(t *testing.T) {
	features := []usecase.FeatureStatus{
		{Record: &domain.FeatureRecord{Slug: "a"}},
		{Record: &domain.FeatureRecord{Slug: "user-profile"}},
	}
	assert.Equal(t, 12, SlugColumnWidth(features))
}
