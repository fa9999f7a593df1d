package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/runoshun/git-murm/internal/app"
	"github.com/runoshun/git-murm/internal/domain"
	"github.com/runoshun/git-murm/internal/testutil"
)

const completeSpec = "## 1. Feature Intent\nx\n## 2. Scope\ny\n## 3. Behaviour\nz\n"

// testEnv is a container wired to mocks.
type testEnv struct {
	c         *app.Container
	configs   *testutil.MockConfigStore
	locks     *testutil.MockLockManager
	queue     *testutil.MockQueueStore
	git       *testutil.MockGit
	worktrees *testutil.MockWorktreeManager
	runner    *testutil.MockPipelineRunner
	docs      *testutil.MockFeatureDocsReader
	procs     *testutil.MockProcessSignaler
}

// newTestEnv returns a container where every slug has valid documents.
func newTestEnv(slugs ...string) *testEnv {
	e := &testEnv{
		configs:   testutil.NewMockConfigStore(),
		locks:     testutil.NewMockLockManager(),
		queue:     testutil.NewMockQueueStore(),
		git:       testutil.NewMockGit(),
		worktrees: testutil.NewMockWorktreeManager(),
		runner:    testutil.NewMockPipelineRunner(),
		docs:      testutil.NewMockFeatureDocsReader(),
		procs:     testutil.NewMockProcessSignaler(),
	}
	for _, slug := range slugs {
		e.docs.Docs[slug] = domain.FeatureDocs{SpecExists: true, SpecContent: completeSpec, StoryCount: 1}
	}
	settings := domain.NewDefaultConfig()
	e.c = &app.Container{
		Configs:   e.configs,
		Locks:     e.locks,
		Queue:     e.queue,
		Git:       e.git,
		Worktrees: e.worktrees,
		Runner:    e.runner,
		Docs:      e.docs,
		Disk:      &testutil.MockDiskSpaceChecker{FreeMB: 100_000},
		Procs:     e.procs,
		Clock:     domain.RealClock{},
		Logger:    &testutil.MockLogger{},
		Settings:  settings,
		Config: app.Config{
			RepoRoot:    "/repo",
			QueuePath:   "/repo/.claude/murm-queue.json",
			FeaturesDir: "/repo/.blueprint/features",
		},
	}
	return e
}

// execute runs the root command with args and returns stdout and stderr.
func (e *testEnv) execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand(e.c, "test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func at(minutes int) *time.Time {
	t := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
	return &t
}
