// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/runoshun/git-murm/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	NowTime time.Time
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	return m.NowTime
}

// MockProcessSignaler is a test double for domain.ProcessSignaler.
// Fields are ordered to minimize memory padding.
type MockProcessSignaler struct {
	Alive        map[int]bool
	TerminateErr error
	Terminated   []int
	mu           sync.Mutex
}

// NewMockProcessSignaler creates a MockProcessSignaler reporting pids in alive as running.
func NewMockProcessSignaler(alive ...int) *MockProcessSignaler {
	m := &MockProcessSignaler{Alive: make(map[int]bool)}
	for _, pid := range alive {
		m.Alive[pid] = true
	}
	return m
}

// IsAlive reports whether pid was registered as alive.
func (m *MockProcessSignaler) IsAlive(pid int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Alive[pid]
}

// Terminate records pid and marks it dead.
func (m *MockProcessSignaler) Terminate(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Terminated = append(m.Terminated, pid)
	if m.TerminateErr != nil {
		return m.TerminateErr
	}
	delete(m.Alive, pid)
	return nil
}

// MockGit is a test double for domain.Git.
// Fields are ordered to minimize memory padding.
type MockGit struct {
	MergeErrs            map[string]error
	DirtyWorktrees       map[string]bool
	MergeOutputs         map[string]string
	FeatureCommits       map[string]*domain.CommitInfo
	CurrentBranchErr     error
	UncommittedErr       error
	VersionErr           error
	PendingErr           error
	AbortMergeErr        error
	FindCommitErr        error
	RevertErr            error
	CommitErr            error
	CommitWorktreeErr    error
	Root                 string
	CurrentBranchName    string
	VersionString        string
	PendingOp            string
	Merged               []string
	Reverted             []domain.CommitInfo
	Commits              []string
	WorktreeCommits      []string
	mu                   sync.Mutex
	AbortMergeCalls      int
	AbortRevertCalls     int
	HasUncommittedChange bool
}

// NewMockGit creates a MockGit on a clean main branch.
func NewMockGit() *MockGit {
	return &MockGit{
		Root:              "/repo",
		CurrentBranchName: "main",
		VersionString:     "git version 2.43.0",
		MergeErrs:         make(map[string]error),
		MergeOutputs:      make(map[string]string),
		FeatureCommits:    make(map[string]*domain.CommitInfo),
		DirtyWorktrees:    make(map[string]bool),
	}
}

// RepoRoot returns the configured root.
func (m *MockGit) RepoRoot() string {
	return m.Root
}

// CurrentBranch returns the configured branch name.
func (m *MockGit) CurrentBranch() (string, error) {
	if m.CurrentBranchErr != nil {
		return "", m.CurrentBranchErr
	}
	return m.CurrentBranchName, nil
}

// PendingOperation returns the configured unfinished operation.
func (m *MockGit) PendingOperation() (string, error) {
	if m.PendingErr != nil {
		return "", m.PendingErr
	}
	return m.PendingOp, nil
}

// HasUncommittedChanges returns the configured dirty flag.
func (m *MockGit) HasUncommittedChanges() (bool, error) {
	if m.UncommittedErr != nil {
		return false, m.UncommittedErr
	}
	return m.HasUncommittedChange, nil
}

// Version returns the configured version string.
func (m *MockGit) Version() (string, error) {
	if m.VersionErr != nil {
		return "", m.VersionErr
	}
	return m.VersionString, nil
}

// CommitWorktree records dir and reports whether it was marked as having changes.
func (m *MockGit) CommitWorktree(dir, message string, _ ...string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CommitWorktreeErr != nil {
		return false, m.CommitWorktreeErr
	}
	if !m.DirtyWorktrees[dir] {
		return false, nil
	}
	m.WorktreeCommits = append(m.WorktreeCommits, message)
	return true, nil
}

// Merge records branch and returns the scripted outcome for it.
func (m *MockGit) Merge(branch string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Merged = append(m.Merged, branch)
	return m.MergeOutputs[branch], m.MergeErrs[branch]
}

// AbortMerge counts calls.
func (m *MockGit) AbortMerge() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AbortMergeCalls++
	return m.AbortMergeErr
}

// MergedBranches returns a copy of the merged branches in call order.
func (m *MockGit) MergedBranches() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Merged...)
}

// FindFeatureCommit returns the configured commit for slug.
func (m *MockGit) FindFeatureCommit(slug string) (*domain.CommitInfo, error) {
	if m.FindCommitErr != nil {
		return nil, m.FindCommitErr
	}
	return m.FeatureCommits[slug], nil
}

// Revert records the commit.
func (m *MockGit) Revert(commit domain.CommitInfo) error {
	m.Reverted = append(m.Reverted, commit)
	return m.RevertErr
}

// AbortRevert counts calls.
func (m *MockGit) AbortRevert() error {
	m.AbortRevertCalls++
	return nil
}

// Commit records the message.
func (m *MockGit) Commit(message string) error {
	if m.CommitErr != nil {
		return m.CommitErr
	}
	m.Commits = append(m.Commits, message)
	return nil
}

// MockWorktreeManager is a test double for domain.WorktreeManager.
// Fields are ordered to minimize memory padding.
type MockWorktreeManager struct {
	CreateErrs map[string]error
	Present    map[string]bool
	RemoveErr  error
	ExistsErr  error
	BaseDir    string
	Created    []string
	Removed    []string
	mu         sync.Mutex
}

// NewMockWorktreeManager creates a MockWorktreeManager rooted at /repo/.claude/worktrees.
func NewMockWorktreeManager() *MockWorktreeManager {
	return &MockWorktreeManager{
		BaseDir:    "/repo/.claude/worktrees",
		CreateErrs: make(map[string]error),
		Present:    make(map[string]bool),
	}
}

// Create records slug and returns its deterministic paths.
func (m *MockWorktreeManager) Create(slug string) (domain.WorktreeInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.CreateErrs[slug]; err != nil {
		return domain.WorktreeInfo{}, err
	}
	m.Created = append(m.Created, slug)
	m.Present[slug] = true
	return m.paths(slug), nil
}

// Remove records slug.
func (m *MockWorktreeManager) Remove(slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	m.Removed = append(m.Removed, slug)
	delete(m.Present, slug)
	return nil
}

// Paths returns the deterministic worktree paths for slug.
func (m *MockWorktreeManager) Paths(slug string) domain.WorktreeInfo {
	return m.paths(slug)
}

func (m *MockWorktreeManager) paths(slug string) domain.WorktreeInfo {
	return domain.WorktreeInfo{
		Path:   filepath.Join(m.BaseDir, "feat-"+slug),
		Branch: domain.BranchName(slug),
	}
}

// MarkPresent records worktrees that exist on disk without a Create call.
func (m *MockWorktreeManager) MarkPresent(slugs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, slug := range slugs {
		m.Present[slug] = true
	}
}

// Exists reports whether slug was created or marked present and not removed.
func (m *MockWorktreeManager) Exists(slug string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	return m.Present[slug], nil
}

// MockQueueStore is a test double for domain.QueueStore.
// Every save is kept as a deep copy so tests can inspect the history.
// Fields are ordered to minimize memory padding.
type MockQueueStore struct {
	State   *domain.RunState
	LoadErr error
	SaveErr error
	History []*domain.RunState
	mu      sync.Mutex
	Cleared bool
}

// NewMockQueueStore creates a MockQueueStore holding an empty run.
func NewMockQueueStore() *MockQueueStore {
	return &MockQueueStore{State: &domain.RunState{Features: []*domain.FeatureRecord{}}}
}

// Load returns a copy of the stored state.
func (m *MockQueueStore) Load() (*domain.RunState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return cloneState(m.State), nil
}

// Save stores a copy of state and appends it to History.
func (m *MockQueueStore) Save(state *domain.RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.State = cloneState(state)
	m.History = append(m.History, cloneState(state))
	return nil
}

// Clear empties the stored state.
func (m *MockQueueStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cleared = true
	m.State = &domain.RunState{Features: []*domain.FeatureRecord{}}
	return nil
}

// Saved returns the most recently saved state.
func (m *MockQueueStore) Saved() *domain.RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.State)
}

// StatusHistory returns every distinct status slug passed through, in save order.
func (m *MockQueueStore) StatusHistory(slug string) []domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Status
	for _, s := range m.History {
		f := s.Feature(slug)
		if f == nil {
			continue
		}
		if len(out) == 0 || out[len(out)-1] != f.Status {
			out = append(out, f.Status)
		}
	}
	return out
}

func cloneState(s *domain.RunState) *domain.RunState {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("clone state: %v", err))
	}
	var out domain.RunState
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("clone state: %v", err))
	}
	return &out
}

// MockLockManager is a test double for domain.LockManager.
// Fields are ordered to minimize memory padding.
type MockLockManager struct {
	Held         *domain.LockRecord
	Result       *domain.LockResult
	AcquireErr   error
	ReleaseErr   error
	InfoErr      error
	AcquiredFor  []string
	ForceUsed    bool
	AcquireCalls int
	ReleaseCalls int
}

// NewMockLockManager creates a MockLockManager with no lock held.
func NewMockLockManager() *MockLockManager {
	return &MockLockManager{}
}

// Acquire returns Result when set, otherwise grants the lock.
func (m *MockLockManager) Acquire(slugs []string, force bool) (*domain.LockResult, error) {
	m.AcquireCalls++
	m.ForceUsed = force
	if m.AcquireErr != nil {
		return nil, m.AcquireErr
	}
	if m.Result != nil {
		return m.Result, nil
	}
	m.AcquiredFor = slugs
	m.Held = &domain.LockRecord{PID: 1, Features: slugs}
	return &domain.LockResult{Acquired: true}, nil
}

// Release clears the held lock.
func (m *MockLockManager) Release() error {
	m.ReleaseCalls++
	m.Held = nil
	return m.ReleaseErr
}

// Info returns the held lock.
func (m *MockLockManager) Info() (*domain.LockRecord, error) {
	if m.InfoErr != nil {
		return nil, m.InfoErr
	}
	return m.Held, nil
}

// MockConfigStore is a test double for domain.ConfigStore.
// Fields are ordered to minimize memory padding.
type MockConfigStore struct {
	Config     *domain.Config
	LoadErr    error
	SaveErr    error
	InitErr    error
	Saved      *domain.Config
	FilePath   string
	InitCalled bool
	InitForce  bool
}

// NewMockConfigStore creates a MockConfigStore returning defaults.
func NewMockConfigStore() *MockConfigStore {
	return &MockConfigStore{Config: domain.NewDefaultConfig(), FilePath: "/repo/.claude/murm-config.toml"}
}

// Load returns a copy of the configured config.
func (m *MockConfigStore) Load() (*domain.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	cfg := *m.Config
	return &cfg, nil
}

// Save records cfg.
func (m *MockConfigStore) Save(cfg *domain.Config) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved = cfg
	m.Config = cfg
	return nil
}

// Init records the call.
func (m *MockConfigStore) Init(force bool) error {
	if m.InitErr != nil {
		return m.InitErr
	}
	m.InitCalled = true
	m.InitForce = force
	return nil
}

// Path returns the configured path.
func (m *MockConfigStore) Path() string {
	return m.FilePath
}

// MockPipelineRunner is a test double for domain.PipelineRunner.
// Slugs without a scripted result succeed immediately. Held slugs block
// until their context is cancelled. Delayed slugs finish after their delay.
// Fields are ordered to minimize memory padding.
type MockPipelineRunner struct {
	Results   map[string]domain.PipelineResult
	Hold      map[string]bool
	Delay     map[string]time.Duration
	Started   chan string // Receives each slug as its pipeline starts, if set
	Requests  []domain.PipelineRequest
	mu        sync.Mutex
	nextPID   int
	active    int
	MaxActive int
}

// NewMockPipelineRunner creates a MockPipelineRunner where every pipeline succeeds.
func NewMockPipelineRunner() *MockPipelineRunner {
	return &MockPipelineRunner{
		Results: make(map[string]domain.PipelineResult),
		Hold:    make(map[string]bool),
		Delay:   make(map[string]time.Duration),
		nextPID: 5000,
	}
}

// Run records req, reports a fake pid and returns the scripted result.
func (m *MockPipelineRunner) Run(ctx context.Context, req domain.PipelineRequest) domain.PipelineResult {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.nextPID++
	pid := m.nextPID
	m.active++
	if m.active > m.MaxActive {
		m.MaxActive = m.active
	}
	result, scripted := m.Results[req.Slug]
	hold := m.Hold[req.Slug]
	delay := m.Delay[req.Slug]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	if req.OnStart != nil {
		req.OnStart(pid)
	}
	if m.Started != nil {
		m.Started <- req.Slug
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	if hold {
		<-ctx.Done()
		return domain.PipelineResult{
			Slug:     req.Slug,
			LogPath:  req.LogPath,
			ExitCode: -1,
			Error:    "terminated",
		}
	}
	if !scripted {
		return domain.PipelineResult{Slug: req.Slug, LogPath: req.LogPath, Success: true}
	}
	result.Slug = req.Slug
	result.LogPath = req.LogPath
	return result
}

// Peak returns the highest number of pipelines observed running at once.
func (m *MockPipelineRunner) Peak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.MaxActive
}

// RequestFor returns the recorded request for slug.
func (m *MockPipelineRunner) RequestFor(slug string) (domain.PipelineRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Requests {
		if r.Slug == slug {
			return r, true
		}
	}
	return domain.PipelineRequest{}, false
}

// MockFeatureDocsReader is a test double for domain.FeatureDocsReader.
type MockFeatureDocsReader struct {
	Docs    map[string]domain.FeatureDocs
	ReadErr error
}

// NewMockFeatureDocsReader creates an empty MockFeatureDocsReader.
func NewMockFeatureDocsReader() *MockFeatureDocsReader {
	return &MockFeatureDocsReader{Docs: make(map[string]domain.FeatureDocs)}
}

// Read returns the configured docs, or an empty set naming slug.
func (m *MockFeatureDocsReader) Read(slug string) (domain.FeatureDocs, error) {
	if m.ReadErr != nil {
		return domain.FeatureDocs{}, m.ReadErr
	}
	docs, ok := m.Docs[slug]
	if !ok {
		return domain.FeatureDocs{Slug: slug}, nil
	}
	docs.Slug = slug
	return docs, nil
}

// MockDiskSpaceChecker is a test double for domain.DiskSpaceChecker.
type MockDiskSpaceChecker struct {
	Err    error
	FreeMB int64
}

// AvailableMB returns the configured free space.
func (m *MockDiskSpaceChecker) AvailableMB(_ string) (int64, error) {
	return m.FreeMB, m.Err
}

// LogEntry is one call captured by MockLogger.
type LogEntry struct {
	Level    string
	Slug     string
	Category string
	Msg      string
}

// MockLogger is a test double for domain.Logger.
type MockLogger struct {
	Entries []LogEntry
	mu      sync.Mutex
}

func (m *MockLogger) add(level, slug, category, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, LogEntry{Level: level, Slug: slug, Category: category, Msg: msg})
}

// Debug records a debug entry.
func (m *MockLogger) Debug(slug, category, msg string) { m.add("DEBUG", slug, category, msg) }

// Info records an info entry.
func (m *MockLogger) Info(slug, category, msg string) { m.add("INFO", slug, category, msg) }

// Warn records a warn entry.
func (m *MockLogger) Warn(slug, category, msg string) { m.add("WARN", slug, category, msg) }

// Error records an error entry.
func (m *MockLogger) Error(slug, category, msg string) { m.add("ERROR", slug, category, msg) }

// Has reports whether any entry at level contains msg.
func (m *MockLogger) Has(level, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.Level == level && strings.Contains(e.Msg, msg) {
			return true
		}
	}
	return false
}
