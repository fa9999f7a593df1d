// Package app provides the dependency injection container for the application.
package app

import (
	"fmt"
	"io"

	"github.com/runoshun/git-murm/internal/domain"
	"github.com/runoshun/git-murm/internal/infra/config"
	"github.com/runoshun/git-murm/internal/infra/diskspace"
	"github.com/runoshun/git-murm/internal/infra/featuredocs"
	"github.com/runoshun/git-murm/internal/infra/git"
	"github.com/runoshun/git-murm/internal/infra/lockfile"
	"github.com/runoshun/git-murm/internal/infra/logging"
	"github.com/runoshun/git-murm/internal/infra/pipeline"
	"github.com/runoshun/git-murm/internal/infra/process"
	"github.com/runoshun/git-murm/internal/infra/queuestore"
	"github.com/runoshun/git-murm/internal/infra/worktree"
	"github.com/runoshun/git-murm/internal/usecase"
)

// Config holds the resolved application paths.
type Config struct {
	RepoRoot    string // Root directory of the git repository
	MurmDir     string // Path to .claude
	ConfigPath  string // Path to murm-config.toml
	LockPath    string // Path to murm.lock
	QueuePath   string // Path to the queue file
	WorktreeDir string // Path to the worktrees directory
	FeaturesDir string // Path to the feature documents
}

// newConfig resolves the configured paths against the repository root.
func newConfig(repoRoot string, settings *domain.Config) Config {
	return Config{
		RepoRoot:    repoRoot,
		MurmDir:     domain.MurmDir(repoRoot),
		ConfigPath:  domain.ConfigPath(repoRoot),
		LockPath:    domain.LockPath(repoRoot),
		QueuePath:   domain.ResolvePath(repoRoot, settings.QueueFile),
		WorktreeDir: domain.ResolvePath(repoRoot, settings.WorktreeDir),
		FeaturesDir: domain.ResolvePath(repoRoot, settings.FeaturesDir),
	}
}

// Container provides dependency injection for the application.
// It holds all port implementations and provides factory methods for use cases.
type Container struct {
	// Ports (interfaces bound to implementations)
	Configs   domain.ConfigStore
	Locks     domain.LockManager
	Queue     domain.QueueStore
	Git       domain.Git
	Worktrees domain.WorktreeManager
	Runner    domain.PipelineRunner
	Docs      domain.FeatureDocsReader
	Disk      domain.DiskSpaceChecker
	Procs     domain.ProcessSignaler
	Clock     domain.Clock
	Logger    domain.Logger

	// Pointer fields
	Settings *domain.Config         // Effective settings at startup, warnings included
	closer   io.Closer              // Releases log files
	Migrated []domain.PathMigration // Legacy files renamed during startup

	// Configuration
	Config Config
}

// New creates a new Container by detecting the git repository from the given directory.
func New(dir string) (*Container, error) {
	gitClient, err := git.NewClient(dir)
	if err != nil {
		return nil, err
	}
	repoRoot := gitClient.RepoRoot()

	// Older versions used parallel-* names for the same files
	migrated, err := config.Migrate(domain.LegacyMigrations(repoRoot))
	if err != nil {
		return nil, fmt.Errorf("migrate legacy files: %w", err)
	}

	configStore := config.NewStore(repoRoot)
	settings, err := configStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := newConfig(repoRoot, settings)

	clock := domain.RealClock{}
	logger := logging.New(cfg.MurmDir, logging.ParseLevel(settings.LogLevel), clock)
	procs := process.NewSignaler()

	return &Container{
		Configs:   configStore,
		Locks:     lockfile.New(cfg.LockPath, procs, clock, logger),
		Queue:     queuestore.New(cfg.QueuePath, clock),
		Git:       gitClient,
		Worktrees: worktree.NewClient(repoRoot, cfg.WorktreeDir),
		Runner:    pipeline.NewRunner(clock),
		Docs:      featuredocs.NewReader(cfg.FeaturesDir),
		Disk:      diskspace.NewChecker(),
		Procs:     procs,
		Clock:     clock,
		Logger:    logger,
		Settings:  settings,
		Migrated:  migrated,
		closer:    logger,
		Config:    cfg,
	}, nil
}

// Close releases resources held by the container.
func (c *Container) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// UseCase factory methods

// PreflightUseCase returns a new Preflight use case.
func (c *Container) PreflightUseCase() *usecase.Preflight {
	return usecase.NewPreflight(c.Git, c.Docs, c.Configs)
}

// MergeFeatureUseCase returns a new MergeFeature use case.
func (c *Container) MergeFeatureUseCase() *usecase.MergeFeature {
	return usecase.NewMergeFeature(c.Git, c.Worktrees, c.Clock, c.Logger)
}

// RunMurmUseCase returns a new RunMurm use case.
func (c *Container) RunMurmUseCase() *usecase.RunMurm {
	return usecase.NewRunMurm(
		c.Configs,
		c.Locks,
		c.Queue,
		c.Git,
		c.Worktrees,
		c.Runner,
		c.Disk,
		c.PreflightUseCase(),
		c.MergeFeatureUseCase(),
		c.Clock,
		c.Logger,
	)
}

// ShowStatusUseCase returns a new ShowStatus use case.
func (c *Container) ShowStatusUseCase() *usecase.ShowStatus {
	return usecase.NewShowStatus(c.Queue, c.Locks, c.Procs, c.Clock)
}

// CleanupUseCase returns a new Cleanup use case.
func (c *Container) CleanupUseCase() *usecase.Cleanup {
	return usecase.NewCleanup(c.Queue, c.Worktrees, c.Locks, c.Procs, c.Logger)
}

// AbortMurmUseCase returns a new AbortMurm use case.
func (c *Container) AbortMurmUseCase() *usecase.AbortMurm {
	return usecase.NewAbortMurm(c.Locks, c.Queue, c.Procs, c.Worktrees, c.CleanupUseCase(), c.Clock, c.Logger)
}

// RollbackUseCase returns a new Rollback use case.
func (c *Container) RollbackUseCase() *usecase.Rollback {
	return usecase.NewRollback(c.Git, c.Queue, c.Worktrees, c.Locks, c.Procs, c.Logger)
}

// ShowConfigUseCase returns a new ShowConfig use case.
func (c *Container) ShowConfigUseCase() *usecase.ShowConfig {
	return usecase.NewShowConfig(c.Configs)
}

// SetConfigUseCase returns a new SetConfig use case.
func (c *Container) SetConfigUseCase() *usecase.SetConfig {
	return usecase.NewSetConfig(c.Configs)
}

// InitConfigUseCase returns a new InitConfig use case.
func (c *Container) InitConfigUseCase() *usecase.InitConfig {
	return usecase.NewInitConfig(c.Configs)
}
