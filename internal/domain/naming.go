package domain

import "path/filepath"

// File names under the repository's .claude directory.
const (
	ConfigFileName = "murm-config.toml"
	LockFileName   = "murm.lock"

	legacyConfigFileName = "parallel-config.toml"
	legacyLockFileName   = "parallel.lock"

	// LegacyQueueFile is the queue path used before the murm rename.
	LegacyQueueFile = ".claude/parallel-queue.json"
)

// MurmDir returns the per-repository state directory (.claude).
func MurmDir(repoRoot string) string {
	return filepath.Join(repoRoot, ".claude")
}

// ConfigPath returns the path to the repository config file.
func ConfigPath(repoRoot string) string {
	return filepath.Join(MurmDir(repoRoot), ConfigFileName)
}

// LockPath returns the path to the run lock file.
func LockPath(repoRoot string) string {
	return filepath.Join(MurmDir(repoRoot), LockFileName)
}

// GlobalLogPath returns the path to the orchestrator diagnostic log.
func GlobalLogPath(murmDir string) string {
	return filepath.Join(murmDir, "logs", "murm.log")
}

// FeatureLogPath returns the orchestrator log for one feature.
func FeatureLogPath(murmDir, slug string) string {
	return filepath.Join(murmDir, "logs", "feature-"+slug+".log")
}

// BranchName returns the feature branch for slug.
// Format: feature/<slug>
func BranchName(slug string) string {
	return "feature/" + slug
}

// WorktreePath returns the worktree directory for slug.
// Format: <worktreeDir>/feat-<slug>
func WorktreePath(worktreeDir, slug string) string {
	return filepath.Join(worktreeDir, "feat-"+slug)
}

// PipelineLogPath returns the pipeline log inside a feature worktree.
func PipelineLogPath(worktreePath string) string {
	return filepath.Join(worktreePath, "pipeline.log")
}

// FeatureDocsDir returns the directory holding a feature's spec, stories and plan.
// Format: <featuresDir>/feature_<slug>
func FeatureDocsDir(featuresDir, slug string) string {
	return filepath.Join(featuresDir, "feature_"+slug)
}

// ResolvePath makes a config-relative path absolute against repoRoot.
func ResolvePath(repoRoot, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(repoRoot, p)
}

// PathMigration describes a file that moved between naming schemes.
type PathMigration struct {
	Old string
	New string
}

// LegacyMigrations returns the file moves from the parallel-* naming scheme.
func LegacyMigrations(repoRoot string) []PathMigration {
	dir := MurmDir(repoRoot)
	return []PathMigration{
		{Old: filepath.Join(dir, legacyConfigFileName), New: filepath.Join(dir, ConfigFileName)},
		{Old: filepath.Join(dir, legacyLockFileName), New: filepath.Join(dir, LockFileName)},
		{Old: filepath.Join(repoRoot, LegacyQueueFile), New: filepath.Join(repoRoot, DefaultQueueFile)},
	}
}
