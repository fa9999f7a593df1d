package domain

import (
	"regexp"
	"strconv"
)

// Minimum git version with worktree support.
const (
	MinGitMajor = 2
	MinGitMinor = 5
)

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)`)

// IsGitVersionSupported reports whether a version string such as
// "git version 2.39.2" meets the worktree minimum.
// Strings without a major.minor pair are unsupported.
func IsGitVersionSupported(version string) bool {
	m := versionPattern.FindStringSubmatch(version)
	if m == nil {
		return false
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	if major != MinGitMajor {
		return major > MinGitMajor
	}
	return minor >= MinGitMinor
}
