package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// FeatureDocs is the raw collaborator input for one feature, as found on disk.
// Fields are ordered to minimize memory padding.
type FeatureDocs struct {
	Slug        string
	SpecContent string
	PlanContent string
	DependsOn   []string // Declared in spec front matter
	StoryCount  int
	SpecExists  bool
	PlanExists  bool
}

// FeatureValidation is the preflight result for a single feature.
// Fields are ordered to minimize memory padding.
type FeatureValidation struct {
	Slug          string   `json:"slug"`
	FilesToModify []string `json:"filesToModify"`
	DependsOn     []string `json:"dependsOn,omitempty"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	StoryCount    int      `json:"storyCount"`
	Valid         bool     `json:"valid"`
	SpecExists    bool     `json:"specExists"`
	SpecComplete  bool     `json:"specComplete"`
	PlanExists    bool     `json:"planExists"`
}

// FileOverlap is a path claimed by more than one feature in a batch.
type FileOverlap struct {
	File  string   `json:"file"`
	Slugs []string `json:"features"`
}

// Dependency is a directed edge: Feature mentions or declares DependsOn.
type Dependency struct {
	Feature   string `json:"feature"`
	DependsOn string `json:"dependsOn"`
}

// ScopeEstimate is the heuristic duration of one feature's pipeline.
type ScopeEstimate struct {
	Slug       string `json:"slug"`
	StoryCount int    `json:"storyCount"`
	FileCount  int    `json:"fileCount"`
	Minutes    int    `json:"estimatedMinutes"`
}

// ScopeWeights are the coefficients of the scope estimate.
type ScopeWeights struct {
	BaseMinutes  int
	StoryMinutes int
	FileMinutes  int
}

// DefaultScopeWeights returns the built-in scope coefficients.
func DefaultScopeWeights() ScopeWeights {
	return ScopeWeights{
		BaseMinutes:  DefaultScopeBaseMinutes,
		StoryMinutes: DefaultScopeStoryMinutes,
		FileMinutes:  DefaultScopeFileMinutes,
	}
}

// BatchValidation aggregates per-feature results with cross-feature analysis.
// Overlaps and dependencies are advisory; only a missing spec makes the
// batch invalid.
type BatchValidation struct {
	Features        []FeatureValidation `json:"features"`
	FileOverlaps    []FileOverlap       `json:"fileOverlaps"`
	Dependencies    []Dependency        `json:"dependencies"`
	ScopeEstimates  []ScopeEstimate     `json:"scopeEstimates"`
	Recommendations []string            `json:"recommendations"`
	TotalMinutes    int                 `json:"totalEstimatedMinutes"`
	ParallelMinutes int                 `json:"parallelEstimatedMinutes"`
	Valid           bool                `json:"valid"`
}

// Invalid returns the features that block the batch.
func (b *BatchValidation) Invalid() []FeatureValidation {
	var out []FeatureValidation
	for _, f := range b.Features {
		if !f.Valid {
			out = append(out, f)
		}
	}
	return out
}

// Preflight messages.
const (
	MsgMissingSpec       = "Missing FEATURE_SPEC.md"
	MsgIncompleteSpec    = "Spec may be incomplete (missing required sections)"
	MsgNoStories         = "No user stories found (story-*.md)"
	MsgUnknownDependency = "Declared dependency %q is not part of this batch"
)

// requiredSections lists alternatives for each spec section that must be present.
var requiredSections = [][]string{
	{"## 1. Feature Intent", "# Feature Intent"},
	{"## 2. Scope", "# Scope"},
	{"## 3. Behaviour", "Behaviour Overview"},
}

// SpecHasRequiredSections reports whether a feature spec contains the
// intent, scope and behaviour sections.
func SpecHasRequiredSections(content string) bool {
	for _, alts := range requiredSections {
		found := false
		for _, a := range alts {
			if strings.Contains(content, a) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var (
	planTableCell = regexp.MustCompile("\\|\\s*`?([^|`]+)`?\\s*\\|")
	planBullet    = regexp.MustCompile("(?i)^[\\s*-]+\\s*`?([^\\s`]+\\.[a-z]+)`?")
)

// ExtractFilesToModify scans an implementation plan for the "Files to
// Create" or "Files to Modify" section and returns the paths listed in its
// table rows and bullets, deduplicated in order of appearance.
// Extraction is best-effort; an unusual plan layout yields a partial list.
func ExtractFilesToModify(plan string) []string {
	var files []string
	inSection := false
	for _, line := range strings.Split(plan, "\n") {
		if strings.Contains(line, "Files to Create") || strings.Contains(line, "Files to Modify") {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			break
		}

		if m := planTableCell.FindStringSubmatch(line); m != nil && strings.ContainsAny(m[1], "/.") {
			p := strings.TrimSpace(m[1])
			if p != "" && !strings.Contains(p, "---") && !strings.Contains(strings.ToLower(p), "path") {
				files = append(files, p)
			}
		}
		if m := planBullet.FindStringSubmatch(line); m != nil {
			files = append(files, strings.TrimSpace(m[1]))
		}
	}
	return dedupe(files)
}

// EstimateScope returns base + stories*story + files*file minutes.
func EstimateScope(storyCount, fileCount int, w ScopeWeights) int {
	return w.BaseMinutes + storyCount*w.StoryMinutes + fileCount*w.FileMinutes
}

// ValidateFeature checks one feature's documents.
func ValidateFeature(docs FeatureDocs) FeatureValidation {
	v := FeatureValidation{
		Slug:          docs.Slug,
		Valid:         true,
		SpecExists:    docs.SpecExists,
		StoryCount:    docs.StoryCount,
		PlanExists:    docs.PlanExists,
		DependsOn:     docs.DependsOn,
		FilesToModify: []string{},
		Errors:        []string{},
		Warnings:      []string{},
	}

	if !docs.SpecExists {
		v.Valid = false
		v.Errors = append(v.Errors, MsgMissingSpec)
	} else if SpecHasRequiredSections(docs.SpecContent) {
		v.SpecComplete = true
	} else {
		v.Warnings = append(v.Warnings, MsgIncompleteSpec)
	}

	if docs.StoryCount == 0 {
		v.Warnings = append(v.Warnings, MsgNoStories)
	}

	if docs.PlanExists {
		v.FilesToModify = ExtractFilesToModify(docs.PlanContent)
	}
	return v
}

// FindFileOverlaps groups files across features. One entry is returned per
// shared path, in first-seen order, with slugs in batch order.
func FindFileOverlaps(features []FeatureValidation) []FileOverlap {
	owners := make(map[string][]string)
	var order []string
	for _, f := range features {
		for _, file := range f.FilesToModify {
			if _, ok := owners[file]; !ok {
				order = append(order, file)
			}
			if !slices.Contains(owners[file], f.Slug) {
				owners[file] = append(owners[file], f.Slug)
			}
		}
	}

	overlaps := []FileOverlap{}
	for _, file := range order {
		if len(owners[file]) > 1 {
			overlaps = append(overlaps, FileOverlap{File: file, Slugs: owners[file]})
		}
	}
	return overlaps
}

// DetectDependencies records an edge whenever a feature's spec mentions
// another batch slug (case-insensitive) or declares it in front matter.
func DetectDependencies(docs []FeatureDocs) []Dependency {
	deps := []Dependency{}
	for _, d := range docs {
		if !d.SpecExists {
			continue
		}
		lower := strings.ToLower(d.SpecContent)
		for _, other := range docs {
			if other.Slug == d.Slug {
				continue
			}
			if strings.Contains(lower, strings.ToLower(other.Slug)) || slices.Contains(d.DependsOn, other.Slug) {
				deps = append(deps, Dependency{Feature: d.Slug, DependsOn: other.Slug})
			}
		}
	}
	return deps
}

// AnalyzeBatch validates every feature and runs the cross-feature checks.
func AnalyzeBatch(docs []FeatureDocs, w ScopeWeights) *BatchValidation {
	b := &BatchValidation{
		Features:        make([]FeatureValidation, 0, len(docs)),
		ScopeEstimates:  make([]ScopeEstimate, 0, len(docs)),
		Recommendations: []string{},
		Valid:           true,
	}

	inBatch := make(map[string]bool, len(docs))
	for _, d := range docs {
		inBatch[d.Slug] = true
	}

	for _, d := range docs {
		v := ValidateFeature(d)
		for _, dep := range d.DependsOn {
			if !inBatch[dep] {
				v.Warnings = append(v.Warnings, fmt.Sprintf(MsgUnknownDependency, dep))
			}
		}
		if !v.Valid {
			b.Valid = false
		}
		b.Features = append(b.Features, v)

		est := ScopeEstimate{
			Slug:       v.Slug,
			StoryCount: v.StoryCount,
			FileCount:  len(v.FilesToModify),
			Minutes:    EstimateScope(v.StoryCount, len(v.FilesToModify), w),
		}
		b.ScopeEstimates = append(b.ScopeEstimates, est)
		b.TotalMinutes += est.Minutes
		b.ParallelMinutes = max(b.ParallelMinutes, est.Minutes)
	}

	b.FileOverlaps = FindFileOverlaps(b.Features)
	b.Dependencies = DetectDependencies(docs)
	b.Recommendations = recommend(docs, b)
	return b
}

func recommend(docs []FeatureDocs, b *BatchValidation) []string {
	recs := []string{}
	if len(b.FileOverlaps) > 0 {
		var overlapping []string
		for _, o := range b.FileOverlaps {
			for _, s := range o.Slugs {
				if !slices.Contains(overlapping, s) {
					overlapping = append(overlapping, s)
				}
			}
		}
		// Only worth suggesting when something could still run alongside them.
		if len(overlapping) < len(docs) {
			recs = append(recs, fmt.Sprintf("Consider running %s sequentially due to file overlap", strings.Join(overlapping, ", ")))
		}
	}
	if len(b.Dependencies) > 0 {
		edges := make([]string, 0, len(b.Dependencies))
		for _, d := range b.Dependencies {
			edges = append(edges, d.Feature+" → "+d.DependsOn)
		}
		recs = append(recs, "Dependency detected: "+strings.Join(edges, ", "))
	}
	return recs
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
