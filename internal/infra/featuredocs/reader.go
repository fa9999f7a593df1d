// Package featuredocs reads the per-feature documents the pipeline consumes.
package featuredocs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/runoshun/git-murm/internal/domain"
)

// Document names inside a feature directory.
const (
	SpecFile    = "FEATURE_SPEC.md"
	PlanFile    = "IMPLEMENTATION_PLAN.md"
	storyPrefix = "story-"
	storySuffix = ".md"
)

// Ensure Reader implements domain.FeatureDocsReader interface.
var _ domain.FeatureDocsReader = (*Reader)(nil)

// Reader loads feature documents from <featuresDir>/feature_<slug>/.
type Reader struct {
	featuresDir string
}

// NewReader creates a Reader rooted at featuresDir.
func NewReader(featuresDir string) *Reader {
	return &Reader{featuresDir: featuresDir}
}

// frontMatter is the optional YAML header of a feature spec.
type frontMatter struct {
	DependsOn []string `yaml:"depends_on"`
}

// Read collects the spec, plan and story count for slug.
// Missing documents are reported through the Exists flags, not as errors.
func (r *Reader) Read(slug string) (domain.FeatureDocs, error) {
	docs := domain.FeatureDocs{Slug: slug}
	dir := domain.FeatureDocsDir(r.featuresDir, slug)

	spec, ok, err := readOptional(filepath.Join(dir, SpecFile))
	if err != nil {
		return docs, err
	}
	if ok {
		docs.SpecExists = true
		docs.DependsOn, docs.SpecContent = splitFrontMatter(spec)
	}

	plan, ok, err := readOptional(filepath.Join(dir, PlanFile))
	if err != nil {
		return docs, err
	}
	docs.PlanExists = ok
	docs.PlanContent = plan

	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return docs, fmt.Errorf("read feature directory: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, storyPrefix) && strings.HasSuffix(name, storySuffix) {
			docs.StoryCount++
		}
	}

	return docs, nil
}

func readOptional(path string) (string, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return string(content), true, nil
}

// splitFrontMatter separates a leading "---" YAML block from the body.
// Malformed headers are left in the body and declare no dependencies.
func splitFrontMatter(content string) ([]string, string) {
	data := []byte(content)
	if !bytes.HasPrefix(data, []byte("---\n")) && !bytes.HasPrefix(data, []byte("---\r\n")) {
		return nil, content
	}
	rest := data[bytes.IndexByte(data, '\n')+1:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, content
	}

	var fm frontMatter
	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return nil, content
	}

	body := rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return fm.DependsOn, string(body)
}
