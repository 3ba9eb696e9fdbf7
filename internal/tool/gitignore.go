package tool

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreMatcher answers whether a workspace-relative path is excluded by
// the workspace's .gitignore. A missing .gitignore means nothing is
// ignored.
type ignoreMatcher struct {
	matcher gitignore.Matcher
}

func newIgnoreMatcher(workspace string) *ignoreMatcher {
	content, err := os.ReadFile(filepath.Join(workspace, ".gitignore"))
	if err != nil {
		return &ignoreMatcher{}
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return &ignoreMatcher{matcher: gitignore.NewMatcher(patterns)}
}

func (m *ignoreMatcher) Ignored(relPath string, isDir bool) bool {
	// The repository metadata directory is always skipped.
	segments := splitPath(relPath)
	if len(segments) > 0 && segments[0] == ".git" {
		return true
	}
	if m.matcher == nil {
		return false
	}
	return m.matcher.Match(segments, isDir)
}

func splitPath(path string) []string {
	var segments []string
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." {
			segments = append(segments, part)
		}
	}
	return segments
}
