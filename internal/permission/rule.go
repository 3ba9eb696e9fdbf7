// Package permission implements the declarative allow/deny/confirm rule
// engine that gates every tool execution. Rules come from built-in
// defaults, global and local YAML files, and an optional named preset;
// they merge additively and the highest-priority matching rule decides.
package permission

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Action is what a matching rule does.
type Action string

const (
	ActionAllow   Action = "allow"
	ActionDeny    Action = "deny"
	ActionConfirm Action = "confirm"
)

// Category groups tools for rule matching.
type Category string

const (
	CategoryRead  Category = "read"
	CategoryWrite Category = "write"
	CategoryExec  Category = "exec"
	CategoryWeb   Category = "web"
	CategoryAll   Category = "all"
)

// toolCategories is the fixed mapping from tool name to category.
// Tools not listed fall back to CategoryAll.
var toolCategories = map[string]Category{
	"read":       CategoryRead,
	"read_lines": CategoryRead,
	"grep":       CategoryRead,
	"find":       CategoryRead,

	"write":       CategoryWrite,
	"write_lines": CategoryWrite,
	"patch":       CategoryWrite,

	"localexec": CategoryExec,
	"shell":     CategoryExec,
	"run_tests": CategoryExec,

	"webfetch":   CategoryWeb,
	"download":   CategoryWeb,
	"web_search": CategoryWeb,
}

// CategoryOf returns the category for a tool name, defaulting to all.
func CategoryOf(tool string) Category {
	if c, ok := toolCategories[tool]; ok {
		return c
	}
	return CategoryAll
}

// Rule is a single permission rule.
type Rule struct {
	Action      Action   `yaml:"action"`
	Category    Category `yaml:"category"`
	Pattern     string   `yaml:"pattern"`
	Priority    int      `yaml:"priority"`
	Description string   `yaml:"description,omitempty"`
}

// Matches reports whether the rule applies to the (tool, resource) pair.
//
// A pattern containing a colon is split into independent globs for the
// tool name and the resource; a colon-less pattern globs the resource
// only; the literal "*" matches anything.
func (r Rule) Matches(tool, resource string) bool {
	if r.Category != CategoryAll && CategoryOf(tool) != r.Category {
		return false
	}

	if r.Pattern == "*" {
		return true
	}

	if i := strings.Index(r.Pattern, ":"); i >= 0 {
		toolPattern, resourcePattern := r.Pattern[:i], r.Pattern[i+1:]
		if toolPattern != "*" && !globMatch(toolPattern, tool) {
			return false
		}
		if resourcePattern != "*" && !globMatch(resourcePattern, resource) {
			return false
		}
		return true
	}

	return globMatch(r.Pattern, resource)
}

func globMatch(pattern, value string) bool {
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}
