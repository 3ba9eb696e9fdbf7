package tool

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/questor-cli/questor/internal/registry"
)

const (
	maxGrepMatches = 100
	maxFindResults = 100
	maxGrepLine    = 500
)

type grepArgs struct {
	Pattern string `mapstructure:"pattern"`
	Path    string `mapstructure:"path"`
}

// grepHandler searches file contents with a regular expression, honoring
// the workspace .gitignore and skipping binary files. Matches are
// reported as path:line: text, capped at maxGrepMatches.
func grepHandler(maxFileSize int64) registry.Handler {
	return func(ctx context.Context, inv *registry.Invocation) (any, error) {
		var args grepArgs
		if err := decodeArgs(inv.Args, &args); err != nil {
			return nil, err
		}
		if args.Pattern == "" {
			return nil, fmt.Errorf("pattern must not be empty")
		}

		re, err := regexp.Compile(args.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}

		root := inv.Workspace
		if args.Path != "" {
			if root, err = resolvePath(inv.Workspace, args.Path); err != nil {
				return nil, err
			}
		}

		ignore := newIgnoreMatcher(inv.Workspace)
		var matches []string
		truncated := false

		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // Unreadable entries are skipped, not fatal.
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			rel, relErr := filepath.Rel(inv.Workspace, path)
			if relErr != nil {
				return nil
			}
			if d.IsDir() {
				if rel != "." && ignore.Ignored(rel, true) {
					return filepath.SkipDir
				}
				return nil
			}
			if ignore.Ignored(rel, false) {
				return nil
			}

			info, infoErr := d.Info()
			if infoErr != nil || info.Size() > maxFileSize {
				return nil
			}
			if binary, binErr := isBinaryFile(path); binErr != nil || binary {
				return nil
			}

			file, openErr := os.Open(path)
			if openErr != nil {
				return nil
			}
			defer file.Close()

			scanner := bufio.NewScanner(file)
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)
			lineNum := 0
			for scanner.Scan() {
				lineNum++
				line := scanner.Text()
				if !re.MatchString(line) {
					continue
				}
				if len(line) > maxGrepLine {
					line = line[:maxGrepLine]
				}
				matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, lineNum, line))
				if len(matches) >= maxGrepMatches {
					truncated = true
					return filepath.SkipAll
				}
			}
			return nil
		})
		if walkErr != nil && walkErr != filepath.SkipAll {
			return nil, walkErr
		}

		if len(matches) == 0 {
			return registry.OK(fmt.Sprintf("no matches for %q", args.Pattern)), nil
		}
		out := strings.Join(matches, "\n")
		if truncated {
			out += fmt.Sprintf("\n... (stopped at %d matches)", maxGrepMatches)
		}
		return registry.OK(out), nil
	}
}

type findArgs struct {
	Pattern string `mapstructure:"pattern"`
}

// findHandler lists workspace files whose relative path matches a glob.
// Double-star patterns cross directory boundaries; .gitignore applies.
func findHandler() registry.Handler {
	return func(ctx context.Context, inv *registry.Invocation) (any, error) {
		var args findArgs
		if err := decodeArgs(inv.Args, &args); err != nil {
			return nil, err
		}
		if args.Pattern == "" {
			return nil, fmt.Errorf("pattern must not be empty")
		}
		if !doublestar.ValidatePattern(args.Pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", args.Pattern)
		}

		ignore := newIgnoreMatcher(inv.Workspace)
		var results []string
		truncated := false

		err := filepath.WalkDir(inv.Workspace, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			rel, relErr := filepath.Rel(inv.Workspace, path)
			if relErr != nil || rel == "." {
				return nil
			}
			if d.IsDir() {
				if ignore.Ignored(rel, true) {
					return filepath.SkipDir
				}
				return nil
			}
			if ignore.Ignored(rel, false) {
				return nil
			}

			ok, matchErr := doublestar.Match(args.Pattern, filepath.ToSlash(rel))
			if matchErr != nil || !ok {
				return nil
			}
			results = append(results, rel)
			if len(results) >= maxFindResults {
				truncated = true
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil && err != filepath.SkipAll {
			return nil, err
		}

		if len(results) == 0 {
			return registry.OK(fmt.Sprintf("no files match %q", args.Pattern)), nil
		}
		sort.Strings(results)
		out := strings.Join(results, "\n")
		if truncated {
			out += fmt.Sprintf("\n... (stopped at %d results)", maxFindResults)
		}
		return registry.OK(out), nil
	}
}
